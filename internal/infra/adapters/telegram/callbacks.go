package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
)

type callbackHandler func(ctx context.Context, chatID int64, data string) error

// cbRoutes matches callback data exactly; cbPrefixRoutes matches by prefix
// and passes the trailing payload to the handler. Prefix routes are checked
// in order after exact routes miss.
func (r *RealMessengerAdapter) cbRoutes() map[string]callbackHandler {
	return map[string]callbackHandler{
		"cmd:menu":    r.cbMainMenu,
		"cmd:myjobs":  r.cbMyJobs,
		"cmd:pending": func(ctx context.Context, chatID int64, _ string) error { return r.sendPendingMenu(ctx, chatID) },
	}
}

type prefixRoute struct {
	prefix  string
	handler callbackHandler
}

func (r *RealMessengerAdapter) cbPrefixRoutes() []prefixRoute {
	return []prefixRoute{
		{"claim:", r.cbClaim},
		{"start:", r.cbStartWork},
		{"done:", r.cbDone},
		{"regapprove:", r.cbApproveRegistration},
		{"regreject:", r.cbRejectRegistration},
	}
}

func (r *RealMessengerAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Ack immediately so the client stops showing the spinner.
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := r.bot.Request(callback); err != nil {
		r.log.Warn().Err(err).Msg("callback ack failed")
	}
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID
	data := query.Data

	if h, ok := r.cbRoutes()[data]; ok {
		return h(ctx, chatID, data)
	}
	for _, route := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, route.prefix) {
			return route.handler(ctx, chatID, strings.TrimPrefix(data, route.prefix))
		}
	}
	r.log.Warn().Str("data", data).Msg("unrouted callback")
	return nil
}

func (r *RealMessengerAdapter) cbMainMenu(ctx context.Context, chatID int64, _ string) error {
	text, err := r.facade.HandleStart(ctx, chatID)
	if err != nil {
		return err
	}
	return r.sendMainMenu(ctx, chatID, text)
}

func (r *RealMessengerAdapter) cbMyJobs(ctx context.Context, chatID int64, _ string) error {
	text, err := r.facade.HandleMyJobs(ctx, chatID)
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, chatID, text)
}

func (r *RealMessengerAdapter) cbClaim(ctx context.Context, chatID int64, jobID string) error {
	text, err := r.facade.HandleClaim(ctx, chatID, jobID)
	if err != nil {
		return err
	}
	rows := [][]adapter.InlineButton{{
		{Text: "▶️ Start work", Data: "start:" + jobID},
		{Text: "📋 My jobs", Data: "cmd:myjobs"},
	}}
	return r.SendButtons(ctx, chatID, text, rows)
}

func (r *RealMessengerAdapter) cbStartWork(ctx context.Context, chatID int64, jobID string) error {
	text, err := r.facade.HandleStartWork(ctx, chatID, jobID)
	if err != nil {
		return err
	}
	rows := [][]adapter.InlineButton{{
		{Text: "✅ Finish job", Data: "done:" + jobID},
	}}
	return r.SendButtons(ctx, chatID, text, rows)
}

func (r *RealMessengerAdapter) cbDone(ctx context.Context, chatID int64, jobID string) error {
	text, err := r.facade.HandleRequestCompletion(ctx, chatID, jobID)
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, chatID, text)
}

func (r *RealMessengerAdapter) cbApproveRegistration(ctx context.Context, chatID int64, registrationID string) error {
	text, err := r.facade.HandleApproveRegistration(ctx, chatID, registrationID)
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, chatID, text)
}

func (r *RealMessengerAdapter) cbRejectRegistration(ctx context.Context, chatID int64, registrationID string) error {
	text, err := r.facade.HandleRejectRegistration(ctx, chatID, registrationID, "rejected by admin")
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, chatID, text)
}

func (r *RealMessengerAdapter) sendMainMenu(ctx context.Context, chatID int64, text string) error {
	rows := [][]adapter.InlineButton{
		{{Text: "📋 My jobs", Data: "cmd:myjobs"}},
	}
	if r.facade.IsAdminChat(ctx, chatID) {
		rows = append(rows, []adapter.InlineButton{{Text: "🗂 Pending registrations", Data: "cmd:pending"}})
	}
	return r.SendButtons(ctx, chatID, text, rows)
}

func (r *RealMessengerAdapter) sendPendingMenu(ctx context.Context, chatID int64) error {
	text, pending, err := r.facade.HandlePendingRegistrations(ctx, chatID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return r.SendMessage(ctx, chatID, text)
	}
	rows := make([][]adapter.InlineButton, 0, len(pending))
	for _, reg := range pending {
		rows = append(rows, []adapter.InlineButton{
			{Text: fmt.Sprintf("✅ %s", reg.FullName), Data: "regapprove:" + reg.ID},
			{Text: "❌ Reject", Data: "regreject:" + reg.ID},
		})
	}
	return r.SendButtons(ctx, chatID, text, rows)
}
