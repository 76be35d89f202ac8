package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/application"
	"telegram-fieldops-dispatch/internal/config"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/infra/logging"
	red "telegram-fieldops-dispatch/internal/infra/redis"
)

// RealMessengerAdapter uses tgbotapi to poll updates and delegates to
// BotFacade. The tgbotapi client handles long-poll reconnects internally
// (including restarting after duplicate-consumer conflicts), so the core
// only ever sees a stream of updates.
type RealMessengerAdapter struct {
	bot         *tgbotapi.BotAPI
	cfg         *config.BotConfig
	facade      *application.BotFacade
	rateLimiter *red.RateLimiter
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

// NewRealMessengerAdapter dials the bot API. The adapter is constructed
// before the use cases so they can send through it; the facade is attached
// afterwards with SetFacade, before polling starts.
func NewRealMessengerAdapter(cfg *config.BotConfig, rateLimiter *red.RateLimiter, logger *zerolog.Logger) (*RealMessengerAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	compLog := logger.With().Str("component", "Messenger").Logger()
	return &RealMessengerAdapter{
		bot:           bot,
		cfg:           cfg,
		rateLimiter:   rateLimiter,
		log:           &compLog,
		updateWorkers: workers,
	}, nil
}

// SetFacade wires the command handlers. Must be called before StartPolling.
func (r *RealMessengerAdapter) SetFacade(facade *application.BotFacade) {
	r.facade = facade
}

// StartPolling begins polling for updates and fans them out over the update
// workers. It runs until ctx is canceled.
func (r *RealMessengerAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("facade not attached")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-updateChan:
					if !ok {
						return
					}
					if err := r.handleUpdate(ctx, up); err != nil {
						r.log.Error().Err(err).Int("worker", id).Msg("update handling failed")
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up := <-updates:
			updateChan <- up
		}
	}
}

func (r *RealMessengerAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// SendMessage implements adapter.MessengerAdapter.
func (r *RealMessengerAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends a message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealMessengerAdapter) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kb := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kb = append(kb, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kb = append(kb, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				kb = append(kb, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, kb)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealMessengerAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}
	tgUser := update.Message.From
	if tgUser == nil {
		return nil
	}
	chatID := update.Message.Chat.ID
	ctx = logging.WithChatID(logging.WithTraceID(ctx, uuid.NewString()), chatID)

	// Basic rate limiting per chat per command
	fields := strings.Fields(update.Message.Text)
	command := "message"
	if len(fields) > 0 && strings.HasPrefix(fields[0], "/") {
		command = fields[0]
	}
	if r.rateLimiter != nil {
		allowed, err := r.rateLimiter.Allow(ctx, red.ChatCommandKey(chatID, command), 20, time.Minute)
		if err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("rate limit check failed")
		} else if !allowed {
			return r.SendMessage(ctx, chatID, "Rate limit exceeded. Please try again later.")
		}
	}

	// Contact shares and photos are routed through the session manager
	// before anything else.
	if update.Message.Contact != nil {
		c := update.Message.Contact
		name := strings.TrimSpace(c.FirstName + " " + c.LastName)
		reply, handled, err := r.facade.HandleContact(ctx, chatID, c.PhoneNumber, name)
		if err != nil {
			return err
		}
		if handled {
			return r.SendMessage(ctx, chatID, reply)
		}
		return r.SendMessage(ctx, chatID, "Use /register to start technician registration.")
	}
	if len(update.Message.Photo) > 0 {
		// largest size is last
		fileID := update.Message.Photo[len(update.Message.Photo)-1].FileID
		reply, handled, err := r.facade.HandlePhoto(ctx, chatID, fileID)
		if err != nil {
			return err
		}
		if handled {
			return r.SendMessage(ctx, chatID, reply)
		}
		return nil
	}
	if update.Message.Location != nil {
		// Location accuracy is a client concern; nothing to do server-side.
		r.log.Debug().Int64("chat_id", chatID).Msg("location received")
		return nil
	}

	if command != "message" {
		return r.handleCommand(ctx, chatID, tgUser, fields)
	}

	// Free text: session flows first, then a gentle fallback.
	reply, handled, err := r.facade.HandleFreeText(ctx, chatID, update.Message.Text)
	if err != nil {
		return err
	}
	if handled {
		return r.SendMessage(ctx, chatID, reply)
	}
	return r.SendMessage(ctx, chatID, "Sorry, I didn't understand that. Send /help for commands.")
}

func (r *RealMessengerAdapter) handleCommand(ctx context.Context, chatID int64, tgUser *tgbotapi.User, fields []string) error {
	command := fields[0]
	args := fields[1:]

	switch command {
	case "/start":
		text, err := r.facade.HandleStart(ctx, chatID)
		if err != nil {
			return r.SendMessage(ctx, chatID, "Failed to initialize. Please try again.")
		}
		return r.sendMainMenu(ctx, chatID, text)

	case "/register":
		name := strings.TrimSpace(tgUser.FirstName + " " + tgUser.LastName)
		text, err := r.facade.HandleRegister(ctx, chatID, name)
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/myjobs":
		text, err := r.facade.HandleMyJobs(ctx, chatID)
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/startwork":
		if len(args) < 1 {
			return r.SendMessage(ctx, chatID, "Usage: /startwork <job number>")
		}
		return r.byNumber(ctx, chatID, args[0], r.facade.HandleStartWork)

	case "/done":
		if len(args) < 1 {
			return r.SendMessage(ctx, chatID, "Usage: /done <job number>")
		}
		return r.byNumber(ctx, chatID, args[0], r.facade.HandleRequestCompletion)

	case "/available", "/unavailable":
		text, err := r.facade.HandleSetAvailability(ctx, chatID, command == "/available")
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/cancel":
		text, err := r.facade.HandleCancelFlow(ctx, chatID)
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/login":
		text, err := r.facade.HandleLogin(ctx, chatID)
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/broadcast":
		text, err := r.facade.HandleBroadcastPrompt(ctx, chatID)
		if err != nil {
			return err
		}
		return r.SendMessage(ctx, chatID, text)

	case "/pending":
		return r.sendPendingMenu(ctx, chatID)

	case "/help":
		return r.SendMessage(ctx, chatID, "Commands:\n"+
			"/start - main menu\n"+
			"/register - become a technician\n"+
			"/myjobs - your active jobs\n"+
			"/startwork <number> - start work on a claimed job\n"+
			"/done <number> - finish a job (photo required)\n"+
			"/available, /unavailable - toggle job offers\n"+
			"/cancel - abort the current flow\n"+
			"/login - admin login\n"+
			"/pending - pending registrations (admin)\n"+
			"/broadcast - message all technicians (admin)")

	default:
		return r.SendMessage(ctx, chatID, "Unknown command. Send /help for the list of commands.")
	}
}

// byNumber resolves a job number typed by the user into a job id and invokes fn.
func (r *RealMessengerAdapter) byNumber(ctx context.Context, chatID int64, number string, fn func(context.Context, int64, string) (string, error)) error {
	job, err := r.facade.JobUC.GetByNumber(ctx, number)
	if err != nil {
		return r.SendMessage(ctx, chatID, "No job with that number.")
	}
	text, err := fn(logging.WithJobID(ctx, job.ID), chatID, job.ID)
	if err != nil {
		return err
	}
	return r.SendMessage(ctx, chatID, text)
}
