// File: internal/application/mocks_test.go
package application

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager serializes callbacks with a mutex, standing in for the
// database transaction the real manager opens.
type memTxManager struct {
	mu sync.Mutex
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// The facade tests run against real use cases over these in-memory repos, so
// a chat-level scenario exercises the same logic the bot runs in production.

type memJobRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Job
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{store: make(map[string]*model.Job)} }

func (m *memJobRepo) Save(ctx context.Context, tx repository.Tx, j *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.store[j.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindByNumber(ctx context.Context, tx repository.Tx, number string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, j := range m.store {
		if j.Number == number {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, expected, next model.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status != expected {
		return domain.ErrStateConflict
	}
	j.Status = next
	return nil
}

func (m *memJobRepo) ListOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, statuses []model.JobStatus) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if !j.CreatedAt.Before(cutoff) {
			continue
		}
		for _, s := range statuses {
			if j.Status == s {
				cp := *j
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

type memAssignmentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{store: make(map[string]*model.Assignment)}
}

func (m *memAssignmentRepo) Save(ctx context.Context, tx repository.Tx, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.JobID+"|"+a.TechnicianID] = &cp
	return nil
}

func (m *memAssignmentRepo) Find(ctx context.Context, tx repository.Tx, jobID, technicianID string) (*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[jobID+"|"+technicianID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAssignmentRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.JobID == jobID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) ListByTechnician(ctx context.Context, tx repository.Tx, technicianID string) ([]*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.TechnicianID == technicianID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) CountActive(ctx context.Context, tx repository.Tx, jobID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.store {
		if a.JobID == jobID && a.Active() {
			n++
		}
	}
	return n, nil
}

func (m *memAssignmentRepo) ListCompletedSince(ctx context.Context, tx repository.Tx, technicianID string, since time.Time) ([]*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.TechnicianID == technicianID && a.CompletedAt != nil && !a.CompletedAt.Before(since) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memTechnicianRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Technician
}

func newMemTechnicianRepo() *memTechnicianRepo {
	return &memTechnicianRepo{store: make(map[string]*model.Technician)}
}

func (m *memTechnicianRepo) Save(ctx context.Context, tx repository.Tx, t *model.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTechnicianRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTechnicianRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.ChatID == chatID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTechnicianRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.Phone == phone {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTechnicianRepo) ListActiveWithChat(ctx context.Context, tx repository.Tx) ([]*model.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Technician
	for _, t := range m.store {
		if t.IsActive && t.HasChat() {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTechnicianRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

type memAdminRepo struct {
	mu    sync.RWMutex
	store map[string]*model.AdminUser
}

func newMemAdminRepo() *memAdminRepo { return &memAdminRepo{store: make(map[string]*model.AdminUser)} }

func (m *memAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.Username] = &cp
	return nil
}

func (m *memAdminRepo) FindByChatID(ctx context.Context, tx repository.Tx, chatID int64) (*model.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.ChatID == chatID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAdminRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAdminRepo) ListWithChat(ctx context.Context, tx repository.Tx) ([]*model.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.AdminUser
	for _, a := range m.store {
		if a.HasChat() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memRegistrationRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Registration
}

func newMemRegistrationRepo() *memRegistrationRepo {
	return &memRegistrationRepo{store: make(map[string]*model.Registration)}
}

func (m *memRegistrationRepo) Save(ctx context.Context, tx repository.Tx, r *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRegistrationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRegistrationRepo) FindPendingByChat(ctx context.Context, tx repository.Tx, chatID int64) (*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.store {
		if r.ChatID == chatID && r.Status == model.RegistrationPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRegistrationRepo) FindPendingByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.store {
		if r.Phone == phone && r.Status == model.RegistrationPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRegistrationRepo) FindRejectedByChat(ctx context.Context, tx repository.Tx, chatID int64) (*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.Registration
	for _, r := range m.store {
		if r.ChatID == chatID && r.Status == model.RegistrationRejected {
			if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memRegistrationRepo) ListPending(ctx context.Context, tx repository.Tx) ([]*model.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Registration
	for _, r := range m.store {
		if r.Status == model.RegistrationPending {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type sentMessage struct {
	ChatID int64
	Text   string
	Rows   [][]adapter.InlineButton
}

type mockMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
}

func newMockMessenger() *mockMessenger { return &mockMessenger{failFor: make(map[int64]error)} }

func (m *mockMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	return m.record(chatID, text, nil)
}

func (m *mockMessenger) SendButtons(ctx context.Context, chatID int64, text string, rows [][]adapter.InlineButton) error {
	return m.record(chatID, text, rows)
}

func (m *mockMessenger) record(chatID int64, text string, rows [][]adapter.InlineButton) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[chatID]; ok {
		return err
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text, Rows: rows})
	return nil
}

func (m *mockMessenger) sentTo(chatID int64) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}
