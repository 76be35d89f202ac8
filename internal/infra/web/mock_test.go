//go:build !integration

package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// withURLParam injects a chi route parameter so handlers can be exercised
// without mounting the full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- Mock Repositories (Ports) ---

type mockJobRepo struct {
	repository.JobRepository // Embed interface for forward compatibility
	mu                       sync.Mutex
	jobs                     map[string]*model.Job
	SaveError                error
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) Save(ctx context.Context, tx repository.Tx, j *model.Job) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *mockJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockJobRepo) FindByNumber(ctx context.Context, tx repository.Tx, number string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Number == number {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type mockTechnicianRepo struct {
	repository.TechnicianRepository // Embed interface
	techs                           []*model.Technician
	ListError                       error
	CountError                      error
}

func (m *mockTechnicianRepo) ListActiveWithChat(ctx context.Context, tx repository.Tx) ([]*model.Technician, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.techs, nil
}

func (m *mockTechnicianRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return len(m.techs), nil
}

func (m *mockTechnicianRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Technician, error) {
	for _, t := range m.techs {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTechnicianRepo) Save(ctx context.Context, tx repository.Tx, t *model.Technician) error {
	for i, old := range m.techs {
		if old.ID == t.ID {
			m.techs[i] = t
			return nil
		}
	}
	m.techs = append(m.techs, t)
	return nil
}

type mockRegistrationRepo struct {
	repository.RegistrationRepository // Embed interface
	pending                           []*model.Registration
	ListError                         error
}

func (m *mockRegistrationRepo) ListPending(ctx context.Context, tx repository.Tx) ([]*model.Registration, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.pending, nil
}

type mockAdminRepo struct {
	repository.AdminRepository // Embed interface
	admins                     map[string]*model.AdminUser
}

func (m *mockAdminRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.AdminUser, error) {
	a, ok := m.admins[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}
