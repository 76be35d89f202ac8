//go:build !integration

package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/infra/memstore"
	"telegram-fieldops-dispatch/internal/infra/worker"
	"telegram-fieldops-dispatch/internal/usecase"
	"telegram-fieldops-dispatch/internal/usecase/joblock"
)

const testAdminPassword = "dispatch-secret"

type facadeTestEnv struct {
	facade    *BotFacade
	jobUC     usecase.JobUseCase
	jobs      *memJobRepo
	techs     *memTechnicianRepo
	admins    *memAdminRepo
	regs      *memRegistrationRepo
	messenger *mockMessenger
	sessions  repository.SessionStore
}

// newFacadeTestEnv wires the real use cases over in-memory repos, the same
// shape main assembles, minus the transports.
func newFacadeTestEnv(t *testing.T, requireApproval bool) *facadeTestEnv {
	t.Helper()

	jobs := newMemJobRepo()
	assignments := newMemAssignmentRepo()
	techs := newMemTechnicianRepo()
	admins := newMemAdminRepo()
	regs := newMemRegistrationRepo()
	messenger := newMockMessenger()
	sessions := memstore.NewSessionStore()
	logger := testLogger()

	poolCtx, poolCancel := context.WithCancel(context.Background())
	pool := worker.NewPool(2, logger)
	pool.Start(poolCtx)
	t.Cleanup(func() {
		poolCancel()
		pool.Stop()
	})

	assignmentUC := usecase.NewAssignmentUseCase(jobs, assignments, joblock.New(2*time.Second), logger)
	dispatchUC := usecase.NewDispatchUseCase(techs, admins, messenger, 4, logger)
	jobUC := usecase.NewJobUseCase(jobs, assignmentUC, dispatchUC, requireApproval, logger)
	registrationUC := usecase.NewRegistrationUseCase(regs, techs, &memTxManager{}, messenger, logger)
	technicianUC := usecase.NewTechnicianUseCase(techs, logger)
	broadcastUC := usecase.NewBroadcastUseCase(techs, messenger, pool, logger)

	facade := NewBotFacade(assignmentUC, jobUC, registrationUC, technicianUC, broadcastUC,
		sessions, admins, testAdminPassword, logger)

	return &facadeTestEnv{
		facade:    facade,
		jobUC:     jobUC,
		jobs:      jobs,
		techs:     techs,
		admins:    admins,
		regs:      regs,
		messenger: messenger,
		sessions:  sessions,
	}
}

func (e *facadeTestEnv) seedTechnician(t *testing.T, name, phone string, chatID int64) *model.Technician {
	t.Helper()
	tech, err := model.NewTechnician("", name, phone, chatID)
	if err != nil {
		t.Fatalf("build technician: %v", err)
	}
	if err := e.techs.Save(context.Background(), repository.NoTX, tech); err != nil {
		t.Fatalf("save technician: %v", err)
	}
	return tech
}

func (e *facadeTestEnv) seedAdmin(t *testing.T, username string, chatID int64) {
	t.Helper()
	a := model.NewAdminUser(username, model.RoleAdmin)
	a.ChatID = chatID
	if err := e.admins.Save(context.Background(), repository.NoTX, a); err != nil {
		t.Fatalf("save admin: %v", err)
	}
}

// The whole technician-facing flow, end to end: dispatch, two claims, a
// capacity refusal, start, and photo-gated completion.
func TestBotFacade_JobLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	env := newFacadeTestEnv(t, false)

	env.seedTechnician(t, "Alice Carter", "+15550100001", 101)
	env.seedTechnician(t, "Bob Reyes", "+15550100002", 102)
	env.seedTechnician(t, "Cora Lindgren", "+15550100003", 103)

	job, res, err := env.jobUC.Create(ctx, usecase.CreateJobParams{
		Kind:        "INSTALLATION",
		Address:     "12 Fiber Lane",
		CustomerRef: "CUST-1",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if res.Succeeded != 3 {
		t.Fatalf("expected the offer sent to all 3 technicians, got %+v", res)
	}

	// Two claims succeed, the third is refused.
	if reply, err := env.facade.HandleClaim(ctx, 101, job.ID); err != nil || !strings.Contains(reply, "yours") {
		t.Fatalf("first claim: reply=%q err=%v", reply, err)
	}
	if reply, err := env.facade.HandleClaim(ctx, 102, job.ID); err != nil || !strings.Contains(reply, "yours") {
		t.Fatalf("second claim: reply=%q err=%v", reply, err)
	}
	reply, err := env.facade.HandleClaim(ctx, 103, job.ID)
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if !strings.Contains(reply, "two technicians") {
		t.Errorf("expected a capacity refusal, got %q", reply)
	}

	// Repeated claim by the same technician is called out.
	if reply, _ := env.facade.HandleClaim(ctx, 101, job.ID); !strings.Contains(reply, "already claimed") {
		t.Errorf("expected an already-claimed reply, got %q", reply)
	}

	if reply, err := env.facade.HandleStartWork(ctx, 101, job.ID); err != nil || !strings.Contains(reply, "started") {
		t.Fatalf("start work: reply=%q err=%v", reply, err)
	}

	// Completion needs the photo step.
	if reply, err := env.facade.HandleRequestCompletion(ctx, 101, job.ID); err != nil || !strings.Contains(reply, "photo") {
		t.Fatalf("request completion: reply=%q err=%v", reply, err)
	}
	photoReply, handled, err := env.facade.HandlePhoto(ctx, 101, "photo-file-42")
	if err != nil || !handled {
		t.Fatalf("photo: handled=%v err=%v", handled, err)
	}
	if !strings.Contains(photoReply, "completed") {
		t.Errorf("expected completion confirmation, got %q", photoReply)
	}

	got, _ := env.jobs.FindByID(ctx, repository.NoTX, job.ID)
	if got.Status != model.JobStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", got.Status)
	}
}

func TestBotFacade_CompletionGateWithSingleTechnician(t *testing.T) {
	ctx := context.Background()
	env := newFacadeTestEnv(t, false)
	env.seedTechnician(t, "Alice Carter", "+15550100001", 101)

	job, _, err := env.jobUC.Create(ctx, usecase.CreateJobParams{
		Kind:        "INSTALLATION",
		Address:     "12 Fiber Lane",
		CustomerRef: "CUST-1",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := env.facade.HandleClaim(ctx, 101, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := env.facade.HandleRequestCompletion(ctx, 101, job.ID); err != nil {
		t.Fatalf("request completion: %v", err)
	}

	reply, handled, err := env.facade.HandlePhoto(ctx, 101, "photo-file-42")
	if err != nil || !handled {
		t.Fatalf("photo: handled=%v err=%v", handled, err)
	}
	if !strings.Contains(reply, "Cannot complete yet") {
		t.Errorf("expected the completion gate reply, got %q", reply)
	}
	got, _ := env.jobs.FindByID(ctx, repository.NoTX, job.ID)
	if got.Status == model.JobStatusCompleted {
		t.Error("job must not complete with a single technician")
	}
}

func TestBotFacade_HandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("greets a known technician by name", func(t *testing.T) {
		env := newFacadeTestEnv(t, false)
		env.seedTechnician(t, "Alice Carter", "+15550100001", 101)

		reply, err := env.facade.HandleStart(ctx, 101)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if !strings.Contains(reply, "Alice Carter") {
			t.Errorf("expected a personal greeting, got %q", reply)
		}
	})

	t.Run("greets newcomers with registration hint", func(t *testing.T) {
		env := newFacadeTestEnv(t, false)

		reply, err := env.facade.HandleStart(ctx, 999)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if !strings.Contains(reply, "/register") {
			t.Errorf("expected a registration hint, got %q", reply)
		}
	})

	t.Run("drops an open session", func(t *testing.T) {
		env := newFacadeTestEnv(t, false)
		if _, err := env.facade.HandleLogin(ctx, 101); err != nil {
			t.Fatalf("login: %v", err)
		}

		if _, err := env.facade.HandleStart(ctx, 101); err != nil {
			t.Fatalf("start: %v", err)
		}
		s, _ := env.sessions.Get(ctx, 101)
		if s != nil {
			t.Errorf("expected the session cleared, got %+v", s)
		}
	})
}

func TestBotFacade_MyJobs(t *testing.T) {
	ctx := context.Background()
	env := newFacadeTestEnv(t, false)
	env.seedTechnician(t, "Alice Carter", "+15550100001", 101)
	env.seedTechnician(t, "Bob Reyes", "+15550100002", 102)

	job, _, err := env.jobUC.Create(ctx, usecase.CreateJobParams{
		Kind:        "REPAIR",
		SubCategory: "no internet",
		Address:     "4 Exchange Street",
		CustomerRef: "CUST-7",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := env.facade.HandleClaim(ctx, 101, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	reply, err := env.facade.HandleMyJobs(ctx, 101)
	if err != nil {
		t.Fatalf("my jobs: %v", err)
	}
	if !strings.Contains(reply, job.Number) {
		t.Errorf("expected job number in the listing, got %q", reply)
	}

	reply, err = env.facade.HandleMyJobs(ctx, 102)
	if err != nil {
		t.Fatalf("my jobs: %v", err)
	}
	if !strings.Contains(reply, "no active assignments") {
		t.Errorf("expected an empty listing, got %q", reply)
	}
}

func TestBotFacade_AdminGates(t *testing.T) {
	ctx := context.Background()
	env := newFacadeTestEnv(t, false)
	env.seedAdmin(t, "dispatcher", 900)

	t.Run("broadcast prompt refuses non-admins", func(t *testing.T) {
		reply, err := env.facade.HandleBroadcastPrompt(ctx, 101)
		if err != nil {
			t.Fatalf("broadcast prompt: %v", err)
		}
		if !strings.Contains(reply, "not authorized") {
			t.Errorf("expected an authorization refusal, got %q", reply)
		}
	})

	t.Run("pending list refuses non-admins", func(t *testing.T) {
		reply, regs, err := env.facade.HandlePendingRegistrations(ctx, 101)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if regs != nil || !strings.Contains(reply, "not authorized") {
			t.Errorf("expected an authorization refusal, got %q", reply)
		}
	})

	t.Run("pending list works for a linked admin", func(t *testing.T) {
		reply, _, err := env.facade.HandlePendingRegistrations(ctx, 900)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if !strings.Contains(reply, "No pending registrations") {
			t.Errorf("expected the empty-list reply, got %q", reply)
		}
	})
}
