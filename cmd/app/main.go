// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-fieldops-dispatch/internal/application"
	"telegram-fieldops-dispatch/internal/config"
	"telegram-fieldops-dispatch/internal/domain/ports/adapter"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	tele "telegram-fieldops-dispatch/internal/infra/adapters/telegram"
	pg "telegram-fieldops-dispatch/internal/infra/db/postgres"
	"telegram-fieldops-dispatch/internal/infra/logging"
	"telegram-fieldops-dispatch/internal/infra/memstore"
	"telegram-fieldops-dispatch/internal/infra/metrics"
	red "telegram-fieldops-dispatch/internal/infra/redis"
	"telegram-fieldops-dispatch/internal/infra/sched"
	"telegram-fieldops-dispatch/internal/infra/web"
	"telegram-fieldops-dispatch/internal/infra/worker"
	"telegram-fieldops-dispatch/internal/usecase"
	"telegram-fieldops-dispatch/internal/usecase/joblock"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop messenger, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Sessions (redis when enabled, in-process otherwise) ----
	var sessions repository.SessionStore
	var rateLimiter *red.RateLimiter
	if cfg.Redis.Enabled {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		sessions = red.NewSessionStore(redisClient)
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		sessions = memstore.NewSessionStore()
		log.Info().Msg("redis disabled; conversation sessions held in memory")
	}

	// ---- Repositories ----
	jobRepo := pg.NewPostgresJobRepo(pool)
	assignmentRepo := pg.NewPostgresAssignmentRepo(pool)
	technicianRepo := pg.NewPostgresTechnicianRepo(pool)
	adminRepo := pg.NewPostgresAdminRepo(pool)
	registrationRepo := pg.NewPostgresRegistrationRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Messenger ----
	var messenger adapter.MessengerAdapter
	var botAdapter *tele.RealMessengerAdapter
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		messenger = tele.NewNoOpMessengerAdapter(log)
	} else {
		botAdapter, err = tele.NewRealMessengerAdapter(&cfg.Bot, rateLimiter, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
		messenger = botAdapter
	}

	// ---- Worker pool ----
	workerPool := worker.NewPool(cfg.Bot.Workers, log)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	// ---- Use cases ----
	locks := joblock.New(cfg.Dispatch.ClaimLockTimeout)
	assignmentUC := usecase.NewAssignmentUseCase(jobRepo, assignmentRepo, locks, log)
	dispatchUC := usecase.NewDispatchUseCase(technicianRepo, adminRepo, messenger, cfg.Dispatch.FanOutLimit, log)
	jobUC := usecase.NewJobUseCase(jobRepo, assignmentUC, dispatchUC, cfg.Dispatch.RequireApproval, log)
	registrationUC := usecase.NewRegistrationUseCase(registrationRepo, technicianRepo, txManager, messenger, log)
	technicianUC := usecase.NewTechnicianUseCase(technicianRepo, log)
	broadcastUC := usecase.NewBroadcastUseCase(technicianRepo, messenger, workerPool, log)
	reminderUC := usecase.NewReminderUseCase(jobRepo, assignmentRepo, technicianRepo, messenger, log)

	// ---- Facade ----
	facade := application.NewBotFacade(
		assignmentUC, jobUC, registrationUC, technicianUC, broadcastUC,
		sessions, adminRepo, cfg.Admin.Password, log,
	)

	// ---- Telegram polling ----
	if botAdapter != nil {
		botAdapter.SetFacade(facade)
		if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
			log.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
		}
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Scheduler workers ----
	reminderWorker := sched.NewReminderWorker(cfg.Scheduler.ReminderInterval, cfg.Scheduler.ReminderAge, reminderUC, log)
	go func() { _ = reminderWorker.Run(ctx) }()
	digestWorker := sched.NewDigestWorker(cfg.Scheduler.DigestHour, reminderUC, log)
	go func() { _ = digestWorker.Run(ctx) }()

	// ---- Admin HTTP API ----
	metrics.MustRegister()
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	srv := web.NewServer(jobUC, registrationUC, technicianUC, adminRepo, auth, cfg.Admin.Password, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("admin api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
