package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/usecase"
)

// Server is the admin HTTP API. Operators create and approve jobs here; the
// chat side is technician-facing only.
type Server struct {
	jobUC          usecase.JobUseCase
	registrationUC usecase.RegistrationUseCase
	technicianUC   usecase.TechnicianUseCase
	admins         repository.AdminRepository
	auth           *AuthManager
	adminPassword  string
	log            *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	registrationUC usecase.RegistrationUseCase,
	technicianUC usecase.TechnicianUseCase,
	admins repository.AdminRepository,
	auth *AuthManager,
	adminPassword string,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		jobUC:          jobUC,
		registrationUC: registrationUC,
		technicianUC:   technicianUC,
		admins:         admins,
		auth:           auth,
		adminPassword:  adminPassword,
		log:            &compLog,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.loginHandler())
		r.Post("/logout", s.logoutHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/jobs", jobCreateHandler(s.jobUC))
			r.Get("/jobs/{id}", jobGetHandler(s.jobUC))
			r.Post("/jobs/{id}/approve", jobApproveHandler(s.jobUC))
			r.Post("/jobs/{id}/reject", jobRejectHandler(s.jobUC))
			r.Post("/jobs/{id}/cancel", jobCancelHandler(s.jobUC))

			r.Get("/registrations/pending", registrationsPendingHandler(s.registrationUC))
			r.Post("/registrations/{id}/approve", registrationApproveHandler(s.registrationUC))
			r.Post("/registrations/{id}/reject", registrationRejectHandler(s.registrationUC))

			r.Get("/technicians", techniciansListHandler(s.technicianUC))
			r.Post("/technicians/{id}/deactivate", technicianDeactivateHandler(s.technicianUC))
		})
	})

	return r
}

// authMiddleware requires a valid admin session (JWT cookie or bearer token).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != "admin" && claims.Role != "superadmin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
