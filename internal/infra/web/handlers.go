package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telegram-fieldops-dispatch/internal/domain"
	"telegram-fieldops-dispatch/internal/domain/model"
	"telegram-fieldops-dispatch/internal/domain/ports/repository"
	"telegram-fieldops-dispatch/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mapDomainError translates domain sentinels into HTTP status codes.
func mapDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrStateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		admin, err := s.admins.FindByUsername(r.Context(), repository.NoTX, req.Username)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if s.adminPassword == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPassword)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token, err := s.auth.Mint(w, admin.Username, string(admin.Role))
		if err != nil {
			s.log.Error().Err(err).Msg("token mint failed")
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

type jobCreateRequest struct {
	Kind        string `json:"kind"`
	SubCategory string `json:"sub_category"`
	Address     string `json:"address"`
	CustomerRef string `json:"customer_ref"`
}

// jobResponse pairs the stored job with the dispatch fan-out outcome so the
// operator can see how many technicians were reached.
type jobResponse struct {
	Job      *model.Job            `json:"job"`
	Dispatch *model.DispatchResult `json:"dispatch,omitempty"`
}

func jobCreateHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		job, dispatch, err := jobUC.Create(r.Context(), usecase.CreateJobParams{
			Kind:        req.Kind,
			SubCategory: req.SubCategory,
			Address:     req.Address,
			CustomerRef: req.CustomerRef,
		})
		if err != nil {
			mapDomainError(w, err, "Failed to create job")
			return
		}
		writeJSON(w, http.StatusCreated, jobResponse{Job: job, Dispatch: dispatch})
	}
}

func jobGetHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobUC.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			mapDomainError(w, err, "Failed to get job")
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{Job: job})
	}
}

func jobApproveHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, dispatch, err := jobUC.Approve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			mapDomainError(w, err, "Failed to approve job")
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{Job: job, Dispatch: dispatch})
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func jobRejectHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		job, err := jobUC.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			mapDomainError(w, err, "Failed to reject job")
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{Job: job})
	}
}

func jobCancelHandler(jobUC usecase.JobUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		job, err := jobUC.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			mapDomainError(w, err, "Failed to cancel job")
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{Job: job})
	}
}

func registrationsPendingHandler(registrationUC usecase.RegistrationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := registrationUC.ListPending(r.Context())
		if err != nil {
			http.Error(w, "Failed to list registrations", http.StatusInternalServerError)
			return
		}
		response := struct {
			Data []*model.Registration `json:"data"`
		}{Data: pending}
		writeJSON(w, http.StatusOK, response)
	}
}

type registrationApproveRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func registrationApproveHandler(registrationUC usecase.RegistrationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registrationApproveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		tech, err := registrationUC.Approve(r.Context(), chi.URLParam(r, "id"), req.FullName, req.Phone)
		if err != nil {
			mapDomainError(w, err, "Failed to approve registration")
			return
		}
		writeJSON(w, http.StatusOK, tech)
	}
}

func registrationRejectHandler(registrationUC usecase.RegistrationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Reason == "" {
			req.Reason = "rejected by admin"
		}

		reg, err := registrationUC.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			mapDomainError(w, err, "Failed to reject registration")
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

func technicianDeactivateHandler(technicianUC usecase.TechnicianUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := technicianUC.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
			mapDomainError(w, err, "Failed to deactivate technician")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func techniciansListHandler(technicianUC usecase.TechnicianUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techs, err := technicianUC.ListDispatchable(r.Context())
		if err != nil {
			http.Error(w, "Failed to list technicians", http.StatusInternalServerError)
			return
		}
		total, err := technicianUC.Count(r.Context())
		if err != nil {
			http.Error(w, "Failed to count technicians", http.StatusInternalServerError)
			return
		}
		response := struct {
			Data  []*model.Technician `json:"data"`
			Total int                 `json:"total"`
		}{Data: techs, Total: total}
		writeJSON(w, http.StatusOK, response)
	}
}
