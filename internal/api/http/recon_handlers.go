package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// requireAdminToken guards operator endpoints with a bearer token
// checked against the configured bcrypt hash.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminTokenHash == "" {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "operator endpoints are disabled")
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator token")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(s.adminTokenHash), []byte(token)); err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid operator token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listFailedTransfers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	entries, err := s.reconSvc.ListFailed(r.Context(), r.URL.Query().Get("filter"), limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) retryTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid entryId")
		return
	}
	entry, err := s.reconSvc.Retry(r.Context(), id, operatorFromRequest(r))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

type resolveRequest struct {
	Note string `json:"note"`
}

func (s *Server) resolveTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid entryId")
		return
	}
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.reconSvc.Resolve(r.Context(), id, operatorFromRequest(r), req.Note); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func operatorFromRequest(r *http.Request) string {
	operator := r.Header.Get("X-Operator")
	if operator == "" {
		operator = "operator"
	}
	return operator
}
