package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appEngine "github.com/arena-ledger/arena-ledger/internal/application/engine"
	appRecon "github.com/arena-ledger/arena-ledger/internal/application/recon"
	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engineSvc      *appEngine.Service
	reconSvc       *appRecon.Service
	eventHub       *sse.Hub
	adminTokenHash string
}

func NewServer(engineSvc *appEngine.Service, reconSvc *appRecon.Service, eventHub *sse.Hub, adminTokenHash string) *Server {
	return &Server{
		engineSvc:      engineSvc,
		reconSvc:       reconSvc,
		eventHub:       eventHub,
		adminTokenHash: adminTokenHash,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/solo", s.createSoloSession)
			r.Post("/team", s.createTeamSession)
			r.Post("/multiplayer", s.createMultiplayerSession)
			r.Get("/", s.listActiveSessions)
			r.Get("/{sessionId}", s.getSession)
			r.Post("/{sessionId}/update", s.updateSession)
			r.Post("/{sessionId}/escrow", s.escrowSessionWinners)
		})

		r.Route("/venues/{venueId}", func(r chi.Router) {
			r.Get("/balance", s.getVenueBalance)
			r.Post("/owner", s.setVenueOwner)
		})

		r.Post("/deposits", s.credit)
		r.Post("/sales", s.primarySale)
		r.Get("/pool", s.getPlatformPool)
		r.Post("/pool/distribute", s.distributePool)
		r.Post("/treasury/settle", s.settleTreasury)

		r.Route("/escrow", func(r chi.Router) {
			r.Get("/waiting", s.getWaitingList)
			r.Post("/claims", s.requestClaim)
			r.Post("/confirmations", s.confirmClaim)
		})

		r.Get("/wallets/{wallet}/rewards", s.getWalletRewards)
		r.Get("/events", s.streamEvents)

		r.Route("/recon", func(r chi.Router) {
			r.Use(s.requireAdminToken)
			r.Get("/failed", s.listFailedTransfers)
			r.Post("/{entryId}/retry", s.retryTransfer)
			r.Post("/{entryId}/resolve", s.resolveTransfer)
		})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondEngineError maps the engine error taxonomy onto HTTP statuses.
// Transfer failures get their own status because engine state has
// already moved by the time they surface.
func respondEngineError(w http.ResponseWriter, err error) {
	var transferErr *payment.TransferError
	switch {
	case errors.Is(err, appEngine.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, appEngine.ErrValidation):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, asset.ErrInsufficientFunds):
		respondError(w, http.StatusConflict, "INSUFFICIENT_FUNDS", err.Error())
	case errors.As(err, &transferErr):
		respondError(w, http.StatusBadGateway, "TRANSFER_FAILED", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseUint64Param(r *http.Request, key string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, key), 10, 64)
}

func parseUint64(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// callerFromRequest identifies the wallet acting on a request. Role
// checks happen inside the engine, not here.
func callerFromRequest(r *http.Request) string {
	return r.Header.Get("X-Caller-Wallet")
}
