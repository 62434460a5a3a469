package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appEngine "github.com/arena-ledger/arena-ledger/internal/application/engine"
)

func (s *Server) getWaitingList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"waiting": s.engineSvc.WaitingList(),
	})
}

type claimRequest struct {
	Wallet string `json:"wallet"`
}

func (s *Server) requestClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	wallet := req.Wallet
	if wallet == "" {
		wallet = callerFromRequest(r)
	}
	result, err := s.engineSvc.RequestClaim(r.Context(), wallet)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type confirmRequest struct {
	Winner string `json:"winner"`
}

func (s *Server) confirmClaim(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.engineSvc.ConfirmClaim(r.Context(), appEngine.ConfirmClaimInput{
		Caller: callerFromRequest(r),
		Winner: req.Winner,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getWalletRewards(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	if wallet == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "wallet is required")
		return
	}
	respondJSON(w, http.StatusOK, s.engineSvc.RewardsOf(wallet))
}
