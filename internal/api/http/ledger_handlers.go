package httpapi

import (
	"net/http"

	appEngine "github.com/arena-ledger/arena-ledger/internal/application/engine"
)

type creditRequest struct {
	VenueID uint64 `json:"venueId"`
	Amount  uint64 `json:"amount"`
	Token   string `json:"token"`
}

func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.engineSvc.Credit(r.Context(), appEngine.CreditInput{
		Caller:  callerFromRequest(r),
		VenueID: req.VenueID,
		Amount:  req.Amount,
		Token:   req.Token,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type primarySaleRequest struct {
	Gross          uint64 `json:"gross"`
	Token          string `json:"token"`
	Referrer       string `json:"referrer,omitempty"`
	DistributePool bool   `json:"distributePool,omitempty"`
}

func (s *Server) primarySale(w http.ResponseWriter, r *http.Request) {
	var req primarySaleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.engineSvc.PrimarySale(r.Context(), appEngine.PrimarySaleInput{
		Caller:         callerFromRequest(r),
		Gross:          req.Gross,
		Token:          req.Token,
		Referrer:       req.Referrer,
		DistributePool: req.DistributePool,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type distributePoolRequest struct {
	Token string `json:"token"`
}

func (s *Server) distributePool(w http.ResponseWriter, r *http.Request) {
	var req distributePoolRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.engineSvc.DistributePool(r.Context(), appEngine.DistributePoolInput{
		Caller: callerFromRequest(r),
		Token:  req.Token,
	}); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "distributed"})
}

func (s *Server) getPlatformPool(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pool":            s.engineSvc.PlatformPool(),
		"treasuryAccrued": s.engineSvc.TreasuryBalance(),
		"fundedVenues":    s.engineSvc.FundedVenueCount(),
	})
}

type settleTreasuryRequest struct {
	Token string `json:"token"`
}

func (s *Server) settleTreasury(w http.ResponseWriter, r *http.Request) {
	var req settleTreasuryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.engineSvc.SettleTreasury(r.Context(), appEngine.SettleTreasuryInput{
		Caller: callerFromRequest(r),
		Token:  req.Token,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getVenueBalance(w http.ResponseWriter, r *http.Request) {
	venueID, err := parseUint64Param(r, "venueId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid venueId")
		return
	}
	respondJSON(w, http.StatusOK, s.engineSvc.VenueBalance(venueID))
}

type setOwnerRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) setVenueOwner(w http.ResponseWriter, r *http.Request) {
	venueID, err := parseUint64Param(r, "venueId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid venueId")
		return
	}
	var req setOwnerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.engineSvc.SetVenueOwner(r.Context(), appEngine.SetVenueOwnerInput{
		Caller:  callerFromRequest(r),
		VenueID: venueID,
		Owner:   req.Owner,
	}); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
