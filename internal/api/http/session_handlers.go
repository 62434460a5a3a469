package httpapi

import (
	"net/http"

	appEngine "github.com/arena-ledger/arena-ledger/internal/application/engine"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

type soloSessionRequest struct {
	VenueID     uint64 `json:"venueId"`
	Player      string `json:"player"`
	CharacterID uint64 `json:"characterId"`
	EquipmentID uint64 `json:"equipmentId"`
}

func (s *Server) createSoloSession(w http.ResponseWriter, r *http.Request) {
	var req soloSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	created, err := s.engineSvc.CreateSoloSession(r.Context(), appEngine.CreateSoloSessionInput{
		Caller:      callerFromRequest(r),
		VenueID:     req.VenueID,
		Player:      req.Player,
		CharacterID: req.CharacterID,
		EquipmentID: req.EquipmentID,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type teamSessionRequest struct {
	VenueID      uint64   `json:"venueId"`
	Participants []string `json:"participants"`
	CharacterIDs []uint64 `json:"characterIds"`
	EquipmentIDs []uint64 `json:"equipmentIds"`
}

func (s *Server) createTeamSession(w http.ResponseWriter, r *http.Request) {
	var req teamSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	created, err := s.engineSvc.CreateTeamSession(r.Context(), appEngine.CreateTeamSessionInput{
		Caller:       callerFromRequest(r),
		VenueID:      req.VenueID,
		Participants: req.Participants,
		CharacterIDs: req.CharacterIDs,
		EquipmentIDs: req.EquipmentIDs,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type multiplayerSessionRequest struct {
	VenueID      uint64           `json:"venueId"`
	Participants []string         `json:"participants"`
	LineUps      []session.LineUp `json:"lineUps"`
}

func (s *Server) createMultiplayerSession(w http.ResponseWriter, r *http.Request) {
	var req multiplayerSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	created, err := s.engineSvc.CreateMultiplayerSession(r.Context(), appEngine.CreateMultiplayerSessionInput{
		Caller:       callerFromRequest(r),
		VenueID:      req.VenueID,
		Participants: req.Participants,
		LineUps:      req.LineUps,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type updateSessionRequest struct {
	Outcome         string   `json:"outcome"`
	DeclaredWinners []uint64 `json:"declaredWinners"`
	Completed       bool     `json:"completed"`
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint64Param(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid sessionId")
		return
	}
	var req updateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	updated, err := s.engineSvc.UpdateSession(r.Context(), appEngine.UpdateSessionInput{
		Caller:          callerFromRequest(r),
		SessionID:       id,
		Outcome:         session.Outcome(req.Outcome),
		DeclaredWinners: req.DeclaredWinners,
		Completed:       req.Completed,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint64Param(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid sessionId")
		return
	}
	sess := s.engineSvc.SessionByID(id)
	if sess == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) listActiveSessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 50, 200)

	var (
		sessions []*session.Session
		total    int
	)
	switch {
	case r.URL.Query().Get("venueId") != "":
		venueID, err := parseUint64(r.URL.Query().Get("venueId"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid venueId")
			return
		}
		sessions, total = s.engineSvc.ActiveSessionsByVenue(venueID, limit, offset)
	case r.URL.Query().Get("participant") != "":
		sessions, total = s.engineSvc.ActiveSessionsByParticipant(r.URL.Query().Get("participant"), limit, offset)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "venueId or participant is required")
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) escrowSessionWinners(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint64Param(r, "sessionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid sessionId")
		return
	}
	result, err := s.engineSvc.EscrowSessionWinners(r.Context(), appEngine.EscrowSessionWinnersInput{
		Caller:    callerFromRequest(r),
		SessionID: id,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
