package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	ballotengine "quorum/contexts/governance/ballot-engine"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	ballotdomainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	ballothttp "quorum/contexts/governance/ballot-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ballot ballotengine.Module
}

func New(ballot ballotengine.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ballot: ballot,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/ballot/v1/window", s.handleSetWindow)
	s.mux.HandleFunc("GET /api/ballot/v1/window", s.handleGetWindow)
	s.mux.HandleFunc("POST /api/ballot/v1/resolutions", s.handleAddResolutions)
	s.mux.HandleFunc("GET /api/ballot/v1/resolutions", s.handleListResolutions)
	s.mux.HandleFunc("GET /api/ballot/v1/resolutions/{resolution_id}/results", s.handleResolutionResults)
	s.mux.HandleFunc("POST /api/ballot/v1/voters", s.handleRegisterVoters)
	s.mux.HandleFunc("GET /api/ballot/v1/voters/{address}", s.handleVoterProfile)
	s.mux.HandleFunc("GET /api/ballot/v1/voters/{address}/resolutions/{resolution_id}/voted", s.handleHasVoted)
	s.mux.HandleFunc("POST /api/ballot/v1/delegation", s.handleDelegate)
	s.mux.HandleFunc("POST /api/ballot/v1/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/ballot/v1/analytics", s.handleTurnout)
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req ballothttp.SetWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.SetWindowHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.WindowHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddResolutions(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req ballothttp.AddResolutionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.AddResolutionsHandler(r.Context(), caller, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListResolutions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.ListResolutionsHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolutionResults(w http.ResponseWriter, r *http.Request) {
	resolutionID, ok := s.resolveResolutionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.ResolutionResultsHandler(r.Context(), resolutionID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterVoters(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req ballothttp.RegisterVotersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	voters := make([]entities.Address, 0, len(req.Voters))
	for _, raw := range req.Voters {
		address, err := entities.ParseAddress(raw)
		if err != nil {
			writeBallotError(w, http.StatusBadRequest, "invalid_address", "voter address must be 20-byte hex")
			return
		}
		voters = append(voters, address)
	}

	resp, err := s.ballot.Handler.RegisterVotersHandler(r.Context(), caller, voters, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterProfile(w http.ResponseWriter, r *http.Request) {
	address, err := entities.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_address", "voter address must be 20-byte hex")
		return
	}
	resp, err := s.ballot.Handler.VoterProfileHandler(r.Context(), address)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	address, err := entities.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_address", "voter address must be 20-byte hex")
		return
	}
	resolutionID, ok := s.resolveResolutionID(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.HasVotedHandler(r.Context(), address, resolutionID)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req ballothttp.DelegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	delegate, err := entities.ParseAddress(req.Delegate)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_address", "delegate address must be 20-byte hex")
		return
	}

	if err := s.ballot.Handler.DelegateHandler(r.Context(), caller, delegate); err != nil {
		writeBallotDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req ballothttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	// Absent voter field means the caller votes for themself.
	voter := caller
	if strings.TrimSpace(req.Voter) != "" {
		parsed, err := entities.ParseAddress(req.Voter)
		if err != nil {
			writeBallotError(w, http.StatusBadRequest, "invalid_address", "voter address must be 20-byte hex")
			return
		}
		voter = parsed
	}

	resp, err := s.ballot.Handler.CastVoteHandler(r.Context(), caller, voter, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTurnout(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.TurnoutHandler(r.Context())
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resolveCaller(w http.ResponseWriter, r *http.Request) (entities.Address, bool) {
	raw := r.Header.Get("X-Caller-Address")
	if strings.TrimSpace(raw) == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_caller", "X-Caller-Address header is required")
		return entities.Address{}, false
	}
	caller, err := entities.ParseAddress(raw)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_address", "caller address must be 20-byte hex")
		return entities.Address{}, false
	}
	return caller, true
}

func (s *Server) resolveResolutionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("resolution_id")
	resolutionID, err := strconv.Atoi(raw)
	if err != nil || resolutionID < 0 {
		writeBallotError(w, http.StatusBadRequest, "invalid_resolution_id", "resolution id must be a non-negative integer")
		return 0, false
	}
	return resolutionID, true
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrLengthMismatch):
		writeBallotError(w, http.StatusBadRequest, "length_mismatch", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidWindow):
		writeBallotError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidDelegate):
		writeBallotError(w, http.StatusBadRequest, "invalid_delegate", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrWindowAlreadyOpen):
		writeBallotError(w, http.StatusConflict, "window_already_open", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrSessionNotOpen):
		writeBallotError(w, http.StatusConflict, "session_not_open", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrTallyOverflow):
		writeBallotError(w, http.StatusConflict, "tally_overflow", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrUnauthorized):
		writeBallotError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrNotAVoter):
		writeBallotError(w, http.StatusForbidden, "not_a_voter", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrNotAuthorizedForVoter):
		writeBallotError(w, http.StatusForbidden, "not_authorized_for_voter", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrResolutionOutOfRange):
		writeBallotError(w, http.StatusNotFound, "resolution_out_of_range", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrProposalOutOfRange):
		writeBallotError(w, http.StatusNotFound, "proposal_out_of_range", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVoterNotFound):
		writeBallotError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, entities.ErrInvalidAddress):
		writeBallotError(w, http.StatusBadRequest, "invalid_address", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
