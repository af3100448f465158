package api

import (
	"errors"
	"net/http"

	"github.com/aiscribe/scribe/internal/ai"
	"github.com/aiscribe/scribe/internal/assistant"
	"github.com/aiscribe/scribe/internal/credentials"
)

// ---------------------------------------------------------------------------
// POST /api/ai/{action}: run an AI action against the map
// ---------------------------------------------------------------------------

type aiRunRequest struct {
	FocusNodeID string `json:"focusNodeId"`
}

type aiRunResponse struct {
	Outcome *assistant.Outcome `json:"outcome"`
	State   assistant.State    `json:"state"`
}

func (s *Server) handleAIRun(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "AI_NOT_CONFIGURED",
			"no AI provider is configured")
		return
	}

	action, err := ai.ParseAction(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ACTION", err.Error())
		return
	}

	var req aiRunRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}

	out, err := s.assistant.Run(r.Context(), action, req.FocusNodeID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, aiRunResponse{Outcome: out, State: s.assistant.State()})
	case errors.Is(err, assistant.ErrBusy):
		writeError(w, http.StatusConflict, "AI_BUSY", "an AI action is already running")
	case errors.Is(err, assistant.ErrNoMap):
		writeError(w, http.StatusConflict, "NO_MAP", "start a map before using AI actions")
	case ai.IsMissingCredential(err):
		writeError(w, http.StatusPreconditionRequired, "CREDENTIAL_REQUIRED",
			"an API key is required; set one with PUT /api/credentials")
	default:
		writeError(w, http.StatusBadGateway, "AI_FAILED", assistant.FailureMessage)
	}
}

// ---------------------------------------------------------------------------
// GET /api/ai/state and DELETE /api/ai/error
// ---------------------------------------------------------------------------

func (s *Server) handleAIState(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeJSON(w, http.StatusOK, assistant.State{})
		return
	}
	writeJSON(w, http.StatusOK, s.assistant.State())
}

func (s *Server) handleAIDismiss(w http.ResponseWriter, r *http.Request) {
	if s.assistant != nil {
		s.assistant.DismissError()
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// /api/credentials
// ---------------------------------------------------------------------------

type credentialRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		writeJSON(w, http.StatusOK, credentials.Status{Source: credentials.SourceNone})
		return
	}
	writeJSON(w, http.StatusOK, s.creds.Status())
}

func (s *Server) handleCredentialSet(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		writeError(w, http.StatusServiceUnavailable, "CREDENTIALS_UNAVAILABLE",
			"credential storage is not configured")
		return
	}

	var req credentialRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"invalid request body: "+err.Error())
		return
	}
	if err := s.creds.Set(r.Context(), req.Key); err != nil {
		if errors.Is(err, credentials.ErrEmptyKey) {
			writeError(w, http.StatusBadRequest, "EMPTY_KEY", "key must not be empty")
			return
		}
		writeError(w, http.StatusInternalServerError, "CREDENTIAL_SAVE_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.creds.Status())
}

func (s *Server) handleCredentialClear(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		writeError(w, http.StatusServiceUnavailable, "CREDENTIALS_UNAVAILABLE",
			"credential storage is not configured")
		return
	}
	if err := s.creds.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "CREDENTIAL_CLEAR_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.creds.Status())
}
