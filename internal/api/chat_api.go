package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"` // empty starts a new conversation
	Message   string `json:"message"`
}

// handleChat runs one turn of the scheduling conversation.
// POST /api/chat
func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req ChatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	resp, err := s.chat.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
