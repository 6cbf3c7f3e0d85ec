package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/services/call"
)

// CallHandler exposes the call-start and manual-end triggers.
type CallHandler struct {
	calls *call.Service
}

// NewCallHandler creates a new call handler
func NewCallHandler(calls *call.Service) *CallHandler {
	return &CallHandler{calls: calls}
}

// SetupRoutes registers call routes on the keyed API subrouter.
func (h *CallHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/calls/start", h.StartCheckIn).Methods("POST")
	router.HandleFunc("/calls/{conversation_id}/end", h.EndCall).Methods("POST")
}

// StartCheckIn starts a check-in call: it resolves the agent and driver,
// creates the conversation and initiates the provider call.
func (h *CallHandler) StartCheckIn(w http.ResponseWriter, r *http.Request) {
	var req call.StartCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}
	if req.AgentID == "" || req.LoadNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "agent_id and load_number are required"})
		return
	}

	conv, err := h.calls.StartCheckIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// EndCall triggers the manual end-of-call path. The operator always sees
// success once the conversation exists; enrichment failures degrade
// internally to a bare status flip.
func (h *CallHandler) EndCall(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["conversation_id"]

	if err := h.calls.EndCall(r.Context(), conversationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Call ended, processing initiated",
	})
}
