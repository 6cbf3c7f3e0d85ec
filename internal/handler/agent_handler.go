package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/services/agent"
)

// AgentHandler exposes agent management routes.
type AgentHandler struct {
	agents *agent.Service
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents *agent.Service) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// SetupRoutes registers agent routes on the keyed API subrouter.
func (h *AgentHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/agents", h.Create).Methods("POST")
	router.HandleFunc("/agents", h.List).Methods("GET")
	router.HandleFunc("/agents/{id}", h.Get).Methods("GET")
	router.HandleFunc("/agents/{id}", h.Update).Methods("PUT")
	router.HandleFunc("/agents/{id}", h.Delete).Methods("DELETE")
	router.HandleFunc("/agents/{id}/provision", h.Provision).Methods("POST")
}

// CreateAgentRequest is the payload for creating an agent.
type CreateAgentRequest struct {
	Name              string `json:"name"`
	Prompts           string `json:"prompts"`
	AdditionalDetails string `json:"additional_details,omitempty"`
}

// Create persists a new agent.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}
	if req.Name == "" || req.Prompts == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "name and prompts are required"})
		return
	}

	created, err := h.agents.Create(r.Context(), req.Name, req.Prompts, req.AdditionalDetails)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// List returns all agents with usage statistics.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.agents.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Get returns one agent.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.agents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// Update applies the provided fields to an agent.
func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req agent.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	updated, err := h.agents.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes an agent.
func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Provision creates the agent on the voice-provider side.
func (h *AgentHandler) Provision(w http.ResponseWriter, r *http.Request) {
	provisioned, err := h.agents.Provision(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provisioned)
}
