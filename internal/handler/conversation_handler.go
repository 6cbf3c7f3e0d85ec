package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/services/conversation"
)

// ConversationHandler exposes the conversation read API.
type ConversationHandler struct {
	conversations *conversation.Service
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *conversation.Service) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// SetupRoutes registers conversation routes on the keyed API subrouter.
func (h *ConversationHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/conversations", h.List).Methods("GET")
	router.HandleFunc("/conversations/{id}", h.Get).Methods("GET")
	router.HandleFunc("/conversations/{id}/messages", h.Messages).Methods("GET")
	router.HandleFunc("/conversations/{id}/status", h.Status).Methods("GET")
	router.HandleFunc("/conversations/{id}/structured-data", h.StructuredData).Methods("GET")
}

// List returns all conversations with agent and driver names.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.conversations.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns one conversation.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Messages returns a conversation's transcript messages in order.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.conversations.ListMessages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Status returns the polling view of a conversation's lifecycle state.
func (h *ConversationHandler) Status(w http.ResponseWriter, r *http.Request) {
	view, err := h.conversations.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// StructuredData returns the post-call artifacts of a conversation.
func (h *ConversationHandler) StructuredData(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conv.ID,
		"structured_data": conv.StructuredData,
		"recording_url":   conv.RecordingURL,
		"duration_ms":     conv.DurationMs,
	})
}
