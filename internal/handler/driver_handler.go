package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
)

// DriverHandler exposes driver management routes.
type DriverHandler struct {
	drivers *repository.DriverRepository
}

// NewDriverHandler creates a new driver handler
func NewDriverHandler(drivers *repository.DriverRepository) *DriverHandler {
	return &DriverHandler{drivers: drivers}
}

// SetupRoutes registers driver routes on the keyed API subrouter.
func (h *DriverHandler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/drivers", h.Create).Methods("POST")
	router.HandleFunc("/drivers", h.List).Methods("GET")
	router.HandleFunc("/drivers/{id}", h.Get).Methods("GET")
	router.HandleFunc("/drivers/{id}", h.Update).Methods("PUT")
	router.HandleFunc("/drivers/{id}", h.Delete).Methods("DELETE")
}

// DriverRequest is the payload for creating or updating a driver.
type DriverRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Create persists a new driver.
func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req DriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}
	if req.Name == "" || req.PhoneNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "name and phone_number are required"})
		return
	}

	driver := &domain.Driver{Name: req.Name, PhoneNumber: req.PhoneNumber}
	if err := h.drivers.Create(r.Context(), driver); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, driver)
}

// List returns all drivers.
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.drivers.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

// Get returns one driver.
func (h *DriverHandler) Get(w http.ResponseWriter, r *http.Request) {
	driver, err := h.drivers.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

// Update applies fields to a driver.
func (h *DriverHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req DriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.PhoneNumber != "" {
		updates["phone_number"] = req.PhoneNumber
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "No fields to update"})
		return
	}

	driver, err := h.drivers.Update(r.Context(), mux.Vars(r)["id"], updates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

// Delete removes a driver.
func (h *DriverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.drivers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
