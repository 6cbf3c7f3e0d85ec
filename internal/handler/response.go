package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logger.Base().Error("Failed to encode response", zap.Error(err))
		}
	}
}

// writeError translates the domain error taxonomy to an HTTP status and
// writes an error body.
func writeError(w http.ResponseWriter, err error) {
	var extErr *domain.ExternalServiceError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.As(err, &extErr):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
