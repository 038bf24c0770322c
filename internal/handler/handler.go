// Package handler contains the HTTP boundary: request decoding,
// validation and response shaping. Domain failures arrive as errors with
// a status code and are rendered by a single helper.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/opinio-dev/opinio/internal/logger"
	"github.com/opinio-dev/opinio/internal/service"
)

type Handler struct {
	auth     service.AuthService
	feedback service.FeedbackService
}

func New(auth service.AuthService, feedback service.FeedbackService) *Handler {
	return &Handler{auth: auth, feedback: feedback}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}
