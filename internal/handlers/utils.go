package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/internal/store"
	"go.uber.org/zap"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

// Response is the envelope carried by every reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: true, Message: message})
}

func writeResult(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// writeServiceError maps service and store errors onto the HTTP taxonomy:
// 400 validation, 401 bad credentials, 404 unknown id, 409 conflict,
// 500 otherwise. Internal errors are logged with full detail; the client
// message stays generic outside development mode.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, dev bool, err error, notFoundMessage string) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	var authErr *services.AuthorizationError
	if errors.As(err, &authErr) {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, authErr.Message)
		return
	}

	switch {
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateCollector):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage)
	default:
		logger.Error("internal error", zap.Error(err))
		message := "Internal server error"
		if dev {
			message = message + ": " + err.Error()
		}
		writeError(w, http.StatusInternalServerError, message)
	}
}

func claimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("missing claims")
	}
	return claims, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Server is running")
}

// NotFound is the catch-all for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found")
}
