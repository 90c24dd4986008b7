package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/types"
	"go.uber.org/zap"
)

// UserDirectory defines the identity reads and contact update the user
// routes need. Satisfied by store.IdentityRepository.
type UserDirectory interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	UpdateContact(ctx context.Context, id int, name, email, phone string) error
}

// UserHandler provides identity lookup and account maintenance endpoints.
type UserHandler struct {
	users  UserDirectory
	auth   *services.AuthService
	logger *zap.Logger
	dev    bool
}

func NewUserHandler(users UserDirectory, auth *services.AuthService, logger *zap.Logger, dev bool) *UserHandler {
	return &UserHandler{users: users, auth: auth, logger: logger, dev: dev}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/change-password", handler.ChangePassword)
	r.Get("/email/{email}", handler.GetByEmail)
	r.Get("/{userID}", handler.GetByID)
	r.Put("/{userID}", handler.Update)
}

func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}
	writeData(w, http.StatusOK, user)
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Email == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "Name, email, and phone are required")
		return
	}

	if err := h.users.UpdateContact(r.Context(), id, req.Name, req.Email, req.Phone); err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "User updated successfully")
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.auth.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

func parseIDParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}
