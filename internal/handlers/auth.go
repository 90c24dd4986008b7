package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/types"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

// Claims are the session-token claims: identity, role, and location.
type Claims struct {
	UserID   int        `json:"id"`
	Email    string     `json:"email"`
	Role     types.Role `json:"role"`
	District string     `json:"district,omitempty"`
	State    string     `json:"state,omitempty"`
	jwt.RegisteredClaims
}

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	registration *services.RegistrationService
	auth         *services.AuthService
	secret       []byte
	logger       *zap.Logger
	dev          bool
}

func NewAuthHandler(registration *services.RegistrationService, auth *services.AuthService, jwtSecret string, logger *zap.Logger, dev bool) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		auth:         auth,
		secret:       []byte(jwtSecret),
		logger:       logger,
		dev:          dev,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
}

// RequireAuth enforces bearer-token authentication and injects the claims
// into the request context. A missing token is 401, an invalid one 403;
// either short-circuits before any business logic runs.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := parseClaims(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusForbidden, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type RegisterRequest struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	HospitalName string  `json:"hospitalName"`
	SecretKey    string  `json:"secretKey"`
	RegisteredBy string  `json:"registeredBy"`
	District     *string `json:"district"`
	State        *string `json:"state"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the identity summary plus the session token.
type LoginResponse struct {
	types.UserSummary
	Token string `json:"token"`
}

// Register creates a profile-less account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.registration.Register(r.Context(), services.RegisterInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Password:     req.Password,
		Role:         types.Role(req.Role),
		HospitalName: req.HospitalName,
		SecretKey:    req.SecretKey,
		RegisteredBy: req.RegisteredBy,
		District:     req.District,
		State:        req.State,
	})
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}

	writeResult(w, http.StatusCreated, "User registered successfully", map[string]any{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}

// Login verifies credentials and returns a signed session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}

	token, err := issueToken(user, h.secret)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, "User not found")
		return
	}

	writeResult(w, http.StatusOK, "Login successful", LoginResponse{
		UserSummary: user.Summary(),
		Token:       token,
	})
}

func issueToken(user types.User, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	if user.District != nil {
		claims.District = *user.District
	}
	if user.State != nil {
		claims.State = *user.State
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseClaims(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID < 1 {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
