package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/modules/identity"
)

// AuthHandler handles authentication HTTP endpoints
type AuthHandler struct {
	identity identity.Service
	logger   *logrus.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(identitySvc identity.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identitySvc,
		logger:   logger,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/refresh", h.Refresh)
	})
}

// RegisterRequest represents the request body for player registration
type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
}

// RefreshRequest represents the request body for token reissue
type RefreshRequest struct {
	AppToken string `json:"app_token" validate:"required"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Warn("failed to decode registration request")
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DisplayName == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "display_name is required")
		return
	}

	result, err := h.identity.Register(ctx, req.DisplayName)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Warn("registration failed")
		h.writeErrorResponse(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.logger.WithFields(logrus.Fields{"player_id": result.Player.ID}).Info("player registered via HTTP")
	h.writeSuccessResponse(w, result)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Warn("failed to decode refresh request")
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AppToken == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "app_token is required")
		return
	}

	result, err := h.identity.Reissue(ctx, req.AppToken)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Warn("token reissue failed")
		h.writeErrorResponse(w, http.StatusUnauthorized, "token reissue failed")
		return
	}

	h.logger.WithFields(logrus.Fields{"player_id": result.Player.ID}).Info("token reissued via HTTP")
	h.writeSuccessResponse(w, result)
}

func (h *AuthHandler) writeSuccessResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(AuthResponse{Success: true, Data: data}); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Error("failed to encode success response")
	}
}

func (h *AuthHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(AuthResponse{Success: false, Error: message}); err != nil {
		h.logger.WithFields(logrus.Fields{"error": err}).Error("failed to encode error response")
	}
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
