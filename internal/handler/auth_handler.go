package handler

import (
	"errors"
	"net/http"

	"user_management/internal/middleware"
	"user_management/internal/model"
	"user_management/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	logger  logrus.FieldLogger
	errorResponder
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, logger logrus.FieldLogger, maxBodyBytes int64) *AuthHandler {
	return &AuthHandler{
		service:        s,
		logger:         logger,
		errorResponder: errorResponder{logger: logger, maxBytes: maxBodyBytes},
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.UserPayload
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err, "Registration failed", nil)
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "Registration failed", payloadFields(req))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role.Name(),
	}).Info("user registered")
	respondSuccess(c, http.StatusCreated, "Registration successful", newAuthData(user, token))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err, "Login failed", nil)
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.WithFields(logrus.Fields{
				"email":      req.Email,
				"ip":         c.ClientIP(),
				"user_agent": c.Request.UserAgent(),
			}).Warn("failed login attempt")
		}
		h.fail(c, err, "Login failed", map[string]any{"email": req.Email})
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user logged in")
	respondSuccess(c, http.StatusOK, "Login successful", newAuthData(user, token))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthenticated, "Logout failed", nil)
		return
	}

	if err := h.service.Logout(c.Request.Context(), user, middleware.CurrentToken(c)); err != nil {
		h.fail(c, err, "Logout failed", nil)
		return
	}
	respondSuccess(c, http.StatusOK, "Logout successful", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthenticated, "Failed to retrieve user data", nil)
		return
	}

	user, err := h.service.Me(c.Request.Context(), current)
	if err != nil {
		h.fail(c, err, "Failed to retrieve user data", nil)
		return
	}
	respondSuccess(c, http.StatusOK, "User data retrieved successfully", model.NewUserResponse(user))
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, service.ErrUnauthenticated, "Token refresh failed", nil)
		return
	}

	token, err := h.service.Refresh(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err, "Token refresh failed", nil)
		return
	}
	respondSuccess(c, http.StatusOK, "Token refreshed successfully", newAuthData(user, token))
}

// RegisterAuthRoutes registers auth routes. public guards register and login,
// protected guards the routes that need a token.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, public, protected []gin.HandlerFunc) {
	guest := rg.Group("/auth", public...)
	{
		guest.POST("/register", h.Register)
		guest.POST("/login", h.Login)
	}

	authed := rg.Group("/auth", protected...)
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.POST("/refresh", h.Refresh)
	}
}
