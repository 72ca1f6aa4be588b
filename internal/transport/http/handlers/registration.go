package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/middleware"
	"github.com/institute-atri/blog-backend-sub000/internal/usecase"
)

// RegistrationHandler exposes the account creation endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds the registration route.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
}

func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	user, err := h.registration.Register(
		c.Request.Context(),
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.DisplayName),
		req.Password,
		reqCtx.IP,
	)
	if err != nil {
		status, message := registrationStatus(err)
		c.JSON(status, NewErrorResponse(c, message))
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		User:    summarizeUser(user),
		Message: "account created",
	})
}

// registrationStatus translates registration failures to the HTTP surface.
// Anything unrecognized stays a 500 with no detail leaked.
func registrationStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrTooManyRequests):
		return http.StatusTooManyRequests, "too many registrations from this address"
	case errors.Is(err, usecase.ErrPasswordPolicyViolation):
		return http.StatusBadRequest, "password does not meet requirements"
	case errors.Is(err, usecase.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	default:
		return http.StatusInternalServerError, "registration failed"
	}
}
