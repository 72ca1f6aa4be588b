package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/institute-atri/blog-backend-sub000/internal/core/domain"
	"github.com/institute-atri/blog-backend-sub000/internal/transport/http/middleware"
	"github.com/institute-atri/blog-backend-sub000/internal/usecase"
)

// AuthHandler exposes login, refresh, and logout endpoints.
type AuthHandler struct {
	login  *usecase.LoginService
	tokens *usecase.TokenService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService, tokens *usecase.TokenService) *AuthHandler {
	return &AuthHandler{login: login, tokens: tokens}
}

// RegisterRoutes binds authentication routes. Each credential endpoint takes
// its own optional throttle; nil means unthrottled.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginGuard, refreshGuard gin.HandlerFunc) {
	login := make([]gin.HandlerFunc, 0, 2)
	if loginGuard != nil {
		login = append(login, loginGuard)
	}
	login = append(login, h.loginHandler)

	refresh := make([]gin.HandlerFunc, 0, 2)
	if refreshGuard != nil {
		refresh = append(refresh, refreshGuard)
	}
	refresh = append(refresh, h.refresh)

	r.POST("/login", login...)
	r.POST("/refresh", refresh...)
	r.POST("/logout", middleware.RequireIdentity(), h.logout)
}

func (h *AuthHandler) loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	outcome, err := h.login.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password, reqCtx.IP, reqCtx.UserAgent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	h.respondOutcome(c, outcome)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req TokenRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	outcome, err := h.login.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken), reqCtx.IP, reqCtx.UserAgent)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "token refresh failed"))
		return
	}

	h.respondOutcome(c, outcome)
}

func (h *AuthHandler) logout(c *gin.Context) {
	email, ok := middleware.GetAuthenticatedEmail(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.login.Logout(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// respondOutcome maps a login outcome to the HTTP surface. The rejection
// branches stay deliberately vague.
func (h *AuthHandler) respondOutcome(c *gin.Context, outcome domain.LoginOutcome) {
	switch outcome.Kind {
	case domain.LoginSuccess:
		c.JSON(http.StatusOK, LoginResponse{
			AccessToken:  outcome.AccessToken,
			RefreshToken: outcome.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(h.tokens.AccessTTL().Seconds()),
			User:         summarizeUser(outcome.User),
		})
	case domain.LoginLocked:
		c.JSON(http.StatusLocked, LockedResponse{
			Error:       "account temporarily locked",
			LockedUntil: outcome.LockedUntil,
			TraceID:     middleware.GetTraceID(c),
		})
	case domain.LoginRateLimited:
		c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many requests"))
	default:
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	}
}
