package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/institute-atri/blog-backend-sub000/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticate inspects the Authorization header on every request. A request
// without the header passes through anonymously; route guards decide whether
// anonymous access is acceptable. A request that does present a token is
// evaluated fully, and any rejection halts the request. The filter fails
// closed: a bad token never falls through to the handler as anonymous.
func Authenticate(tokens *usecase.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		reqCtx := GetRequestContext(c)
		identity, err := tokens.Validate(c.Request.Context(), token, reqCtx.IP, reqCtx.UserAgent)
		if err != nil {
			// Validator infrastructure fault. Still a 401: the request is not
			// authenticated, whatever the reason.
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "Token is invalid:"+token))
			return
		}
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid access token"))
			return
		}

		c.Set(IdentityKey, identity.Email)
		c.Set(IdentityRoleKey, string(identity.Role))
		reqCtx.Email = identity.Email

		c.Next()
	}
}

// RequireIdentity guards routes that need an authenticated caller. It runs
// after Authenticate and only checks that an identity was attached.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetAuthenticatedEmail(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}
		c.Next()
	}
}

// GetAuthenticatedEmail retrieves the authenticated account email from context.
func GetAuthenticatedEmail(c *gin.Context) (string, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	if email, ok := value.(string); ok && email != "" {
		return email, true
	}

	return "", false
}

// GetAuthenticatedRole retrieves the authenticated account role from context.
func GetAuthenticatedRole(c *gin.Context) (string, bool) {
	value, exists := c.Get(IdentityRoleKey)
	if !exists {
		return "", false
	}

	if role, ok := value.(string); ok && role != "" {
		return role, true
	}

	return "", false
}
