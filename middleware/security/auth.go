package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sec "WProject/tools/security"
	"WProject/tools/errs"
)

// Context keys the REST handlers read the verified identity from.
const (
	CtxUserIDKey   = "authUserId"
	CtxUserNameKey = "authUserName"
)

// Middleware verifies the Authorization bearer token and attaches the
// principal to the request context. Invalid or missing credentials abort with
// an unauthorized body; handlers never see the request.
func Middleware(opts sec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}
		principal, err := sec.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized.WithDetail(err.Error()))
			return
		}
		c.Set(CtxUserIDKey, principal.UserID)
		c.Set(CtxUserNameKey, principal.UserName)
		c.Next()
	}
}

// UserID reads the authenticated user from the gin context.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func extractBearer(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
