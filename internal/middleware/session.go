package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admin-panel/internal/models"
	"github.com/noah-isme/sma-admin-panel/internal/service"
	appErrors "github.com/noah-isme/sma-admin-panel/pkg/errors"
	"github.com/noah-isme/sma-admin-panel/pkg/logger"
	"github.com/noah-isme/sma-admin-panel/pkg/response"
)

// ContextUserKey is the gin context key storing the verified identity.
const ContextUserKey = "currentUser"

// CarrierLoader returns the session carrier for the current request.
type CarrierLoader func(c *gin.Context) service.SessionCarrier

type sessionVerifier interface {
	Verify(ctx context.Context, carrier service.SessionCarrier) (*models.IdentitySnapshot, error)
}

// RequireSession lets the request through only with a live session. Browsers
// are redirected to loginPath; API clients get a 401.
func RequireSession(verifier sessionVerifier, load CarrierLoader, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.Verify(c.Request.Context(), load(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if identity == nil {
			if wantsHTML(c) && loginPath != "" {
				c.Redirect(http.StatusSeeOther, loginPath)
				c.Abort()
				return
			}
			response.Error(c, appErrors.ErrSessionExpired)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, identity)
		logger.SetUserID(c, identity.UserID)
		c.Next()
	}
}

// RequireRoles allows only identities whose role name is one of roles.
// It must run after RequireSession.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		identity := IdentityFromContext(c)
		if identity == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[identity.Role()]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFromContext returns the identity stored by RequireSession.
func IdentityFromContext(c *gin.Context) *models.IdentitySnapshot {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*models.IdentitySnapshot)
	if !ok {
		return nil
	}
	return identity
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
