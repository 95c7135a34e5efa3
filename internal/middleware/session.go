package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/internal/service"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/response"
)

const (
	// SessionTokenHeader carries the stored session token.
	SessionTokenHeader = "X-Session-Token"
	// SessionUserHeader carries the stored username.
	SessionUserHeader = "X-Session-User"
	// LoginPath is where clients are sent after the session lapses.
	LoginPath = "/admin/login"

	contextDashboardKey = "dashboard"
)

// DashboardMounter hands out the per-admin dashboard controller.
type DashboardMounter interface {
	Mount(ctx context.Context, token, username string) (*service.DashboardController, error)
}

// SessionGate validates the session header pair, mounts the caller's dashboard and
// stores it on the context. The pair must belong to the JWT subject when one is present.
func SessionGate(dashboards DashboardMounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(SessionTokenHeader))
		username := strings.TrimSpace(c.GetHeader(SessionUserHeader))

		if claims := Claims(c); claims != nil && claims.Username != username {
			SessionExpired(c)
			return
		}

		ctrl, err := dashboards.Mount(c.Request.Context(), token, username)
		if err != nil {
			if errors.Is(err, appErrors.ErrSessionExpired) {
				SessionExpired(c)
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(contextDashboardKey, ctrl)
		SetCacheHit(c, ctrl.CacheHit())
		c.Next()
	}
}

// SessionExpired aborts with SESSION_EXPIRED and the login redirect.
func SessionExpired(c *gin.Context) {
	response.Error(c, appErrors.ErrSessionExpired, map[string]interface{}{"redirect": LoginPath})
	c.Abort()
}

// Dashboard returns the controller mounted by SessionGate, or nil.
func Dashboard(c *gin.Context) *service.DashboardController {
	value, exists := c.Get(contextDashboardKey)
	if !exists {
		return nil
	}
	ctrl, _ := value.(*service.DashboardController)
	return ctrl
}
