package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lightdark-study/internal/apperrors"
	"lightdark-study/internal/handlers"
	"lightdark-study/internal/session"
)

// SessionBinding rejects requests from a browser whose cookie names a run
// other than the current one, e.g. a tab left open across a reset.
func SessionBinding(log *zap.Logger, ctrl *session.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		epoch, _ := sessions.Default(c).Get(handlers.EpochSessionKey).(string)
		if err := ctrl.CheckEpoch(epoch); err != nil {
			log.Warn("Rejected request from stale session",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": apperrors.ErrStaleSession.Error()})
			return
		}
		c.Next()
	}
}

// DebugOnly hides a route unless debug tooling is enabled for the session.
func DebugOnly(ctrl *session.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctrl.Debug() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": apperrors.ErrDebugDisabled.Error()})
			return
		}
		c.Next()
	}
}
