package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/response"
)

// RequireCapability allows only actors the gate grants c.
func RequireCapability(gate *rbac.Gate, c rbac.Capability) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor := Actor(ctx)
		if actor == nil {
			response.Unauthorized(ctx, "missing user context")
			ctx.Abort()
			return
		}
		if err := gate.Authorize(actor, c); err != nil {
			response.Error(ctx, err)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
