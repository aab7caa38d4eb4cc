package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
)

// ActorLoader returns a user with roles and effective permissions populated.
type ActorLoader interface {
	LoadActor(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// LoadActor fetches the caller's access snapshot once per request. Every
// decision in the request is made against this snapshot.
func LoadActor(loader ActorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		actor, err := loader.LoadActor(c.Request.Context(), id)
		if err != nil {
			if apperr.IsNotFound(err) {
				response.Unauthorized(c, "account no longer exists")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		c.Set(ContextActor, actor)
		c.Next()
	}
}

// Actor returns the snapshot stored by LoadActor, or nil.
func Actor(c *gin.Context) *models.User {
	v, ok := c.Get(ContextActor)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
