package audit

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
)

// Lister reads the trail; *Repository implements it.
type Lister interface {
	List(ctx context.Context, f Filter) ([]models.AuditLog, error)
}

// Handler serves the audit trail.
type Handler struct {
	store Lister
}

// NewHandler creates an audit handler.
func NewHandler(store Lister) *Handler {
	return &Handler{store: store}
}

// List handles GET /audit?resource=&resource_id=&actor_id=&limit=.
func (h *Handler) List(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func parseFilter(c *gin.Context) (Filter, error) {
	f := Filter{Resource: c.Query("resource")}
	v := apperr.NewValidation()
	if s := c.Query("resource_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			v.Add("resource_id", "must be a valid UUID")
		} else {
			f.ResourceID = &id
		}
	}
	if s := c.Query("actor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			v.Add("actor_id", "must be a valid UUID")
		} else {
			f.ActorID = &id
		}
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		}
		f.Limit = n
	}
	return f, v.OrNil()
}
