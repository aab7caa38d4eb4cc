package roles

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/validation"
)

// Handler handles role HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a role handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.NotFound("role", ""))
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /roles.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /roles/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	role, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, role)
}

// Create handles POST /roles.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	role, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// Update handles PUT /roles/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	role, err := h.svc.Rename(c.Request.Context(), middleware.Actor(c), id, &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, role)
}

// Delete handles DELETE /roles/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
