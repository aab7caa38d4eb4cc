package permissions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/validation"
)

// Handler handles permission and access-control HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a permission handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context, param, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Error(c, apperr.NotFound(resource, ""))
		return uuid.Nil, false
	}
	return id, true
}

func bindGrant(c *gin.Context) (uuid.UUID, bool) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBinding(err))
		return uuid.Nil, false
	}
	return uuid.MustParse(req.PermissionID), true
}

// List handles GET /permissions.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /permissions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "permission")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Create handles POST /permissions.
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PUT /permissions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "permission")
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	p, err := h.svc.Rename(c.Request.Context(), middleware.Actor(c), id, &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /permissions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "permission")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AccessControl handles GET /access-control.
func (h *Handler) AccessControl(c *gin.Context) {
	ac, err := h.svc.AccessControl(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ac)
}

// GrantToRole handles POST /roles/:id/permissions.
func (h *Handler) GrantToRole(c *gin.Context) {
	roleID, ok := parseID(c, "id", "role")
	if !ok {
		return
	}
	permID, ok := bindGrant(c)
	if !ok {
		return
	}
	if err := h.svc.GrantToRole(c.Request.Context(), middleware.Actor(c), roleID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RevokeFromRole handles DELETE /roles/:id/permissions/:permissionId.
func (h *Handler) RevokeFromRole(c *gin.Context) {
	roleID, ok := parseID(c, "id", "role")
	if !ok {
		return
	}
	permID, ok := parseID(c, "permissionId", "permission")
	if !ok {
		return
	}
	if err := h.svc.RevokeFromRole(c.Request.Context(), middleware.Actor(c), roleID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GrantToUser handles POST /users/:id/permissions.
func (h *Handler) GrantToUser(c *gin.Context) {
	userID, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	permID, ok := bindGrant(c)
	if !ok {
		return
	}
	if err := h.svc.GrantToUser(c.Request.Context(), middleware.Actor(c), userID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RevokeFromUser handles DELETE /users/:id/permissions/:permissionId.
func (h *Handler) RevokeFromUser(c *gin.Context) {
	userID, ok := parseID(c, "id", "user")
	if !ok {
		return
	}
	permID, ok := parseID(c, "permissionId", "permission")
	if !ok {
		return
	}
	if err := h.svc.RevokeFromUser(c.Request.Context(), middleware.Actor(c), userID, permID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
