package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/validation"
)

// MeResponse is the body of GET /me.
type MeResponse struct {
	*models.User
	HighestRole string `json:"highest_role"`
}

// Handler handles account HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a user handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperr.NotFound("user", ""))
		return uuid.Nil, false
	}
	return id, true
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	actor := middleware.Actor(c)
	response.OK(c, MeResponse{User: actor, HighestRole: h.svc.HighestRole(actor)})
}

// Can handles GET /me/can?resource=&action=.
func (h *Handler) Can(c *gin.Context) {
	resource, action := c.Query("resource"), c.Query("action")
	if resource == "" || action == "" {
		v := apperr.NewValidation()
		if resource == "" {
			v.Add("resource", "is required")
		}
		if action == "" {
			v.Add("action", "is required")
		}
		response.Error(c, v)
		return
	}
	allowed, err := h.svc.Gate().AllowsAction(middleware.Actor(c), resource, action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"resource": resource, "action": action, "allowed": allowed})
}

// CanAssignRole handles GET /roles/assignable/:name.
func (h *Handler) CanAssignRole(c *gin.Context) {
	name := c.Param("name")
	ok, err := h.svc.CanAssignRole(c.Request.Context(), middleware.Actor(c), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"role": name, "assignable": ok})
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]models.UserPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	response.OK(c, out)
}

// GetByID handles GET /users/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Create handles POST /users.
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	u, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u.ToPublic())
}

// Update handles PUT /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Delete handles DELETE /users/:id.
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
