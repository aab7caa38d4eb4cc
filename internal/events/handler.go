package events

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/pkg/apperr"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/validation"
)

// AddOrganizerRequest is the body for POST /events/:id/organizers.
type AddOrganizerRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an event handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Error(c, apperr.NotFound(param, ""))
		return uuid.Nil, false
	}
	return id, true
}

// authorizeUpdate reports a denial before the request body is read.
func (h *Handler) authorizeUpdate(c *gin.Context, id uuid.UUID) bool {
	if err := h.svc.AuthorizeUpdate(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.VisibleEvents(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.Actor(c)
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		// denial outranks a malformed body
		if aerr := h.svc.Policy().Authorize(ActionCreate, actor, nil); aerr != nil {
			response.Error(c, aerr)
			return
		}
		response.Error(c, validation.FromBinding(err))
		return
	}
	e, err := h.svc.Create(c.Request.Context(), actor, &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !h.authorizeUpdate(c, id) {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	e, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, &in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (soft delete).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore handles POST /events/:id/restore.
func (h *Handler) Restore(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Restore(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// ForceDelete handles DELETE /events/:id/force.
func (h *Handler) ForceDelete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ForceDelete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddOrganizer handles POST /events/:id/organizers.
func (h *Handler) AddOrganizer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !h.authorizeUpdate(c, id) {
		return
	}
	var req AddOrganizerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBinding(err))
		return
	}
	userID := uuid.MustParse(req.UserID)
	e, err := h.svc.AddOrganizer(c.Request.Context(), middleware.Actor(c), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// RemoveOrganizer handles DELETE /events/:id/organizers/:userId.
func (h *Handler) RemoveOrganizer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if err := h.svc.RemoveOrganizer(c.Request.Context(), middleware.Actor(c), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadImage handles POST /events/:id/image (multipart field "image").
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !h.authorizeUpdate(c, id) {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		v := apperr.NewValidation()
		v.Add("image", "is required")
		response.Error(c, v)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	e, err := h.svc.UploadImage(c.Request.Context(), middleware.Actor(c), id, fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}
