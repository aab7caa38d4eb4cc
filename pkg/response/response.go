package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-events/backend/pkg/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Invalid sends 400 with per-field messages.
func Invalid(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: "validation failed", Fields: fields})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps an apperr kind to its status. Unknown errors become a 500 and are
// attached to the gin context so the request logger records them.
func Error(c *gin.Context, err error) {
	var (
		ve *apperr.ValidationError
		ae *apperr.AuthorizationError
		nf *apperr.NotFoundError
		ce *apperr.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		Invalid(c, ve.Fields)
	case errors.As(err, &ae):
		Forbidden(c, ae.Error())
	case errors.As(err, &nf):
		NotFound(c, nf.Error())
	case errors.As(err, &ce):
		Conflict(c, ce.Error())
	default:
		_ = c.Error(err)
		Internal(c, "internal server error")
	}
}
