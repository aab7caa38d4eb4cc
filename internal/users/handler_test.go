package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
)

func router(svc *Service, actor *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	gate := svc.Gate()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	r.GET("/me", h.Me)
	r.GET("/me/can", h.Can)
	r.GET("/roles/assignable/:name", h.CanAssignRole)
	r.GET("/users", middleware.RequireCapability(gate, rbac.ViewUser), h.List)
	r.POST("/users", middleware.RequireCapability(gate, rbac.CreateUser), h.Create)
	r.DELETE("/users/:id", middleware.RequireCapability(gate, rbac.DeleteUser), h.Delete)
	return r
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Me(t *testing.T) {
	svc, _ := newService()
	actor := user(rbac.RoleAttendee, rbac.RoleOrganizer)
	actor.Permissions = []string{"view_event"}

	w := request(router(svc, actor), http.MethodGet, "/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			HighestRole string   `json:"highest_role"`
			Permissions []string `json:"permissions"`
			Password    string   `json:"password"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, rbac.RoleOrganizer, body.Data.HighestRole)
	assert.Equal(t, []string{"view_event"}, body.Data.Permissions)
	assert.Empty(t, body.Data.Password)
}

func TestHandler_Can(t *testing.T) {
	svc, _ := newService()
	actor := user(rbac.RoleOrganizer)
	actor.Permissions = []string{"create_event"}
	r := router(svc, actor)

	w := request(r, http.MethodGet, "/me/can?resource=event&action=create", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":true`)

	w = request(r, http.MethodGet, "/me/can?resource=role&action=delete", "")
	assert.Contains(t, w.Body.String(), `"allowed":false`)

	w = request(r, http.MethodGet, "/me/can?resource=rocket&action=launch", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodGet, "/me/can", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CanAssignRole(t *testing.T) {
	svc, _ := newService()
	r := router(svc, user(rbac.RoleOrganizer))

	w := request(r, http.MethodGet, "/roles/assignable/admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"assignable":false`)

	w = request(r, http.MethodGet, "/roles/assignable/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateRequiresCapabilityAndRank(t *testing.T) {
	svc, _ := newService()
	organizer := user(rbac.RoleOrganizer)

	w := request(router(svc, organizer), http.MethodPost, "/users",
		`{"name":"n","email":"n@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code, "organizer lacks create_user")

	organizer.Permissions = []string{"create_user"}
	w = request(router(svc, organizer), http.MethodPost, "/users",
		`{"name":"n","email":"n@example.com","password":"password1","roles":["admin"]}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), rbac.ReasonSuperiorRole)

	w = request(router(svc, organizer), http.MethodPost, "/users",
		`{"name":"n","email":"n@example.com","password":"password1","roles":["organizer"]}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = request(router(svc, user(rbac.RoleAdmin)), http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}
