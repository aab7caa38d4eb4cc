package permissions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/rbac"
	"github.com/aura-events/backend/pkg/response"
)

func router(svc *Service, gate *rbac.Gate, actor *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	r.GET("/access-control", middleware.RequireCapability(gate, rbac.ViewAccessControl), h.AccessControl)
	r.POST("/permissions", middleware.RequireCapability(gate, rbac.CreatePermission), h.Create)
	r.POST("/roles/:id/permissions", middleware.RequireCapability(gate, rbac.AddRolePermission), h.GrantToRole)
	r.DELETE("/roles/:id/permissions/:permissionId", middleware.RequireCapability(gate, rbac.RemoveRolePermission), h.RevokeFromRole)
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

func TestHandler_AccessControlNeedsCapability(t *testing.T) {
	svc, gate := newService(newMemStore("view_event"), nil)

	w := request(router(svc, gate, user(nil, rbac.RoleAttendee)), http.MethodGet, "/access-control", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(router(svc, gate, user(nil, rbac.RoleAdmin)), http.MethodGet, "/access-control", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"view_event"`)
}

func TestHandler_CreateValidation(t *testing.T) {
	svc, gate := newService(newMemStore(), nil)
	r := router(svc, gate, user(nil, rbac.RoleAdmin))

	w := request(r, http.MethodPost, "/permissions", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPost, "/permissions", `{"name":"plain"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Fields["name"], "<action>_<resource>")

	w = request(r, http.MethodPost, "/permissions", `{"name":"publish_newsletter"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_RoleGrantLifecycle(t *testing.T) {
	store := newMemStore("view_event")
	svc, gate := newService(store, nil)
	r := router(svc, gate, user(nil, rbac.RoleAdmin))
	roleID := uuid.New().String()
	permID := store.idOf("view_event").String()

	w := request(r, http.MethodPost, "/roles/"+roleID+"/permissions", `{"permission_id":"`+permID+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = request(r, http.MethodPost, "/roles/"+roleID+"/permissions", `{"permission_id":"`+permID+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already has")

	w = request(r, http.MethodDelete, "/roles/"+roleID+"/permissions/"+permID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = request(r, http.MethodDelete, "/roles/"+roleID+"/permissions/"+permID, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "does not have")

	w = request(r, http.MethodPost, "/roles/not-a-uuid/permissions", `{"permission_id":"`+permID+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
