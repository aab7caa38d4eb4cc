package rbac

import (
	"fmt"
	"strings"
	"sync"
)

// Capability names a permission checked by the gate. Names follow "<action>_<resource>".
type Capability string

// Events.
const (
	ViewEvent   Capability = "view_event"
	CreateEvent Capability = "create_event"
	UpdateEvent Capability = "update_event"
	DeleteEvent Capability = "delete_event"
)

// Users.
const (
	ViewUser   Capability = "view_user"
	CreateUser Capability = "create_user"
	UpdateUser Capability = "update_user"
	DeleteUser Capability = "delete_user"
)

// Roles.
const (
	ViewRole   Capability = "view_role"
	CreateRole Capability = "create_role"
	UpdateRole Capability = "update_role"
	DeleteRole Capability = "delete_role"
)

// Permissions.
const (
	ViewPermission   Capability = "view_permission"
	CreatePermission Capability = "create_permission"
	UpdatePermission Capability = "update_permission"
	DeletePermission Capability = "delete_permission"
)

// Access control and audit.
const (
	ViewAccessControl    Capability = "view_access_control"
	AddRolePermission    Capability = "add_role_permission"
	RemoveRolePermission Capability = "remove_role_permission"
	AddUserPermission    Capability = "add_user_permission"
	RemoveUserPermission Capability = "remove_user_permission"
	ViewAudit            Capability = "view_audit"
)

var catalog = []Capability{
	ViewEvent, CreateEvent, UpdateEvent, DeleteEvent,
	ViewUser, CreateUser, UpdateUser, DeleteUser,
	ViewRole, CreateRole, UpdateRole, DeleteRole,
	ViewPermission, CreatePermission, UpdatePermission, DeletePermission,
	ViewAccessControl, AddRolePermission, RemoveRolePermission, AddUserPermission, RemoveUserPermission,
	ViewAudit,
}

// Catalog returns the capabilities known at compile time.
func Catalog() []Capability {
	out := make([]Capability, len(catalog))
	copy(out, catalog)
	return out
}

// Split breaks a capability into its action and resource parts.
func (c Capability) Split() (action, resource string) {
	action, resource, _ = strings.Cut(string(c), "_")
	return action, resource
}

func (c Capability) String() string { return string(c) }

type pair struct{ resource, action string }

// Registry resolves resource/action pairs to capabilities. It starts with the
// compile-time catalog and accepts permission names created at runtime.
type Registry struct {
	mu      sync.RWMutex
	byPair  map[pair]Capability
	builtin map[Capability]struct{}
}

// NewRegistry returns a registry preloaded with Catalog.
func NewRegistry() *Registry {
	r := &Registry{
		byPair:  make(map[pair]Capability, len(catalog)),
		builtin: make(map[Capability]struct{}, len(catalog)),
	}
	for _, c := range catalog {
		action, resource := c.Split()
		r.byPair[pair{resource, action}] = c
		r.builtin[c] = struct{}{}
	}
	return r
}

// Register adds a runtime permission name such as "publish_newsletter".
func (r *Registry) Register(name string) (Capability, error) {
	c := Capability(strings.TrimSpace(name))
	action, resource := c.Split()
	if action == "" || resource == "" {
		return "", fmt.Errorf("capability %q: want <action>_<resource>", name)
	}
	r.mu.Lock()
	r.byPair[pair{resource, action}] = c
	r.mu.Unlock()
	return c, nil
}

// Remove drops a runtime capability. Catalog entries stay registered.
func (r *Registry) Remove(name string) {
	c := Capability(name)
	if _, ok := r.builtin[c]; ok {
		return
	}
	action, resource := c.Split()
	r.mu.Lock()
	if r.byPair[pair{resource, action}] == c {
		delete(r.byPair, pair{resource, action})
	}
	r.mu.Unlock()
}

// Lookup resolves a resource/action pair.
func (r *Registry) Lookup(resource, action string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byPair[pair{resource, action}]
	return c, ok
}
