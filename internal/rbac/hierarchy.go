// Package rbac holds the role hierarchy, the capability catalog and the gate
// that answers capability checks for an actor.
package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aura-events/backend/internal/models"
)

// Default role names.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// DefaultRanks is the built-in ranking: admin > organizer > attendee.
var DefaultRanks = map[string]int{
	RoleAdmin:     2,
	RoleOrganizer: 1,
	RoleAttendee:  0,
}

// Hierarchy ranks role names. Ranks are pairwise distinct, so the order is strict and total.
type Hierarchy struct {
	ranks  map[string]int
	top    string
	bottom string
}

// NewHierarchy validates ranks and builds a Hierarchy.
func NewHierarchy(ranks map[string]int) (*Hierarchy, error) {
	if len(ranks) == 0 {
		return nil, errors.New("role hierarchy is empty")
	}
	h := &Hierarchy{ranks: make(map[string]int, len(ranks))}
	seen := make(map[int]string, len(ranks))
	for name, rank := range ranks {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("role hierarchy has an empty role name")
		}
		if other, dup := seen[rank]; dup {
			return nil, fmt.Errorf("roles %q and %q share rank %d", other, name, rank)
		}
		seen[rank] = name
		h.ranks[name] = rank
		if h.top == "" || rank > h.ranks[h.top] {
			h.top = name
		}
		if h.bottom == "" || rank < h.ranks[h.bottom] {
			h.bottom = name
		}
	}
	return h, nil
}

// DefaultHierarchy returns the built-in admin/organizer/attendee hierarchy.
func DefaultHierarchy() *Hierarchy {
	h, err := NewHierarchy(DefaultRanks)
	if err != nil {
		panic(err)
	}
	return h
}

// ParseHierarchy reads "name:rank,name:rank" (e.g. "admin:2,organizer:1,attendee:0").
func ParseHierarchy(s string) (*Hierarchy, error) {
	ranks := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rankStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("role hierarchy entry %q: want name:rank", part)
		}
		rank, err := strconv.Atoi(strings.TrimSpace(rankStr))
		if err != nil {
			return nil, fmt.Errorf("role hierarchy entry %q: %w", part, err)
		}
		name = strings.TrimSpace(name)
		if _, dup := ranks[name]; dup {
			return nil, fmt.Errorf("role %q listed twice", name)
		}
		ranks[name] = rank
	}
	return NewHierarchy(ranks)
}

// Rank returns the rank of a role name. Unknown names rank 0.
func (h *Hierarchy) Rank(name string) int {
	return h.ranks[name]
}

// Known reports whether name is part of the hierarchy.
func (h *Hierarchy) Known(name string) bool {
	_, ok := h.ranks[name]
	return ok
}

// Top is the highest-ranked role; holders pass every capability check.
func (h *Hierarchy) Top() string { return h.top }

// Bottom is the lowest-ranked role, used when an account holds none.
func (h *Hierarchy) Bottom() string { return h.bottom }

// Names returns the ranked role names from highest to lowest.
func (h *Hierarchy) Names() []string {
	names := make([]string, 0, len(h.ranks))
	for n := range h.ranks {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return h.ranks[names[i]] > h.ranks[names[j]] })
	return names
}

// HighestRole returns the assigned role with the greatest rank, or Bottom
// when the user holds no role ranked above it.
func (h *Hierarchy) HighestRole(u *models.User) string {
	highest := h.bottom
	level := h.ranks[h.bottom]
	if u == nil {
		return highest
	}
	for _, r := range u.Roles {
		if rank := h.Rank(r); rank > level {
			highest, level = r, rank
		}
	}
	return highest
}

// IsTop reports whether the user holds the top-ranked role.
func (h *Hierarchy) IsTop(u *models.User) bool {
	return u != nil && u.HasRole(h.top)
}
