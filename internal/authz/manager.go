package authz

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownRole is returned by write paths that refuse to persist a role the
// catalog does not define. Read paths never return it: there an unknown role
// simply grants nothing.
var ErrUnknownRole = errors.New("authz: unknown role")

// Manager answers permission-set queries against an immutable catalog. All
// methods are pure; an unknown role or permission id is treated as "no
// access", never as an error.
type Manager struct {
	catalog Catalog
}

// NewManager constructs a Manager over the provided catalog.
func NewManager(catalog Catalog) *Manager {
	return &Manager{catalog: catalog}
}

// Catalog exposes the underlying catalog for introspection handlers.
func (m *Manager) Catalog() Catalog {
	return m.catalog
}

// RolePermissions returns the permission ids statically associated with a
// role. Unknown roles yield an empty set.
func (m *Manager) RolePermissions(role string) []string {
	def, ok := m.catalog.Role(normalize(role))
	if !ok {
		return nil
	}
	out := make([]string, len(def.Permissions))
	copy(out, def.Permissions)
	return out
}

// UserPermissions is the union of the role's permissions and per-user extra
// grants, deduplicated. It never revokes: callers needing revocation apply
// Revoke on the result and must document why at the call site.
func (m *Manager) UserPermissions(role string, extraGrants []string) []string {
	base := m.RolePermissions(role)
	if len(extraGrants) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extraGrants))
	out := make([]string, 0, len(base)+len(extraGrants))
	for _, id := range base {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range extraGrants {
		id = normalize(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// HasPermission reports whether id is a member of permissions.
func (m *Manager) HasPermission(permissions []string, id string) bool {
	id = normalize(id)
	for _, p := range permissions {
		if normalize(p) == id {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of ids is granted.
func (m *Manager) HasAnyPermission(permissions []string, ids ...string) bool {
	set := toSet(permissions)
	for _, id := range ids {
		if _, ok := set[normalize(id)]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every id is granted.
func (m *Manager) HasAllPermissions(permissions []string, ids ...string) bool {
	set := toSet(permissions)
	for _, id := range ids {
		if _, ok := set[normalize(id)]; !ok {
			return false
		}
	}
	return true
}

// CanAccess reports whether some granted permission maps to exactly the
// (resource, action) pair in the catalog. Matching is exact-string: no
// wildcards, no resource hierarchy. Ids absent from the catalog contribute
// nothing.
func (m *Manager) CanAccess(permissions []string, resource, action string) bool {
	resource = normalize(resource)
	action = normalize(action)
	for _, id := range permissions {
		def, ok := m.catalog.Permission(normalize(id))
		if !ok {
			continue
		}
		if def.Resource == resource && def.Action == action {
			return true
		}
	}
	return false
}

// AccessibleResources projects the permission set onto the resources it can
// reach, deduplicated and sorted.
func (m *Manager) AccessibleResources(permissions []string) []string {
	seen := make(map[string]struct{}, len(permissions))
	for _, id := range permissions {
		def, ok := m.catalog.Permission(normalize(id))
		if !ok {
			continue
		}
		seen[def.Resource] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// PermissionsByCategory filters the granted set down to one catalog category.
func (m *Manager) PermissionsByCategory(permissions []string, category string) []string {
	category = normalize(category)
	var out []string
	for _, id := range permissions {
		def, ok := m.catalog.Permission(normalize(id))
		if !ok {
			continue
		}
		if def.Category == category {
			out = append(out, def.ID)
		}
	}
	return out
}

// ValidateGrants filters a caller-supplied grant list down to ids the catalog
// knows, dropping the rest. Applied at the directory boundary so arbitrary
// strings stored next to a user record never become live permissions.
func (m *Manager) ValidateGrants(grants []string) []string {
	var out []string
	for _, id := range grants {
		id = normalize(id)
		if _, ok := m.catalog.Permission(id); ok {
			out = append(out, id)
		}
	}
	return out
}

// Revoke removes revoked ids from a permission set. It is not wired into any
// enforcement path: callers that need explicit revocation apply it themselves
// before CanAccess and must document the revocation source.
func Revoke(permissions, revoked []string) []string {
	if len(revoked) == 0 {
		return permissions
	}
	drop := toSet(revoked)
	out := make([]string, 0, len(permissions))
	for _, id := range permissions {
		if _, gone := drop[normalize(id)]; gone {
			continue
		}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[normalize(id)] = struct{}{}
	}
	return set
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
