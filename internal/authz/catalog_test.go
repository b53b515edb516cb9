package authz_test

import (
	"testing"

	"github.com/hemam-center/hemam/internal/authz"
	_ "github.com/hemam-center/hemam/testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	catalog := authz.DefaultCatalog()

	if len(catalog.Permissions()) == 0 {
		t.Fatalf("default catalog has no permissions")
	}
	roles := catalog.Roles()
	if len(roles) != 9 {
		t.Fatalf("expected 9 roles, got %d", len(roles))
	}

	for _, role := range roles {
		for _, id := range role.Permissions {
			if _, ok := catalog.Permission(id); !ok {
				t.Fatalf("role %s references unknown permission %s", role.ID, id)
			}
		}
	}
}

func TestDefaultCatalogPairsAreComplete(t *testing.T) {
	catalog := authz.DefaultCatalog()
	for _, p := range catalog.Permissions() {
		if p.Resource == "" || p.Action == "" {
			t.Fatalf("permission %s missing resource/action pair", p.ID)
		}
		if p.Category == "" {
			t.Fatalf("permission %s missing category", p.ID)
		}
	}
}

func TestRoleLevelsOrdering(t *testing.T) {
	catalog := authz.DefaultCatalog()
	admin, _ := catalog.Role(authz.RoleAdmin)
	demo, _ := catalog.Role(authz.RoleDemo)
	patient, _ := catalog.Role(authz.RolePatient)

	if admin.Level <= patient.Level {
		t.Fatalf("admin level %d should exceed patient level %d", admin.Level, patient.Level)
	}
	if demo.Level >= patient.Level {
		t.Fatalf("demo level %d should sit below patient level %d", demo.Level, patient.Level)
	}
}
