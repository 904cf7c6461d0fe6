package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPolicyGrants(t *testing.T) {
	rbac := NewRBAC(DefaultPolicy())

	cases := []struct {
		role       string
		permission string
		want       bool
	}{
		{RoleAdmin, "view_patient", true},
		{RoleAdmin, "delete_hospital", true},
		{RoleStaff, "view_hospital", true},
		{RoleStaff, "change_visit", true},
		{RoleStaff, "delete_patient", true},
		{RoleStaff, "delete_hospital", false},
		{RoleStaff, "delete_department", false},
		{RolePatientUser, "view_visit", true},
		{RolePatientUser, "view_task", true},
		{RolePatientUser, "view_patient", false},
		{RolePatientUser, "change_visit", false},
		{"unknown", "view_visit", false},
	}
	for _, tc := range cases {
		if got := rbac.IsAuthorized(tc.role, tc.permission); got != tc.want {
			t.Fatalf("IsAuthorized(%q, %q) = %v, want %v", tc.role, tc.permission, got, tc.want)
		}
	}
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := []byte("roles:\n  auditor:\n    - view_audit\n    - view_visit\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	rbac := NewRBAC(policy)

	if !rbac.IsAuthorized("auditor", "view_audit") {
		t.Fatal("expected auditor to view audit records")
	}
	if rbac.IsAuthorized("auditor", "delete_visit") {
		t.Fatal("expected auditor delete to be denied")
	}
}

func TestLoadPolicyFallsBackToDefault(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load empty path: %v", err)
	}
	if !NewRBAC(policy).IsAuthorized(RoleAdmin, "delete_visit") {
		t.Fatal("expected default policy for empty path")
	}

	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
