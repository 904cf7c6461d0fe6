package auth

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role names known to the default policy.
const (
	RoleAdmin       = "admin"
	RoleStaff       = "staff"
	RolePatientUser = "patientuser"
)

type Policy struct {
	// Roles maps a role name to the permissions it grants. "*" grants
	// everything; a trailing "_*" wildcard grants a verb across all entity
	// kinds (e.g. "view_*").
	Roles map[string][]string `yaml:"roles" json:"roles"`
}

// LoadPolicy reads a role-permission policy from a YAML file, falling back to
// the built-in default when no path is configured.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPolicy(), err
	}
	var policy Policy
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return Policy{}, err
	}
	if len(policy.Roles) == 0 {
		return DefaultPolicy(), nil
	}
	return policy, nil
}

func DefaultPolicy() Policy {
	return Policy{Roles: map[string][]string{
		RoleAdmin: {"*"},
		RoleStaff: {
			"view_*", "change_*",
			"delete_doctor", "delete_patient", "delete_visit",
		},
		RolePatientUser: {"view_visit", "view_task"},
	}}
}

// RBAC answers IsAuthorized(role, permission) for named permissions of the
// form verb_entity (view_doctor, change_hospital, delete_patient, ...).
type RBAC struct {
	policy Policy
}

func NewRBAC(policy Policy) *RBAC {
	return &RBAC{policy: policy}
}

func (r *RBAC) IsAuthorized(role, permission string) bool {
	grants, ok := r.policy.Roles[role]
	if !ok {
		return false
	}
	for _, grant := range grants {
		if grant == "*" || grant == permission {
			return true
		}
		if verb, found := strings.CutSuffix(grant, "_*"); found {
			if strings.HasPrefix(permission, verb+"_") {
				return true
			}
		}
	}
	return false
}
