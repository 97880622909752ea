package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staffdesk/internal/domain"
)

func TestAdminBypassesGrants(t *testing.T) {
	// No grants at all; role alone must grant everything.
	admin := &domain.Credential{Role: domain.RoleAdmin}

	for _, module := range domain.Modules {
		for _, action := range domain.Actions {
			assert.True(t, HasPermission(admin, module, action),
				"admin denied %s on %s", action, module)
		}
	}
}

func TestGrantLookup(t *testing.T) {
	nurse := &domain.Credential{
		Role: domain.RoleNurse,
		Permissions: []domain.PermissionGrant{
			{Module: domain.ModulePatients, Actions: []domain.Action{domain.ActionRead, domain.ActionUpdate}},
			{Module: domain.ModuleInvoices, Actions: []domain.Action{domain.ActionManage}},
		},
	}

	tests := []struct {
		name   string
		module domain.Module
		action domain.Action
		want   bool
	}{
		{"granted action", domain.ModulePatients, domain.ActionRead, true},
		{"ungranted action on granted module", domain.ModulePatients, domain.ActionDelete, false},
		{"manage subsumes delete", domain.ModuleInvoices, domain.ActionDelete, true},
		{"manage subsumes create", domain.ModuleInvoices, domain.ActionCreate, true},
		{"absent module", domain.ModuleSettings, domain.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(nurse, tt.module, tt.action))
		})
	}
}

func TestNilCredentialDenied(t *testing.T) {
	assert.False(t, HasPermission(nil, domain.ModulePatients, domain.ActionRead))
}

func TestGrantsAreDataNotRole(t *testing.T) {
	// A doctor whose grants were narrowed below the role default: the
	// evaluator honors the stored grants, not the seed table.
	doctor := &domain.Credential{
		Role:        domain.RoleDoctor,
		Permissions: []domain.PermissionGrant{},
	}
	assert.False(t, HasPermission(doctor, domain.ModulePatients, domain.ActionRead))
}

func TestDefaultGrantsDeepCopy(t *testing.T) {
	first := domain.DefaultGrants(domain.RoleNurse)
	first[0].Actions[0] = domain.ActionDelete

	second := domain.DefaultGrants(domain.RoleNurse)
	assert.NotEqual(t, domain.ActionDelete, second[0].Actions[0],
		"mutating a returned grant list must not corrupt the seed table")
}
