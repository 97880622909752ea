package domain

// Module is a coarse resource category subject to permission checks.
type Module string

const (
	ModulePatients     Module = "PATIENTS"
	ModuleAppointments Module = "APPOINTMENTS"
	ModuleInvoices     Module = "INVOICES"
	ModuleInventory    Module = "INVENTORY"
	ModuleReports      Module = "REPORTS"
	ModuleStaff        Module = "STAFF"
	ModuleSettings     Module = "SETTINGS"
)

// Modules lists every valid module value.
var Modules = []Module{
	ModulePatients,
	ModuleAppointments,
	ModuleInvoices,
	ModuleInventory,
	ModuleReports,
	ModuleStaff,
	ModuleSettings,
}

// Valid reports whether m is a member of the fixed module set.
func (m Module) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

// Action is an operation on a module. ActionManage subsumes all other
// actions for its module.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionManage Action = "MANAGE"
)

// Actions lists every valid action value.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}

// Valid reports whether a is a member of the fixed action set.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// PermissionGrant authorizes a set of actions on one module.
type PermissionGrant struct {
	Module  Module   `json:"module"`
	Actions []Action `json:"actions"`
}

// Allows reports whether the grant covers the action, honoring the
// manage-subsumes rule.
func (g PermissionGrant) Allows(action Action) bool {
	for _, a := range g.Actions {
		if a == action || a == ActionManage {
			return true
		}
	}
	return false
}

// defaultRoleGrants is the static per-role seed table. It is
// consulted exactly once, at credential creation; grants are
// independently mutable afterwards and are never re-derived from role.
var defaultRoleGrants = map[Role][]PermissionGrant{
	RoleAdmin: {
		{Module: ModulePatients, Actions: []Action{ActionManage}},
		{Module: ModuleAppointments, Actions: []Action{ActionManage}},
		{Module: ModuleInvoices, Actions: []Action{ActionManage}},
		{Module: ModuleInventory, Actions: []Action{ActionManage}},
		{Module: ModuleReports, Actions: []Action{ActionManage}},
		{Module: ModuleStaff, Actions: []Action{ActionManage}},
		{Module: ModuleSettings, Actions: []Action{ActionManage}},
	},
	RoleDoctor: {
		{Module: ModulePatients, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
		{Module: ModuleAppointments, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
		{Module: ModuleReports, Actions: []Action{ActionRead}},
	},
	RoleNurse: {
		{Module: ModulePatients, Actions: []Action{ActionRead, ActionUpdate}},
		{Module: ModuleAppointments, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
		{Module: ModuleInventory, Actions: []Action{ActionRead}},
	},
	RoleReceptionist: {
		{Module: ModulePatients, Actions: []Action{ActionCreate, ActionRead}},
		{Module: ModuleAppointments, Actions: []Action{ActionManage}},
		{Module: ModuleInvoices, Actions: []Action{ActionCreate, ActionRead}},
	},
	RoleAccountant: {
		{Module: ModuleInvoices, Actions: []Action{ActionManage}},
		{Module: ModuleReports, Actions: []Action{ActionRead}},
		{Module: ModuleInventory, Actions: []Action{ActionRead}},
	},
}

// DefaultGrants returns a deep copy of the seed grants for a role, so
// callers can never mutate the table through the returned slice.
func DefaultGrants(role Role) []PermissionGrant {
	seed, ok := defaultRoleGrants[role]
	if !ok {
		return nil
	}
	grants := make([]PermissionGrant, len(seed))
	for i, g := range seed {
		actions := make([]Action, len(g.Actions))
		copy(actions, g.Actions)
		grants[i] = PermissionGrant{Module: g.Module, Actions: actions}
	}
	return grants
}
