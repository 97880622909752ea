package auth

import "github.com/spec-kit/staffdesk/internal/domain"

// HasPermission decides module/action authorization from the
// credential's stored grants. The admin role bypasses grant inspection
// entirely; for everyone else the decision is data-driven. Grants are
// never re-derived from role here.
func HasPermission(cred *domain.Credential, module domain.Module, action domain.Action) bool {
	if cred == nil {
		return false
	}
	if cred.Role == domain.RoleAdmin {
		return true
	}
	for _, grant := range cred.Permissions {
		if grant.Module == module {
			return grant.Allows(action)
		}
	}
	return false
}
