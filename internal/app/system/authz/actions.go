// internal/app/system/authz/actions.go
package authz

// Action names a privileged operation on a group. The action → allowed-roles
// table below is the single source of truth for group-scoped permissions;
// every mutation and gated read consults it instead of carrying its own copy.
type Action string

const (
	ActionViewGroup         Action = "view:group"
	ActionViewMessages      Action = "view:messages"
	ActionPostMessages      Action = "post:messages"
	ActionManageMembers     Action = "manage:members"
	ActionManageInvitations Action = "manage:invitations"
	ActionViewAudit         Action = "view:audit"
	ActionDeleteGroup       Action = "delete:group"
	ActionUpdateSettings    Action = "update:settings"
)

var actionRoles = map[Action][]Role{
	ActionViewGroup:         {RoleAdmin, RoleEditor, RoleViewer},
	ActionViewMessages:      {RoleAdmin, RoleEditor, RoleViewer},
	ActionPostMessages:      {RoleAdmin, RoleEditor},
	ActionManageMembers:     {RoleAdmin},
	ActionManageInvitations: {RoleAdmin},
	ActionViewAudit:         {RoleAdmin},
	ActionDeleteGroup:       {RoleAdmin},
	ActionUpdateSettings:    {RoleAdmin},
}

// AllowedRoles returns the allow-list for an action. Unknown actions return
// nil, which fails closed everywhere the result is used.
func AllowedRoles(a Action) []Role {
	return actionRoles[a]
}

// HasPermission reports whether a role may perform an action.
func HasPermission(role Role, a Action) bool {
	for _, allowed := range actionRoles[a] {
		if role == allowed {
			return true
		}
	}
	return false
}
