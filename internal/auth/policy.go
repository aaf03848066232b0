package auth

import (
	apperrors "tleenotes/internal/errors"
	"tleenotes/internal/model"
)

// Action is a user-management operation subject to the role policy.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Actions lists every policy action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}

// CanAct decides whether actor may perform action on an account holding
// target. It returns nil, ErrForbidden or ErrInvalidRole.
//
// admin may do anything. manager may act on user accounts only, and may list.
// user may not manage accounts at all.
func CanAct(actor, target model.Role, action Action) error {
	if !actor.Valid() {
		return apperrors.ErrInvalidRole
	}
	if action != ActionList && !target.Valid() {
		return apperrors.ErrInvalidRole
	}

	switch actor {
	case model.RoleAdmin:
		return nil
	case model.RoleManager:
		if action == ActionList || target == model.RoleUser {
			return nil
		}
		return apperrors.ErrForbidden
	default:
		return apperrors.ErrForbidden
	}
}

// CanManageUsers reports whether role may reach the user-management surface at all.
func CanManageUsers(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleManager
}
