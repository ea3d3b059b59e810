package access

import pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"

// Action names an operation guarded by the policy.
type Action string

const (
	ActionCreateFranchise      Action = "create_franchise"
	ActionDeleteFranchise      Action = "delete_franchise"
	ActionAddMenuItem          Action = "add_menu_item"
	ActionCreateStore          Action = "create_store"
	ActionDeleteStore          Action = "delete_store"
	ActionViewFranchiseDetails Action = "view_franchise_details"
	ActionUpdateUser           Action = "update_user"
	ActionListUsers            Action = "list_users"
	ActionDeleteUser           Action = "delete_user"
	ActionListUserFranchises   Action = "list_user_franchises"
)

const (
	ReasonUnauthorized  = "unauthorized"
	ReasonDeleteAdmin   = "unable to delete an admin"
	reasonUnknownAction = "unknown action"
)

var denyReasons = map[Action]string{
	ActionCreateFranchise:      "unable to create a franchise",
	ActionDeleteFranchise:      "unable to delete a franchise",
	ActionAddMenuItem:          "unable to add menu item",
	ActionCreateStore:          "unable to create a store",
	ActionDeleteStore:          "unable to delete a store",
	ActionViewFranchiseDetails: "unable to view franchise details",
	ActionUpdateUser:           "unable to update a user",
	ActionListUsers:            "unable to list users",
	ActionDeleteUser:           "unable to delete a user",
	ActionListUserFranchises:   "unable to list franchises for user",
}

// Resource carries the facts about the target that a decision depends on.
type Resource struct {
	// OwnerID is the user the resource belongs to (update_user, list_user_franchises).
	OwnerID uint64
	// FranchiseID scopes store and franchise-detail actions.
	FranchiseID uint64
	// TargetIsAdmin is set for delete_user when the target holds an admin grant.
	TargetIsAdmin bool
}

// Decision is the outcome of Decide.
type Decision struct {
	Allowed         bool
	Reason          string
	Unauthenticated bool
}

// Decide evaluates action against resource for caller. It performs no I/O.
func Decide(caller *Caller, action Action, resource Resource) Decision {
	reason, known := denyReasons[action]
	if !known {
		return Decision{Reason: reasonUnknownAction}
	}
	if !caller.Authenticated() {
		return Decision{Reason: ReasonUnauthorized, Unauthenticated: true}
	}

	if caller.IsAdmin() {
		if action == ActionDeleteUser && resource.TargetIsAdmin {
			return Decision{Reason: ReasonDeleteAdmin}
		}
		return Decision{Allowed: true}
	}

	switch action {
	case ActionUpdateUser, ActionListUserFranchises:
		if resource.OwnerID != 0 && caller.UserID == resource.OwnerID {
			return Decision{Allowed: true}
		}
	case ActionCreateStore, ActionDeleteStore, ActionViewFranchiseDetails:
		if caller.IsFranchiseeOf(resource.FranchiseID) {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: reason}
}

// Authorize converts a decision into the typed error the transport maps to 401/403.
func Authorize(d Decision) error {
	switch {
	case d.Allowed:
		return nil
	case d.Unauthenticated:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, ReasonUnauthorized)
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, d.Reason)
	}
}

// Check is Decide followed by Authorize.
func Check(caller *Caller, action Action, resource Resource) error {
	return Authorize(Decide(caller, action, resource))
}
