package access

import (
	"testing"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
)

var (
	admin       = &Caller{UserID: 1, Grants: []Grant{{Role: enums.RoleAdmin}}}
	diner       = &Caller{UserID: 2, Grants: []Grant{{Role: enums.RoleDiner}}}
	franchiseeA = &Caller{UserID: 3, Grants: []Grant{{Role: enums.RoleDiner}, {Role: enums.RoleFranchisee, ObjectID: 10}}}
	franchiseeB = &Caller{UserID: 4, Grants: []Grant{{Role: enums.RoleFranchisee, ObjectID: 20}}}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		caller   *Caller
		action   Action
		resource Resource
		allowed  bool
		reason   string
		unauth   bool
	}{
		{name: "anonymous create franchise", caller: nil, action: ActionCreateFranchise, reason: "unauthorized", unauth: true},
		{name: "zero identity", caller: &Caller{}, action: ActionListUsers, reason: "unauthorized", unauth: true},
		{name: "admin creates franchise", caller: admin, action: ActionCreateFranchise, allowed: true},
		{name: "diner creates franchise", caller: diner, action: ActionCreateFranchise, reason: "unable to create a franchise"},
		{name: "franchisee deletes franchise", caller: franchiseeA, action: ActionDeleteFranchise, resource: Resource{FranchiseID: 10}, reason: "unable to delete a franchise"},
		{name: "diner adds menu item", caller: diner, action: ActionAddMenuItem, reason: "unable to add menu item"},
		{name: "admin adds menu item", caller: admin, action: ActionAddMenuItem, allowed: true},
		{name: "franchisee creates own store", caller: franchiseeA, action: ActionCreateStore, resource: Resource{FranchiseID: 10}, allowed: true},
		{name: "franchisee creates foreign store", caller: franchiseeB, action: ActionCreateStore, resource: Resource{FranchiseID: 10}, reason: "unable to create a store"},
		{name: "franchisee deletes foreign store", caller: franchiseeB, action: ActionDeleteStore, resource: Resource{FranchiseID: 10}, reason: "unable to delete a store"},
		{name: "admin deletes any store", caller: admin, action: ActionDeleteStore, resource: Resource{FranchiseID: 10}, allowed: true},
		{name: "franchisee views own details", caller: franchiseeA, action: ActionViewFranchiseDetails, resource: Resource{FranchiseID: 10}, allowed: true},
		{name: "diner views details", caller: diner, action: ActionViewFranchiseDetails, resource: Resource{FranchiseID: 10}, reason: "unable to view franchise details"},
		{name: "self update", caller: diner, action: ActionUpdateUser, resource: Resource{OwnerID: 2}, allowed: true},
		{name: "update someone else", caller: diner, action: ActionUpdateUser, resource: Resource{OwnerID: 3}, reason: "unable to update a user"},
		{name: "admin updates anyone", caller: admin, action: ActionUpdateUser, resource: Resource{OwnerID: 3}, allowed: true},
		{name: "diner lists users", caller: diner, action: ActionListUsers, reason: "unable to list users"},
		{name: "diner deletes user", caller: diner, action: ActionDeleteUser, resource: Resource{OwnerID: 2}, reason: "unable to delete a user"},
		{name: "admin deletes diner", caller: admin, action: ActionDeleteUser, resource: Resource{OwnerID: 2}, allowed: true},
		{name: "admin deletes admin", caller: admin, action: ActionDeleteUser, resource: Resource{OwnerID: 5, TargetIsAdmin: true}, reason: "unable to delete an admin"},
		{name: "own franchises", caller: franchiseeA, action: ActionListUserFranchises, resource: Resource{OwnerID: 3}, allowed: true},
		{name: "foreign franchises", caller: franchiseeA, action: ActionListUserFranchises, resource: Resource{OwnerID: 4}, reason: "unable to list franchises for user"},
		{name: "unknown action", caller: admin, action: Action("launch_rocket"), reason: "unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.caller, tt.action, tt.resource)
			if d.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if d.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", d.Reason, tt.reason)
			}
			if d.Unauthenticated != tt.unauth {
				t.Fatalf("unauthenticated = %v, want %v", d.Unauthenticated, tt.unauth)
			}
		})
	}
}

func TestAuthorizeMapsDecisionToErrorCode(t *testing.T) {
	if err := Authorize(Decision{Allowed: true}); err != nil {
		t.Fatalf("allowed decision returned %v", err)
	}

	err := Check(nil, ActionCreateStore, Resource{FranchiseID: 1})
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = Check(diner, ActionCreateStore, Resource{FranchiseID: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if typed.Message() != "unable to create a store" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestCallerHelpers(t *testing.T) {
	if !franchiseeA.IsFranchiseeOf(10) || franchiseeA.IsFranchiseeOf(20) {
		t.Fatal("franchisee scope check failed")
	}
	if franchiseeA.PrimaryRole() != enums.RoleFranchisee {
		t.Fatalf("unexpected primary role %q", franchiseeA.PrimaryRole())
	}
	var nobody *Caller
	if nobody.Authenticated() || nobody.IsAdmin() || nobody.IsFranchiseeOf(10) {
		t.Fatal("nil caller must hold nothing")
	}
}
