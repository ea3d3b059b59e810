package auth

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	pkgAuth "github.com/angelmondragon/pizzeria-backend/pkg/auth"
	"github.com/angelmondragon/pizzeria-backend/pkg/auth/session"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"github.com/angelmondragon/pizzeria-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "pizzeria",
	ExpirationMinutes: 30,
}

type fixture struct {
	svc      Service
	db       *db.Client
	registry *session.StoreRegistry
}

func newFixture(t *testing.T, policy config.RevocationPolicy) fixture {
	t.Helper()
	return newFixtureOn(t, dbtest.New(t), policy)
}

// newFixtureOn builds a service over an existing database, the way a
// restarted process would.
func newFixtureOn(t *testing.T, client *db.Client, policy config.RevocationPolicy) fixture {
	t.Helper()
	hasher, err := security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	registry, err := session.NewStoreRegistry(client.DB())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		DB:         client,
		Hasher:     hasher,
		Registry:   registry,
		JWTConfig:  testJWT,
		Revocation: policy,
		Outbox:     outbox.NewService(outbox.NewRepository(client.DB()), logg),
		Logger:     logg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return fixture{svc: svc, db: client, registry: registry}
}

func (f fixture) register(t *testing.T, name, email, password string) *SessionResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return resp
}

func (f fixture) admin(t *testing.T) (*access.Caller, string) {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.EnsureAdmin(ctx, "Administrator", "a@jwt.com", "admin"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "a@jwt.com", Password: "admin"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	caller, err := f.svc.Authenticate(ctx, resp.Token)
	if err != nil {
		t.Fatalf("admin authenticate: %v", err)
	}
	return caller, resp.Token
}

func (f fixture) authenticate(t *testing.T, token string) *access.Caller {
	t.Helper()
	caller, err := f.svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return caller
}

func requireCode(t *testing.T, err error, code pkgerrors.Code, message string) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected %s error, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
	if message != "" && typed.Message() != message {
		t.Fatalf("expected message %q, got %q", message, typed.Message())
	}
}

func TestRegisterIssuesDinerSession(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	resp := f.register(t, "pizza diner", "D@JWT.com ", "diner")

	if resp.User.Email != "d@jwt.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if len(resp.User.Roles) != 1 || resp.User.Roles[0].Role != enums.RoleDiner {
		t.Fatalf("expected a single diner grant, got %+v", resp.User.Roles)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Name != "pizza diner" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	caller := f.authenticate(t, resp.Token)
	if caller.UserID != resp.User.ID {
		t.Fatalf("authenticated as %d, want %d", caller.UserID, resp.User.ID)
	}
}

func TestRegisterValidationAndConflict(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Name: "x", Email: "x@jwt.com"})
	requireCode(t, err, pkgerrors.CodeValidation, "name, email, and password are required")

	f.register(t, "first", "dup@jwt.com", "pw")
	_, err = f.svc.Register(ctx, RegisterRequest{Name: "second", Email: "dup@jwt.com", Password: "pw"})
	requireCode(t, err, pkgerrors.CodeConflict, "email already registered")

	var count int64
	if err := f.db.DB().Model(&models.User{}).Where("email = ?", "dup@jwt.com").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one user with the email, got %d", count)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	f.register(t, "diner", "d@jwt.com", "diner")

	_, err := f.svc.Login(ctx, LoginRequest{Password: "diner"})
	requireCode(t, err, pkgerrors.CodeValidation, "email is required")

	_, err = f.svc.Login(ctx, LoginRequest{Email: "d@jwt.com"})
	requireCode(t, err, pkgerrors.CodeValidation, "password is required")

	_, err = f.svc.Login(ctx, LoginRequest{Email: "d@jwt.com", Password: "wrong"})
	requireCode(t, err, pkgerrors.CodeUnauthorized, "Invalid email or password")

	_, err = f.svc.Login(ctx, LoginRequest{Email: "nobody@jwt.com", Password: "diner"})
	requireCode(t, err, pkgerrors.CodeUnauthorized, "Invalid email or password")

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "d@jwt.com", Password: "diner"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	f.authenticate(t, resp.Token)
}

func TestLogoutRevokesEveryOutstandingToken(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	first := f.register(t, "diner", "d@jwt.com", "diner")
	second, err := f.svc.Login(ctx, LoginRequest{Email: "d@jwt.com", Password: "diner"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	caller := f.authenticate(t, first.Token)
	if err := f.svc.Logout(ctx, caller); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.svc.Logout(ctx, caller); err != nil {
		t.Fatalf("second logout should be harmless: %v", err)
	}

	for _, token := range []string{first.Token, second.Token} {
		_, err := f.svc.Authenticate(ctx, token)
		requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
	}

	fresh, err := f.svc.Login(ctx, LoginRequest{Email: "d@jwt.com", Password: "diner"})
	if err != nil {
		t.Fatalf("login after logout: %v", err)
	}
	f.authenticate(t, fresh.Token)
}

func TestAuthenticateFailsClosed(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	resp := f.register(t, "diner", "d@jwt.com", "diner")

	cases := map[string]string{
		"empty":    "",
		"garbage":  "not-a-jwt",
		"tampered": resp.Token + "a",
	}
	for name, token := range cases {
		_, err := f.svc.Authenticate(ctx, token)
		if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("%s token: expected unauthorized, got %v", name, err)
		}
	}

	otherIssuer := testJWT
	otherIssuer.Issuer = "someone-else"
	foreign, err := pkgAuth.MintAccessToken(otherIssuer, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: resp.User.ID,
		Roles:  []pkgAuth.RoleClaim{{Role: enums.RoleAdmin}},
	})
	if err != nil {
		t.Fatalf("mint foreign token: %v", err)
	}
	_, err = f.svc.Authenticate(ctx, foreign)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	resp := f.register(t, "diner", "d@jwt.com", "diner")

	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: resp.User.ID,
		Roles:  []pkgAuth.RoleClaim{{Role: enums.RoleDiner}},
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = f.svc.Authenticate(context.Background(), expired)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
}

func TestAuthenticateReflectsCurrentGrants(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	resp := f.register(t, "diner", "d@jwt.com", "diner")

	if err := f.db.DB().Create(&models.UserRole{UserID: resp.User.ID, Role: enums.RoleFranchisee, ObjectID: 9}).Error; err != nil {
		t.Fatalf("add grant: %v", err)
	}
	caller := f.authenticate(t, resp.Token)
	if !caller.IsFranchiseeOf(9) {
		t.Fatalf("expected grants loaded from the store, got %+v", caller.Grants)
	}
}

func TestUpdateProfileAccessAndRevocation(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	alice := f.register(t, "alice", "alice@jwt.com", "pw")
	bob := f.register(t, "bob", "bob@jwt.com", "pw")
	aliceCaller := f.authenticate(t, alice.Token)

	_, err := f.svc.UpdateProfile(ctx, aliceCaller, bob.User.ID, UpdateUserRequest{Name: "mallory"})
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to update a user")

	_, err = f.svc.UpdateProfile(ctx, aliceCaller, aliceCaller.UserID, UpdateUserRequest{Email: "bob@jwt.com"})
	requireCode(t, err, pkgerrors.CodeConflict, "email already registered")

	renamed, err := f.svc.UpdateProfile(ctx, aliceCaller, aliceCaller.UserID, UpdateUserRequest{Name: "alice b"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.User.Name != "alice b" {
		t.Fatalf("expected updated name, got %q", renamed.User.Name)
	}
	f.authenticate(t, alice.Token)

	rotated, err := f.svc.UpdateProfile(ctx, aliceCaller, aliceCaller.UserID, UpdateUserRequest{Password: "new-pw"})
	if err != nil {
		t.Fatalf("password change: %v", err)
	}
	_, err = f.svc.Authenticate(ctx, alice.Token)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
	f.authenticate(t, rotated.Token)

	if _, err := f.svc.Login(ctx, LoginRequest{Email: "alice@jwt.com", Password: "new-pw"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateProfileAlwaysPolicyRevokes(t *testing.T) {
	f := newFixture(t, config.RevokeAlways)
	ctx := context.Background()
	resp := f.register(t, "diner", "d@jwt.com", "pw")
	caller := f.authenticate(t, resp.Token)

	updated, err := f.svc.UpdateProfile(ctx, caller, caller.UserID, UpdateUserRequest{Name: "renamed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_, err = f.svc.Authenticate(ctx, resp.Token)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
	f.authenticate(t, updated.Token)
}

func TestAdminUpdatesMissingUser(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	admin, _ := f.admin(t)

	_, err := f.svc.UpdateProfile(context.Background(), admin, 9999, UpdateUserRequest{Name: "ghost"})
	requireCode(t, err, pkgerrors.CodeNotFound, "unknown user")
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	admin, _ := f.admin(t)
	diner := f.register(t, "diner", "d@jwt.com", "pw")
	dinerCaller := f.authenticate(t, diner.Token)

	err := f.svc.DeleteUser(ctx, dinerCaller, admin.UserID)
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to delete a user")

	err = f.svc.DeleteUser(ctx, admin, admin.UserID)
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to delete an admin")

	err = f.svc.DeleteUser(ctx, admin, 424242)
	requireCode(t, err, pkgerrors.CodeNotFound, "unknown user")

	if err := f.svc.DeleteUser(ctx, admin, diner.User.ID); err != nil {
		t.Fatalf("delete diner: %v", err)
	}
	_, err = f.svc.Authenticate(ctx, diner.Token)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")

	var grants int64
	if err := f.db.DB().Model(&models.UserRole{}).Where("user_id = ?", diner.User.ID).Count(&grants).Error; err != nil {
		t.Fatalf("count grants: %v", err)
	}
	if grants != 0 {
		t.Fatalf("expected grants removed, got %d", grants)
	}

	var events []models.OutboxEvent
	if err := f.db.DB().Where("event_type = ?", enums.EventUserDeleted).Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].AggregateID != diner.User.ID {
		t.Fatalf("expected one user.deleted event, got %+v", events)
	}
}

func TestDeletingAnAdminIsForbiddenForOtherAdmins(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	first, _ := f.admin(t)

	if err := f.svc.EnsureAdmin(ctx, "Second Admin", "a2@jwt.com", "admin2"); err != nil {
		t.Fatalf("ensure second admin: %v", err)
	}
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "a2@jwt.com", Password: "admin2"})
	if err != nil {
		t.Fatalf("second admin login: %v", err)
	}
	second := f.authenticate(t, resp.Token)

	err = f.svc.DeleteUser(ctx, second, first.UserID)
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to delete an admin")
	err = f.svc.DeleteUser(ctx, first, second.UserID)
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to delete an admin")

	var count int64
	if err := f.db.DB().Model(&models.User{}).Where("id IN ?", []uint64{first.UserID, second.UserID}).Count(&count).Error; err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both admins to remain, got %d", count)
	}
}

func TestDeleteUserLeavesOtherSessionsValid(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	admin, adminToken := f.admin(t)
	doomed := f.register(t, "doomed", "doomed@jwt.com", "pw")
	bystander := f.register(t, "bystander", "bystander@jwt.com", "pw")

	if err := f.svc.DeleteUser(ctx, admin, doomed.User.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	_, err := f.svc.Authenticate(ctx, doomed.Token)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
	if caller := f.authenticate(t, bystander.Token); caller.UserID != bystander.User.ID {
		t.Fatalf("bystander authenticated as %d", caller.UserID)
	}
	if caller := f.authenticate(t, adminToken); caller.UserID != admin.UserID {
		t.Fatalf("admin authenticated as %d", caller.UserID)
	}
}

func TestLoggedOutTokenStaysRevokedAfterRestart(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	before := newFixtureOn(t, client, config.RevokePassword)
	resp := before.register(t, "diner", "d@jwt.com", "diner")
	if err := before.svc.Logout(ctx, before.authenticate(t, resp.Token)); err != nil {
		t.Fatalf("logout: %v", err)
	}

	after := newFixtureOn(t, client, config.RevokePassword)
	_, err := after.svc.Authenticate(ctx, resp.Token)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")

	fresh, err := after.svc.Login(ctx, LoginRequest{Email: "d@jwt.com", Password: "diner"})
	if err != nil {
		t.Fatalf("login after restart: %v", err)
	}
	after.authenticate(t, fresh.Token)
}

func TestConcurrentRegistrationsWithSameEmail(t *testing.T) {
	f := newFixtureOn(t, dbtest.NewSerial(t), config.RevokePassword)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(ctx, RegisterRequest{Name: "racer", Email: "race@jwt.com", Password: "pw"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, pkgerrors.CodeConflict, "email already registered")
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one registration to win, got %d", succeeded)
	}

	var count int64
	if err := f.db.DB().Model(&models.User{}).Where("email = ?", "race@jwt.com").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored user, got %d", count)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	admin, _ := f.admin(t)
	diner := f.register(t, "diner", "d@jwt.com", "pw")
	f.register(t, "diner two", "d2@jwt.com", "pw")

	_, err := f.svc.ListUsers(ctx, f.authenticate(t, diner.Token), pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden, "unable to list users")

	page, err := f.svc.ListUsers(ctx, admin, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(page.Users) != 2 || !page.More {
		t.Fatalf("expected full page with more, got %d users more=%v", len(page.Users), page.More)
	}

	filtered, err := f.svc.ListUsers(ctx, admin, pagination.Params{Name: "diner*"})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(filtered.Users) != 2 || filtered.More {
		t.Fatalf("expected both diners, got %+v", filtered)
	}
}

func TestGetSelfAndEnsureAdminIdempotent(t *testing.T) {
	f := newFixture(t, config.RevokePassword)
	ctx := context.Background()
	admin, _ := f.admin(t)

	if err := f.svc.EnsureAdmin(ctx, "again", "a@jwt.com", "other"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	self, err := f.svc.GetSelf(ctx, admin)
	if err != nil {
		t.Fatalf("get self: %v", err)
	}
	if self.Email != "a@jwt.com" || len(self.Roles) != 1 || self.Roles[0].Role != enums.RoleAdmin {
		t.Fatalf("unexpected admin %+v", self)
	}

	_, err = f.svc.GetSelf(ctx, nil)
	requireCode(t, err, pkgerrors.CodeUnauthorized, "unauthorized")
}
