package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/internal/users"
	pkgAuth "github.com/angelmondragon/pizzeria-backend/pkg/auth"
	"github.com/angelmondragon/pizzeria-backend/pkg/auth/session"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "Invalid email or password"
	unauthorizedMessage       = "unauthorized"
	emailTakenMessage         = "email already registered"
	unknownUserMessage        = "unknown user"
)

// Service is the authentication and identity lifecycle used by the controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Logout(ctx context.Context, caller *access.Caller) error
	Authenticate(ctx context.Context, token string) (*access.Caller, error)
	UpdateProfile(ctx context.Context, actor *access.Caller, targetID uint64, req UpdateUserRequest) (*SessionResponse, error)
	DeleteUser(ctx context.Context, actor *access.Caller, targetID uint64) error
	GetSelf(ctx context.Context, caller *access.Caller) (*users.UserDTO, error)
	ListUsers(ctx context.Context, actor *access.Caller, params pagination.Params) (*ListUsersResponse, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB         *db.Client
	Hasher     passwordHasher
	Registry   session.Registry
	JWTConfig  config.JWTConfig
	Revocation config.RevocationPolicy
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	db         *db.Client
	hasher     passwordHasher
	registry   session.Registry
	jwtCfg     config.JWTConfig
	revocation config.RevocationPolicy
	outbox     outbox.Emitter
	logg       *logger.Logger
	now        func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	revocation := params.Revocation
	if revocation == "" {
		revocation = config.RevokePassword
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:         params.DB,
		hasher:     params.Hasher,
		registry:   params.Registry,
		jwtCfg:     params.JWTConfig,
		revocation: revocation,
		outbox:     params.Outbox,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	user, err := users.NewRepository(s.db.DB()).FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	encoded := ""
	if user != nil {
		encoded = user.PasswordHash
	}
	ok, verifyErr := s.hasher.Verify(req.Password, encoded)
	if user == nil || verifyErr != nil || !ok {
		if verifyErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", verifyErr.Error()), "stored password hash unreadable")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueSession(ctx, user)
}

func (s *service) Logout(ctx context.Context, caller *access.Caller) error {
	if !caller.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage)
	}
	if _, err := s.registry.Bump(ctx, caller.UserID); err != nil {
		if errors.Is(err, session.ErrUnknownUser) {
			return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthorizedMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	return nil
}

// Authenticate fails closed: any parse, revocation or lookup problem yields Unauthorized.
func (s *service) Authenticate(ctx context.Context, token string) (*access.Caller, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage)
	}

	claims, err := pkgAuth.ParseAccessToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthorizedMessage)
	}

	current, err := s.registry.Current(ctx, claims.UserID)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, claims.UserID), "session registry unavailable", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthorizedMessage)
	}
	if claims.Generation != current {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage)
	}

	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(s.logg.WithUserID(ctx, claims.UserID), "load authenticated user", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthorizedMessage)
	}

	return users.CallerFor(user), nil
}

func (s *service) GetSelf(ctx context.Context, caller *access.Caller) (*users.UserDTO, error) {
	if !caller.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage)
	}
	user, err := users.NewRepository(s.db.DB()).FindByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthorizedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return users.FromModel(user), nil
}

// issueSession mints a token for user bound to the current revocation generation.
func (s *service) issueSession(ctx context.Context, user *models.User) (*SessionResponse, error) {
	gen, err := s.registry.Current(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session generation")
	}

	grants := users.GrantsOf(user)
	roles := make([]pkgAuth.RoleClaim, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, pkgAuth.RoleClaim{Role: g.Role, ObjectID: g.ObjectID})
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Roles:      roles,
		Generation: gen,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SessionResponse{User: users.FromModel(user), Token: token}, nil
}
