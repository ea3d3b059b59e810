package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/internal/users"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"gorm.io/gorm"
)

func (s *service) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, and password are required")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Grants:       []access.Grant{{Role: enums.RoleDiner}},
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, emailTakenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, created.ID), "user registered")
	return s.issueSession(ctx, created)
}

// EnsureAdmin creates the bootstrap administrator, or grants the admin role
// to an existing account with that email. Existing passwords are not changed.
func (s *service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		existing, err := userRepo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.HasRole(enums.RoleAdmin) {
				return nil
			}
			if err := userRepo.AddGrant(ctx, existing.ID, enums.RoleAdmin, 0); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant admin role")
			}
			s.logg.Info(s.logg.WithUserID(ctx, existing.ID), "admin role granted to bootstrap user")
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check admin email")
		}

		if password == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "password is required")
		}
		passwordHash, err := s.hasher.Hash(password)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Grants:       []access.Grant{{Role: enums.RoleAdmin}},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
		}
		s.logg.Info(s.logg.WithUserID(ctx, user.ID), "bootstrap admin created")
		return nil
	})
}
