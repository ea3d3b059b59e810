package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/internal/users"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"gorm.io/gorm"
)

func (s *service) UpdateProfile(ctx context.Context, actor *access.Caller, targetID uint64, req UpdateUserRequest) (*SessionResponse, error) {
	if err := access.Check(actor, access.ActionUpdateUser, access.Resource{OwnerID: targetID}); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	email := normalizeEmail(req.Email)
	if email != "" {
		updates["email"] = email
	}
	passwordChanged := req.Password != ""
	if passwordChanged {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		updates["password_hash"] = hash
	}

	var updated *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByID(ctx, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, unknownUserMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		if email != "" {
			taken, err := userRepo.EmailTakenByOther(ctx, email, targetID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
			}
			if taken {
				return pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
			}
		}

		if err := userRepo.UpdateProfile(ctx, targetID, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, emailTakenMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
		}

		user, err := userRepo.FindByID(ctx, targetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.revokesOnUpdate(passwordChanged) {
		if _, err := s.registry.Bump(ctx, targetID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}

	return s.issueSession(ctx, updated)
}

func (s *service) revokesOnUpdate(passwordChanged bool) bool {
	switch s.revocation {
	case config.RevokeAlways:
		return true
	case config.RevokePassword:
		return passwordChanged
	default:
		return false
	}
}

func (s *service) DeleteUser(ctx context.Context, actor *access.Caller, targetID uint64) error {
	if err := access.Check(actor, access.ActionDeleteUser, access.Resource{OwnerID: targetID}); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		target, err := userRepo.FindByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, unknownUserMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		if err := access.Check(actor, access.ActionDeleteUser, access.Resource{
			OwnerID:       targetID,
			TargetIsAdmin: target.HasRole(enums.RoleAdmin),
		}); err != nil {
			return err
		}

		if err := userRepo.Delete(ctx, targetID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserDeleted,
			AggregateType: enums.AggregateUser,
			AggregateID:   targetID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.PrimaryRole())},
			Data:          payloads.UserDeletedEvent{UserID: targetID},
		})
	})
	if err != nil {
		return err
	}

	// The generation lives on the deleted row; old tokens now fail the user lookup.
	s.logg.Info(s.logg.WithUserID(ctx, targetID), "user deleted")
	return nil
}

func (s *service) ListUsers(ctx context.Context, actor *access.Caller, params pagination.Params) (*ListUsersResponse, error) {
	if err := access.Check(actor, access.ActionListUsers, access.Resource{}); err != nil {
		return nil, err
	}

	rows, more, err := users.NewRepository(s.db.DB()).List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return &ListUsersResponse{Users: users.FromModels(rows), More: more}, nil
}
