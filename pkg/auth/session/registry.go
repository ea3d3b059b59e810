package session

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// ErrUnknownUser is returned by Bump when the user row no longer exists.
var ErrUnknownUser = errors.New("session generation: unknown user")

// Registry tracks a per-user session generation. Tokens embed the generation
// current at issuance and stop validating once it is bumped.
type Registry interface {
	Current(ctx context.Context, userID uint64) (int64, error)
	Bump(ctx context.Context, userID uint64) (int64, error)
}

// StoreRegistry keeps the generation on the users row, so revocations
// survive restarts and are shared by every API replica.
type StoreRegistry struct {
	db *gorm.DB
}

// NewStoreRegistry constructs a registry over the credential store.
func NewStoreRegistry(conn *gorm.DB) (*StoreRegistry, error) {
	if conn == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &StoreRegistry{db: conn}, nil
}

// Current returns the user's generation, 0 for a user that does not exist.
func (r *StoreRegistry) Current(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user id is required")
	}
	var gens []int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Pluck("session_generation", &gens).Error; err != nil {
		return 0, err
	}
	if len(gens) == 0 {
		return 0, nil
	}
	return gens[0], nil
}

// Bump invalidates every token issued before the call. The increment is a
// single UPDATE so concurrent bumps never lose a step.
func (r *StoreRegistry) Bump(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user id is required")
	}
	var gens []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("session_generation", gorm.Expr("session_generation + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUnknownUser
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Pluck("session_generation", &gens).Error
	})
	if err != nil {
		return 0, err
	}
	if len(gens) == 0 {
		return 0, ErrUnknownUser
	}
	return gens[0], nil
}
