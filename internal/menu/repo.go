package menu

import (
	"context"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists the shared menu catalog.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns the full catalog ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Create appends an item to the catalog.
func (r *Repository) Create(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByIDs loads the catalog entries with the given ids keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]models.MenuItem, error) {
	out := make(map[uint64]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.MenuItem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}
