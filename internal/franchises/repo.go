package franchises

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

// Repository persists franchises and their stores.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, franchise *models.Franchise) error {
	return r.db.WithContext(ctx).Create(franchise).Error
}

// FindByID loads a franchise with its stores.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.Franchise, error) {
	var franchise models.Franchise
	if err := r.db.WithContext(ctx).
		Preload("Stores", orderStores).
		First(&franchise, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &franchise, nil
}

// List returns one page of franchises filtered by name.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.Franchise, bool, error) {
	params = params.Normalize()
	var rows []models.Franchise
	if err := r.db.WithContext(ctx).
		Scopes(pagination.NameScope("name", params.Name), pagination.PageScope("id", params)).
		Preload("Stores", orderStores).
		Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, more := pagination.Trim(rows, params.Limit)
	return rows, more, nil
}

// ListByIDs loads the given franchises ordered by id.
func (r *Repository) ListByIDs(ctx context.Context, ids []uint64) ([]models.Franchise, error) {
	if len(ids) == 0 {
		return []models.Franchise{}, nil
	}
	var rows []models.Franchise
	if err := r.db.WithContext(ctx).
		Preload("Stores", orderStores).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the franchise and its stores. It reports whether the franchise existed.
func (r *Repository) Delete(ctx context.Context, id uint64) (bool, error) {
	if err := r.db.WithContext(ctx).Where("franchise_id = ?", id).Delete(&models.Store{}).Error; err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Franchise{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) CreateStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

// FindStore loads a store only when it belongs to franchiseID.
func (r *Repository) FindStore(ctx context.Context, franchiseID, storeID uint64) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Where("id = ? AND franchise_id = ?", storeID, franchiseID).
		First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// DeleteStore reports whether a store of franchiseID was removed.
func (r *Repository) DeleteStore(ctx context.Context, franchiseID, storeID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND franchise_id = ?", storeID, franchiseID).
		Delete(&models.Store{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AddRevenue increments total_revenue in a single statement.
func (r *Repository) AddRevenue(ctx context.Context, storeID uint64, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		UpdateColumn("total_revenue", gorm.Expr("total_revenue + ?", amount)).Error
}

func orderStores(db *gorm.DB) *gorm.DB {
	return db.Order("stores.id ASC")
}
