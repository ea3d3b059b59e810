package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ErrStaleTransition is returned when the order is no longer in the expected status.
var ErrStaleTransition = errors.New("order status changed concurrently")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.DinerOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uint64) (*models.DinerOrder, error) {
	var order models.DinerOrder
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByDiner(ctx context.Context, dinerID uint64, params pagination.Params) ([]models.DinerOrder, bool, error) {
	params = params.Normalize()
	var rows []models.DinerOrder
	err := r.db.WithContext(ctx).
		Where("diner_id = ?", dinerID).
		Scopes(pagination.PageScope("id", params)).
		Preload("Items", orderItems).
		Find(&rows).Error
	if err != nil {
		return nil, false, err
	}
	rows, more := pagination.Trim(rows, params.Limit)
	return rows, more, nil
}

// Transition moves the order from one status to the next. The update is
// conditioned on the current status so concurrent writers cannot skip a state.
func (r *repository) Transition(ctx context.Context, orderID uint64, from, to enums.OrderStatus, reportURL *string) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("invalid order transition %s -> %s", from, to)
	}
	updates := map[string]any{"status": to}
	if reportURL != nil {
		updates["report_url"] = *reportURL
	}
	res := r.db.WithContext(ctx).
		Model(&models.DinerOrder{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// ListStale returns orders sitting in one of the given statuses whose last
// update is older than before, oldest first.
func (r *repository) ListStale(ctx context.Context, statuses []enums.OrderStatus, before time.Time, limit int) ([]models.DinerOrder, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("updated_at < ?", before).
		Order("updated_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.DinerOrder
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}
