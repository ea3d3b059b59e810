package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for diner orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.DinerOrder) error
	FindByID(ctx context.Context, id uint64) (*models.DinerOrder, error)
	ListByDiner(ctx context.Context, dinerID uint64, params pagination.Params) ([]models.DinerOrder, bool, error)
	Transition(ctx context.Context, orderID uint64, from, to enums.OrderStatus, reportURL *string) error
	ListStale(ctx context.Context, statuses []enums.OrderStatus, before time.Time, limit int) ([]models.DinerOrder, error)
}
