package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// DinerOrder is an order placed by a diner at a store.
type DinerOrder struct {
	ID          uint64            `gorm:"primaryKey;autoIncrement"`
	DinerID     uint64            `gorm:"column:diner_id;not null;index"`
	FranchiseID uint64            `gorm:"column:franchise_id;not null"`
	StoreID     uint64            `gorm:"column:store_id;not null"`
	Date        time.Time         `gorm:"column:date;not null"`
	Status      enums.OrderStatus `gorm:"column:status;not null"`
	ReportURL   *string           `gorm:"column:report_url"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (DinerOrder) TableName() string { return "diner_orders" }

// Total sums the item prices.
func (o DinerOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price)
	}
	return total
}

// OrderItem snapshots a menu item at order time.
type OrderItem struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	OrderID     uint64          `gorm:"column:order_id;not null;index"`
	MenuID      uint64          `gorm:"column:menu_id;not null"`
	Description string          `gorm:"column:description;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,4);not null"`
}

func (OrderItem) TableName() string { return "order_items" }
