package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is an entry of the shared catalog. Rows are never updated.
type MenuItem struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	Title       string          `gorm:"column:title;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Image       string          `gorm:"column:image;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,4);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (MenuItem) TableName() string { return "menu_items" }
