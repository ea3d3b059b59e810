package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Franchise groups stores. Its admins are the users holding a franchisee
// grant whose object id is the franchise id.
type Franchise struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Stores    []Store   `gorm:"foreignKey:FranchiseID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Store is a single location of a franchise.
type Store struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	FranchiseID  uint64          `gorm:"column:franchise_id;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	TotalRevenue decimal.Decimal `gorm:"column:total_revenue;type:numeric(12,4);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
