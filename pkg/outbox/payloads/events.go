package payloads

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once an order and its items are persisted.
type OrderCreatedEvent struct {
	OrderID     uint64          `json:"orderId"`
	DinerID     uint64          `json:"dinerId"`
	FranchiseID uint64          `json:"franchiseId"`
	StoreID     uint64          `json:"storeId"`
	ItemCount   int             `json:"itemCount"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderFulfilledEvent is emitted with the revenue increment.
type OrderFulfilledEvent struct {
	OrderID   uint64          `json:"orderId"`
	StoreID   uint64          `json:"storeId"`
	Total     decimal.Decimal `json:"total"`
	ReportURL string          `json:"reportUrl,omitempty"`
}

// OrderFulfillmentFailedEvent records a factory rejection or transport failure.
type OrderFulfillmentFailedEvent struct {
	OrderID   uint64 `json:"orderId"`
	StoreID   uint64 `json:"storeId"`
	ReportURL string `json:"reportUrl,omitempty"`
	Reason    string `json:"reason"`
}

type FranchiseCreatedEvent struct {
	FranchiseID uint64   `json:"franchiseId"`
	Name        string   `json:"name"`
	AdminIDs    []uint64 `json:"adminIds"`
}

type FranchiseDeletedEvent struct {
	FranchiseID uint64 `json:"franchiseId"`
}

// UserDeletedEvent lets downstream consumers drop cached identity data.
type UserDeletedEvent struct {
	UserID uint64 `json:"userId"`
}
