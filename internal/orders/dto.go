package orders

import (
	"time"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderItemRequest is one line of a diner's order. Description and price are
// optional; the catalog values always win.
type OrderItemRequest struct {
	MenuID      uint64           `json:"menuId" validate:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	FranchiseID uint64             `json:"franchiseId" validate:"required"`
	StoreID     uint64             `json:"storeId" validate:"required"`
	Items       []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ItemWarning flags a client-supplied value that disagreed with the catalog.
type ItemWarning struct {
	MenuID  uint64 `json:"menuId"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type OrderItemDTO struct {
	ID          uint64          `json:"id"`
	MenuID      uint64          `json:"menuId"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID          uint64            `json:"id"`
	FranchiseID uint64            `json:"franchiseId"`
	StoreID     uint64            `json:"storeId"`
	Date        time.Time         `json:"date"`
	Status      enums.OrderStatus `json:"status"`
	ReportURL   *string           `json:"reportUrl,omitempty"`
	Items       []OrderItemDTO    `json:"items"`
}

type CreateOrderResponse struct {
	Order     OrderDTO      `json:"order"`
	ReportURL string        `json:"reportUrl"`
	JWT       string        `json:"jwt"`
	Warnings  []ItemWarning `json:"warnings,omitempty"`
}

type ListOrdersResponse struct {
	DinerID uint64     `json:"dinerId"`
	Orders  []OrderDTO `json:"orders"`
	Page    int        `json:"page"`
	More    bool       `json:"more"`
}

func FromModel(order models.DinerOrder) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			MenuID:      item.MenuID,
			Description: item.Description,
			Price:       item.Price,
		})
	}
	return OrderDTO{
		ID:          order.ID,
		FranchiseID: order.FranchiseID,
		StoreID:     order.StoreID,
		Date:        order.Date,
		Status:      order.Status,
		ReportURL:   order.ReportURL,
		Items:       items,
	}
}

func FromModels(rows []models.DinerOrder) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
