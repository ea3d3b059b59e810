package menu

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// MenuItemDTO is the catalog entry returned to clients.
type MenuItemDTO struct {
	ID          uint64          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
}

// AddMenuItemRequest is the body of PUT /api/order/menu.
type AddMenuItemRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
}

func FromModels(items []models.MenuItem) []MenuItemDTO {
	out := make([]MenuItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, MenuItemDTO{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Image:       item.Image,
			Price:       item.Price,
		})
	}
	return out
}
