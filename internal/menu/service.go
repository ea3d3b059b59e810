package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
)

type menuRepository interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
}

// Service exposes the catalog.
type Service interface {
	List(ctx context.Context) ([]MenuItemDTO, error)
	Add(ctx context.Context, actor *access.Caller, req AddMenuItemRequest) ([]MenuItemDTO, error)
}

type service struct {
	repo menuRepository
	logg *logger.Logger
}

func NewService(repo menuRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context) ([]MenuItemDTO, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list menu")
	}
	return FromModels(items), nil
}

// Add appends an item and returns the refreshed catalog.
func (s *service) Add(ctx context.Context, actor *access.Caller, req AddMenuItemRequest) ([]MenuItemDTO, error) {
	if err := access.Check(actor, access.ActionAddMenuItem, access.Resource{}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if req.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	item := &models.MenuItem{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		Price:       req.Price,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add menu item")
	}
	s.logg.Info(s.logg.WithField(ctx, "menu_item_id", item.ID), "menu item added")

	return s.List(ctx)
}
