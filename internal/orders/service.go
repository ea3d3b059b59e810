package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/internal/franchises"
	"github.com/angelmondragon/pizzeria-backend/internal/menu"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/fulfillment"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/metrics"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

const (
	// FulfillmentFailedMessage is returned verbatim when the factory rejects
	// an order or cannot be reached.
	FulfillmentFailedMessage = "Failed to fulfill order at factory"
	// AcceptedAfterFailureMessage is returned when the factory accepted an
	// order that had already been marked failed, e.g. by the stale sweep.
	AcceptedAfterFailureMessage = "Order accepted by factory after it was marked failed"

	unknownStoreMessage    = "unknown store"
	unknownMenuItemMessage = "unknown menu item"
)

// Service places diner orders and reconciles them with the factory.
type Service interface {
	CreateOrder(ctx context.Context, diner *access.Caller, req CreateOrderRequest) (*CreateOrderResponse, error)
	ListOrders(ctx context.Context, diner *access.Caller, params pagination.Params) (*ListOrdersResponse, error)
}

// ServiceParams bundles the order service dependencies.
type ServiceParams struct {
	DB          *db.Client
	Fulfillment fulfillment.Submitter
	Outbox      outbox.Emitter
	Metrics     *metrics.FulfillmentMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	db          *db.Client
	repo        Repository
	fulfillment fulfillment.Submitter
	outbox      outbox.Emitter
	metrics     *metrics.FulfillmentMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Fulfillment == nil {
		return nil, fmt.Errorf("fulfillment client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		repo:        NewRepository(params.DB.DB()),
		fulfillment: params.Fulfillment,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// CreateOrder persists the order before calling the factory. A rejection or
// transport failure leaves the order in fulfillment_failed and is reported as
// an external failure carrying the factory's report url.
func (s *service) CreateOrder(ctx context.Context, diner *access.Caller, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if !diner.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, access.ReasonUnauthorized)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	store, err := franchises.NewRepository(s.db.DB()).FindStore(ctx, req.FranchiseID, req.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, unknownStoreMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	items, warnings, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"diner_id": diner.UserID,
		"store_id": store.ID,
	})
	for _, w := range warnings {
		s.logg.Warn(s.logg.WithField(ctx, "menu_id", w.MenuID), w.Message)
	}

	order := &models.DinerOrder{
		DinerID:     diner.UserID,
		FranchiseID: store.FranchiseID,
		StoreID:     store.ID,
		Date:        s.now().UTC(),
		Status:      enums.OrderStatusPersisted,
		Items:       items,
	}
	if err := s.persist(ctx, diner, order); err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	// The order exists now; the rest must run to completion even if the
	// caller goes away.
	detached := context.WithoutCancel(ctx)

	if err := s.repo.Transition(detached, order.ID, enums.OrderStatusPersisted, enums.OrderStatusFulfillmentRequested, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark fulfillment requested")
	}
	order.Status = enums.OrderStatusFulfillmentRequested

	result, submitErr := s.submit(detached, diner, order)
	if submitErr == nil && result.Accepted {
		return s.completeFulfilled(detached, diner, order, result, warnings)
	}
	return nil, s.completeFailed(detached, diner, order, result, submitErr)
}

func validateRequest(req CreateOrderRequest) error {
	if req.FranchiseID == 0 || req.StoreID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "franchiseId and storeId are required")
	}
	if len(req.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.MenuID == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "menuId is required for every item")
		}
	}
	return nil
}

// priceItems snapshots catalog description and price for each requested item.
func (s *service) priceItems(ctx context.Context, requested []OrderItemRequest) ([]models.OrderItem, []ItemWarning, error) {
	ids := make([]uint64, 0, len(requested))
	for _, item := range requested {
		ids = append(ids, item.MenuID)
	}
	catalog, err := menu.NewRepository(s.db.DB()).FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu items")
	}

	items := make([]models.OrderItem, 0, len(requested))
	var warnings []ItemWarning
	for _, req := range requested {
		entry, ok := catalog[req.MenuID]
		if !ok {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, unknownMenuItemMessage).
				WithDetails(map[string]any{"menuId": req.MenuID})
		}
		if req.Price != nil && !req.Price.Equal(entry.Price) {
			warnings = append(warnings, ItemWarning{
				MenuID:  req.MenuID,
				Field:   "price",
				Message: fmt.Sprintf("submitted price %s replaced by catalog price %s", req.Price.String(), entry.Price.String()),
			})
		}
		if req.Description != "" && req.Description != entry.Title {
			warnings = append(warnings, ItemWarning{
				MenuID:  req.MenuID,
				Field:   "description",
				Message: fmt.Sprintf("submitted description %q replaced by catalog title %q", req.Description, entry.Title),
			})
		}
		items = append(items, models.OrderItem{
			MenuID:      entry.ID,
			Description: entry.Title,
			Price:       entry.Price,
		})
	}
	return items, warnings, nil
}

func (s *service) persist(ctx context.Context, diner *access.Caller, order *models.DinerOrder) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(diner),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				DinerID:     order.DinerID,
				FranchiseID: order.FranchiseID,
				StoreID:     order.StoreID,
				ItemCount:   len(order.Items),
				Total:       order.Total(),
				CreatedAt:   order.Date,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
		}
		return nil
	})
}

func (s *service) submit(ctx context.Context, diner *access.Caller, order *models.DinerOrder) (fulfillment.Result, error) {
	start := time.Now()
	result, err := s.fulfillment.Submit(ctx, toFulfillmentOrder(order), fulfillment.Diner{
		ID:    diner.UserID,
		Name:  diner.Name,
		Email: diner.Email,
	})
	outcome := metrics.OutcomeAccepted
	switch {
	case err != nil:
		outcome = metrics.OutcomeTransport
	case !result.Accepted:
		outcome = metrics.OutcomeRejected
	}
	s.metrics.Observe(outcome, time.Since(start))
	return result, err
}

func (s *service) completeFulfilled(ctx context.Context, diner *access.Caller, order *models.DinerOrder, result fulfillment.Result, warnings []ItemWarning) (*CreateOrderResponse, error) {
	reportURL := result.ReportURL
	total := order.Total()
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Transition(ctx, order.ID, enums.OrderStatusFulfillmentRequested, enums.OrderStatusFulfilled, &reportURL); err != nil {
			if errors.Is(err, ErrStaleTransition) {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order fulfilled")
		}
		if err := franchises.NewRepository(tx).AddRevenue(ctx, order.StoreID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add store revenue")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfilled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(diner),
			Data: payloads.OrderFulfilledEvent{
				OrderID:   order.ID,
				StoreID:   order.StoreID,
				Total:     total,
				ReportURL: reportURL,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order fulfilled")
		}
		return nil
	})
	if errors.Is(err, ErrStaleTransition) {
		s.logg.Error(s.logg.WithField(ctx, "report_url", reportURL), "factory accepted an order already marked failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternal, err, AcceptedAfterFailureMessage).
			WithDetails(map[string]any{"reportUrl": reportURL, "orderId": order.ID})
	}
	if err != nil {
		s.logg.Error(ctx, "factory accepted order but recording it failed", err)
		return nil, err
	}

	order.Status = enums.OrderStatusFulfilled
	order.ReportURL = &reportURL
	s.logg.Info(ctx, "order fulfilled")
	return &CreateOrderResponse{
		Order:     FromModel(*order),
		ReportURL: reportURL,
		JWT:       result.JWT,
		Warnings:  warnings,
	}, nil
}

// completeFailed records the failure and always returns the external error,
// even when recording itself fails.
func (s *service) completeFailed(ctx context.Context, diner *access.Caller, order *models.DinerOrder, result fulfillment.Result, submitErr error) error {
	reason := "rejected"
	if submitErr != nil {
		reason = "transport: " + submitErr.Error()
		s.logg.Error(ctx, "factory request failed", submitErr)
	} else {
		s.logg.Warn(s.logg.WithField(ctx, "report_url", result.ReportURL), "factory rejected order")
	}

	var reportURL *string
	if result.ReportURL != "" {
		reportURL = &result.ReportURL
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Transition(ctx, order.ID, enums.OrderStatusFulfillmentRequested, enums.OrderStatusFulfillmentFailed, reportURL); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfillmentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(diner),
			Data: payloads.OrderFulfillmentFailedEvent{
				OrderID:   order.ID,
				StoreID:   order.StoreID,
				ReportURL: result.ReportURL,
				Reason:    reason,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "failed to record fulfillment failure", err)
	}

	details := map[string]any{"reportUrl": result.ReportURL}
	if submitErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternal, submitErr, FulfillmentFailedMessage).WithDetails(details)
	}
	return pkgerrors.New(pkgerrors.CodeExternal, FulfillmentFailedMessage).WithDetails(details)
}

func (s *service) ListOrders(ctx context.Context, diner *access.Caller, params pagination.Params) (*ListOrdersResponse, error) {
	if !diner.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, access.ReasonUnauthorized)
	}
	params = params.Normalize()
	rows, more, err := s.repo.ListByDiner(ctx, diner.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return &ListOrdersResponse{
		DinerID: diner.UserID,
		Orders:  FromModels(rows),
		Page:    params.Page,
		More:    more,
	}, nil
}

func toFulfillmentOrder(order *models.DinerOrder) fulfillment.Order {
	items := make([]fulfillment.Item, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, fulfillment.Item{
			MenuID:      item.MenuID,
			Description: item.Description,
			Price:       item.Price,
		})
	}
	return fulfillment.Order{
		ID:          order.ID,
		FranchiseID: order.FranchiseID,
		StoreID:     order.StoreID,
		Date:        order.Date,
		Items:       items,
	}
}

func actorRef(caller *access.Caller) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: caller.UserID, Role: string(caller.PrimaryRole())}
}
