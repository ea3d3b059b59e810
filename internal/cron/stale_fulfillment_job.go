package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/orders"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
)

const (
	defaultStaleAfter = 15 * time.Minute
	staleBatchSize    = 100
	staleReason       = "stale: no factory verdict recorded"
)

// StaleFulfillmentJobParams configure the stale order sweep.
type StaleFulfillmentJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     orders.Repository
	Outbox     outbox.Emitter
	StaleAfter time.Duration
}

// NewStaleFulfillmentJob builds the job that fails orders whose fulfillment
// never completed, for example because the API process died mid-request.
func NewStaleFulfillmentJob(params StaleFulfillmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleFulfillmentJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleFulfillmentJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     orders.Repository
	outbox     outbox.Emitter
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleFulfillmentJob) Name() string { return "stale-fulfillment" }

func (j *staleFulfillmentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	stale, err := j.orders.ListStale(ctx, []enums.OrderStatus{
		enums.OrderStatusPersisted,
		enums.OrderStatusFulfillmentRequested,
	}, cutoff, staleBatchSize)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	var errs error
	failed := 0
	for _, order := range stale {
		if err := j.fail(ctx, order); err != nil {
			if errors.Is(err, orders.ErrStaleTransition) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("order %d: %w", order.ID, err))
			continue
		}
		failed++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(stale),
		"failed":  failed,
	}), "stale fulfillment sweep complete")
	return errs
}

func (j *staleFulfillmentJob) fail(ctx context.Context, order models.DinerOrder) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		if order.Status == enums.OrderStatusPersisted {
			if err := repo.Transition(ctx, order.ID, enums.OrderStatusPersisted, enums.OrderStatusFulfillmentRequested, nil); err != nil {
				return err
			}
		}
		if err := repo.Transition(ctx, order.ID, enums.OrderStatusFulfillmentRequested, enums.OrderStatusFulfillmentFailed, nil); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfillmentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderFulfillmentFailedEvent{
				OrderID: order.ID,
				StoreID: order.StoreID,
				Reason:  staleReason,
			},
		})
	})
}
