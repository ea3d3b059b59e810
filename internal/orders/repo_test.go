package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

func TestTransitionIsGuardedByCurrentStatus(t *testing.T) {
	client := dbtest.New(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	order := &models.DinerOrder{
		DinerID:     1,
		FranchiseID: 1,
		StoreID:     1,
		Date:        time.Now().UTC(),
		Status:      enums.OrderStatusPersisted,
		Items:       []models.OrderItem{{MenuID: 1, Description: "Veggie", Price: decimal.RequireFromString("0.5")}},
	}
	require.NoError(t, repo.Create(ctx, order))
	require.NotZero(t, order.Items[0].OrderID)

	err := repo.Transition(ctx, order.ID, enums.OrderStatusPersisted, enums.OrderStatusFulfilled, nil)
	require.Error(t, err, "skipping fulfillment_requested is not allowed")

	require.NoError(t, repo.Transition(ctx, order.ID, enums.OrderStatusPersisted, enums.OrderStatusFulfillmentRequested, nil))

	err = repo.Transition(ctx, order.ID, enums.OrderStatusPersisted, enums.OrderStatusFulfillmentRequested, nil)
	assert.ErrorIs(t, err, ErrStaleTransition)

	url := "https://factory/report/7"
	require.NoError(t, repo.Transition(ctx, order.ID, enums.OrderStatusFulfillmentRequested, enums.OrderStatusFulfilled, &url))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFulfilled, loaded.Status)
	require.NotNil(t, loaded.ReportURL)
	assert.Equal(t, url, *loaded.ReportURL)
	require.Len(t, loaded.Items, 1)
}
