package services

import (
	"context"
	"testing"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKitchenFeedOrdering(t *testing.T) {
	f := newFixture(t, AdmissionOptions{})
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 4; i++ {
		o, err := f.orders.CreateOrder(ctx, f.orderInput(nil))
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	for _, id := range ids[:3] {
		_, err := f.lifecycle.Transition(ctx, id, models.StatusPending, models.StatusCooking, "chef:a")
		require.NoError(t, err)
	}

	// ids[0] and ids[1] share a timestamp; ids[2] is the oldest
	tie := testNow.Add(-10 * time.Minute)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id IN ?", ids[:2]).Update("created_at", tie).Error)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", ids[2]).Update("created_at", tie.Add(-time.Minute)).Error)

	feed, err := f.kitchen.ListActive(ctx, nil)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, []uint{ids[2], ids[0], ids[1]}, []uint{feed[0].ID, feed[1].ID, feed[2].ID})
	assert.Len(t, feed[0].OrderItems, 2)
}

func TestKitchenFeedStatusFilter(t *testing.T) {
	f := newFixture(t, AdmissionOptions{})
	ctx := context.Background()

	pending, err := f.orders.CreateOrder(ctx, f.orderInput(nil))
	require.NoError(t, err)
	packed, err := f.orders.CreateOrder(ctx, f.orderInput(nil))
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, packed.ID, models.StatusPending, models.StatusCooking, "chef:a")
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, packed.ID, models.StatusCooking, models.StatusPackaging, "chef:a")
	require.NoError(t, err)

	feed, err := f.kitchen.ListActive(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, feed)

	feed, err = f.kitchen.ListActive(ctx, []models.OrderStatus{models.StatusPending, models.StatusPackaging})
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, pending.ID, feed[0].ID)
	assert.Equal(t, packed.ID, feed[1].ID)

	_, err = f.kitchen.ListActive(ctx, []models.OrderStatus{"burnt"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
