package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createConcurrently(f *fixture, n int, slotID uint) (ok []*models.Order, errs []error) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			order, err := f.orders.CreateOrder(context.Background(), f.orderInput(&slotID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ok = append(ok, order)
		}()
	}
	close(start)
	wg.Wait()
	return ok, errs
}

func TestReserveLastSeatsUnderConcurrency(t *testing.T) {
	locker := newOverlapLocker(NewLocalSlotLocker())
	f := newFixtureOn(t, setupPooledDB(t), locker, AdmissionOptions{})
	slot := f.slot(t, "20:00", 2)

	granted, errs := createConcurrently(f, 3, slot.ID)
	maxHeld, acquired := locker.stats()
	assert.Equal(t, 1, maxHeld)
	assert.Equal(t, 3, acquired)
	require.Len(t, granted, 2)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperrors.ErrCapacityExceeded)
	assert.Equal(t, int64(2), f.liveCount(t, slot.ID))

	var rows int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows, "rejected admission must not leave an order behind")

	// rejecting one granted order frees exactly one unit
	_, err := f.lifecycle.Transition(context.Background(), granted[0].ID, models.StatusPending, models.StatusRejected, "staff:test")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.liveCount(t, slot.ID))

	fourth, err := f.orders.CreateOrder(context.Background(), f.orderInput(&slot.ID))
	require.NoError(t, err)
	assert.Equal(t, slot.ID, *fourth.SlotID)

	_, err = f.orders.CreateOrder(context.Background(), f.orderInput(&slot.ID))
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
}

func TestReserveManyCallersExactlyCapacitySucceed(t *testing.T) {
	locker := newOverlapLocker(NewLocalSlotLocker())
	f := newFixtureOn(t, setupPooledDB(t), locker, AdmissionOptions{})
	slot := f.slot(t, "21:00", 5)
	other := f.slot(t, "21:30", 5)

	granted, errs := createConcurrently(f, 20, slot.ID)
	maxHeld, acquired := locker.stats()
	assert.Equal(t, 1, maxHeld, "two admissions held the same slot-day at once")
	assert.Equal(t, 20, acquired)
	assert.Len(t, granted, 5)
	assert.Len(t, errs, 15)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	}
	assert.Equal(t, int64(5), f.liveCount(t, slot.ID))
	assert.Equal(t, int64(0), f.liveCount(t, other.ID))
}

func TestReserveEligibility(t *testing.T) {
	f := newFixture(t, AdmissionOptions{Cutoff: 30 * time.Minute})
	ctx := context.Background()
	noop := func(tx *gorm.DB, tok ReservationToken) error { return nil }

	past := f.slot(t, "09:00", 3)
	_, err := f.admission.Reserve(ctx, past.ID, models.ChannelDelivery, noop)
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)

	// 10:20 is inside the 30 minute cutoff
	soon := f.slot(t, "10:20", 3)
	_, err = f.admission.Reserve(ctx, soon.ID, models.ChannelDelivery, noop)
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)

	later := f.slot(t, "10:45", 3)
	tok, err := f.admission.Reserve(ctx, later.ID, models.ChannelDelivery, noop)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", tok.CalendarDate)
	assert.Equal(t, 2, tok.Remaining)
	assert.NotEmpty(t, tok.Token)

	inactive := false
	off, err := f.catalog.Upsert(ctx, nil, SlotInput{StartTime: "22:00", Capacity: 1, IsDelivery: true, Active: &inactive})
	require.NoError(t, err)
	_, err = f.admission.Reserve(ctx, off.ID, models.ChannelDelivery, noop)
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)

	pickupOnly, err := f.catalog.Upsert(ctx, nil, SlotInput{StartTime: "22:00", Capacity: 1, IsTakeaway: true})
	require.NoError(t, err)
	_, err = f.admission.Reserve(ctx, pickupOnly.ID, models.ChannelDelivery, noop)
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)
	_, err = f.admission.Reserve(ctx, pickupOnly.ID, models.ChannelTakeaway, noop)
	assert.NoError(t, err)

	_, err = f.admission.Reserve(ctx, 9999, models.ChannelDelivery, noop)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReserveBindFailureRollsBack(t *testing.T) {
	f := newFixture(t, AdmissionOptions{})
	slot := f.slot(t, "20:00", 1)

	boom := errors.New("insert failed")
	_, err := f.admission.Reserve(context.Background(), slot.ID, models.ChannelDelivery, func(tx *gorm.DB, tok ReservationToken) error {
		order := models.Order{Channel: models.ChannelDelivery, SlotID: &tok.SlotID, CalendarDate: tok.CalendarDate, Status: models.StatusPending}
		require.NoError(t, tx.Create(&order).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), f.liveCount(t, slot.ID))

	// an unknown product fails after the capacity check and leaves nothing either
	in := f.orderInput(&slot.ID)
	in.Items = []ItemInput{{ProductID: 4242, Quantity: 1}}
	_, err = f.orders.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, int64(0), f.liveCount(t, slot.ID))
}

func TestReserveBusyWhenSlotDayLocked(t *testing.T) {
	f := newFixture(t, AdmissionOptions{LockTimeout: 30 * time.Millisecond})
	slot := f.slot(t, "20:00", 3)

	release, err := f.locker.Acquire(context.Background(), SlotLockKey(slot.ID, "2026-10-14"))
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(context.Background(), f.orderInput(&slot.ID))
	assert.ErrorIs(t, err, apperrors.ErrBusy)
	assert.True(t, apperrors.Retryable(err))

	// another slot-day is not affected
	other := f.slot(t, "20:30", 3)
	_, err = f.orders.CreateOrder(context.Background(), f.orderInput(&other.ID))
	assert.NoError(t, err)

	release()
	_, err = f.orders.CreateOrder(context.Background(), f.orderInput(&slot.ID))
	assert.NoError(t, err)
}

func TestReserveUsesStoreTimezone(t *testing.T) {
	art := time.FixedZone("ART", -3*3600)
	// 01:00 UTC on the 15th is 22:00 on the 14th in the store
	clock := func() time.Time { return time.Date(2026, 10, 15, 1, 0, 0, 0, time.UTC) }
	f := newFixture(t, AdmissionOptions{Location: art, Clock: clock})

	late := f.slot(t, "23:00", 1)
	order, err := f.orders.CreateOrder(context.Background(), f.orderInput(&late.ID))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14", order.CalendarDate)

	early := f.slot(t, "21:30", 1)
	_, err = f.orders.CreateOrder(context.Background(), f.orderInput(&early.ID))
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, AdmissionOptions{})
	ctx := context.Background()

	gone := f.slot(t, "09:30", 2)
	full := f.slot(t, "20:00", 1)
	open := f.slot(t, "21:00", 3)
	_, err := f.catalog.Upsert(ctx, nil, SlotInput{StartTime: "22:00", Capacity: 2, IsTakeaway: true})
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, f.orderInput(&full.ID))
	require.NoError(t, err)
	cancelled, err := f.orders.CreateOrder(ctx, f.orderInput(&open.ID))
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, cancelled.ID, models.StatusPending, models.StatusCancelled, "admin:test")
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, f.orderInput(&open.ID))
	require.NoError(t, err)

	slots, err := f.admission.Availability(ctx, models.ChannelDelivery)
	require.NoError(t, err)
	require.Len(t, slots, 3, "takeaway-only slot is not listed for delivery")

	assert.Equal(t, gone.ID, slots[0].SlotID)
	assert.True(t, slots[0].IsPast)
	assert.False(t, slots[0].Eligible)

	assert.Equal(t, full.ID, slots[1].SlotID)
	assert.True(t, slots[1].IsFull)
	assert.Equal(t, 0, slots[1].RemainingCapacity)
	assert.False(t, slots[1].Eligible)

	assert.Equal(t, open.ID, slots[2].SlotID)
	assert.Equal(t, 2, slots[2].RemainingCapacity)
	assert.True(t, slots[2].Eligible)
}

// advancingLocker moves the clock forward every time a lock is granted, like a
// caller that waited behind a busy slot-day.
type advancingLocker struct {
	SlotLocker
	mu   sync.Mutex
	now  time.Time
	step time.Duration
	keys []string
}

func (l *advancingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	release, err := l.SlotLocker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.now = l.now.Add(l.step)
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return release, nil
}

func (l *advancingLocker) clock() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

func TestReserveChecksCutoffAfterLockWait(t *testing.T) {
	locker := &advancingLocker{SlotLocker: NewLocalSlotLocker(), now: testNow, step: 30 * time.Minute}
	f := newFixtureOn(t, setupTestDB(t), locker, AdmissionOptions{Clock: locker.clock})

	// open when the request arrives at 10:00, gone by the time the lock is held
	slot := f.slot(t, "10:20", 3)
	_, err := f.orders.CreateOrder(context.Background(), f.orderInput(&slot.ID))
	assert.ErrorIs(t, err, apperrors.ErrSlotIneligible)
}

func TestReserveLockWaitAcrossMidnight(t *testing.T) {
	start := time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)
	locker := &advancingLocker{SlotLocker: NewLocalSlotLocker(), now: start, step: 2 * time.Minute}
	f := newFixtureOn(t, setupTestDB(t), locker, AdmissionOptions{Clock: locker.clock})
	slot := f.slot(t, "12:00", 3)

	tok, err := f.admission.Reserve(context.Background(), slot.ID, models.ChannelDelivery, func(tx *gorm.DB, tok ReservationToken) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15", tok.CalendarDate)
	assert.Equal(t, []string{
		SlotLockKey(slot.ID, "2026-10-14"),
		SlotLockKey(slot.ID, "2026-10-15"),
	}, locker.keys)
}
