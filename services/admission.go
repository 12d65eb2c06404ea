package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// Clock returns the current instant. Tests replace it to pin "today".
type Clock func() time.Time

// ReservationToken is handed to the binder inside the admission transaction.
// It is not persisted; the order row bound with it is the reservation.
type ReservationToken struct {
	Token        string `json:"token"`
	SlotID       uint   `json:"slot_id"`
	StartTime    string `json:"start_time"`
	CalendarDate string `json:"calendar_date"`
	Remaining    int    `json:"remaining"`
}

// BindFunc persists the order for a granted reservation using tx.
// Returning an error rolls the whole admission back.
type BindFunc func(tx *gorm.DB, token ReservationToken) error

type SlotAvailability struct {
	SlotID            uint   `json:"slot_id"`
	StartTime         string `json:"start_time"`
	Capacity          int    `json:"capacity"`
	RemainingCapacity int    `json:"remaining_capacity"`
	Eligible          bool   `json:"eligible"`
	IsPast            bool   `json:"is_past"`
	IsFull            bool   `json:"is_full"`
}

type AdmissionOptions struct {
	Location    *time.Location
	Cutoff      time.Duration
	LockTimeout time.Duration
	Clock       Clock
}

type AdmissionController struct {
	db          *gorm.DB
	catalog     *SlotCatalog
	locker      SlotLocker
	loc         *time.Location
	cutoff      time.Duration
	lockTimeout time.Duration
	now         Clock
}

func NewAdmissionController(db *gorm.DB, catalog *SlotCatalog, locker SlotLocker, opts AdmissionOptions) *AdmissionController {
	a := &AdmissionController{
		db:          db,
		catalog:     catalog,
		locker:      locker,
		loc:         opts.Location,
		cutoff:      opts.Cutoff,
		lockTimeout: opts.LockTimeout,
		now:         opts.Clock,
	}
	if a.loc == nil {
		a.loc = time.UTC
	}
	if a.lockTimeout <= 0 {
		a.lockTimeout = 3 * time.Second
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Today is the calendar date orders created now are scoped to.
func (a *AdmissionController) Today() string {
	return a.now().In(a.loc).Format(dateLayout)
}

// Reserve grants one unit of today's capacity on slotID and runs bind in the
// same transaction. The count and the insert happen while the slot-day lock is
// held, so concurrent callers observe each other's orders.
func (a *AdmissionController) Reserve(ctx context.Context, slotID uint, channel models.Channel, bind BindFunc) (*ReservationToken, error) {
	now, day, release, err := a.lockSlotDay(ctx, slotID)
	if err != nil {
		return nil, err
	}
	defer release()

	var token ReservationToken
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot models.SlotTemplate
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&slot, slotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("slot %d: %w", slotID, apperrors.ErrNotFound)
			}
			return err
		}
		if err := a.checkEligible(&slot, channel, now); err != nil {
			return err
		}

		count, err := liveCount(tx, slot.ID, day)
		if err != nil {
			return err
		}
		if count >= int64(slot.Capacity) {
			return fmt.Errorf("slot %d on %s holds %d of %d: %w",
				slot.ID, day, count, slot.Capacity, apperrors.ErrCapacityExceeded)
		}

		token = ReservationToken{
			Token:        uuid.NewString(),
			SlotID:       slot.ID,
			StartTime:    slot.StartTime,
			CalendarDate: day,
			Remaining:    slot.Capacity - int(count) - 1,
		}
		return bind(tx, token)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"slot_id":   token.SlotID,
		"date":      token.CalendarDate,
		"remaining": token.Remaining,
	}).Info("slot reserved")
	return &token, nil
}

// lockSlotDay holds the lock for slotID on the current day and returns the clock
// reading taken once the lock is held. A wait that crosses midnight retries on
// the new day.
func (a *AdmissionController) lockSlotDay(ctx context.Context, slotID uint) (time.Time, string, func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, a.lockTimeout)
	defer cancel()

	day := a.now().In(a.loc).Format(dateLayout)
	for {
		release, err := a.locker.Acquire(lockCtx, SlotLockKey(slotID, day))
		if err != nil {
			utils.InfoLogger.WithFields(logrus.Fields{"slot_id": slotID, "date": day}).Warn("admission lock timeout")
			return time.Time{}, "", nil, err
		}
		now := a.now().In(a.loc)
		if today := now.Format(dateLayout); today != day {
			release()
			day = today
			continue
		}
		return now, day, release, nil
	}
}

// Availability lists today's slots for channel. The numbers are advisory;
// Reserve checks again under the lock.
func (a *AdmissionController) Availability(ctx context.Context, channel models.Channel) ([]SlotAvailability, error) {
	slots, err := a.catalog.ListTemplates(ctx, channel)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return []SlotAvailability{}, nil
	}

	now := a.now().In(a.loc)
	day := now.Format(dateLayout)
	ids := make([]uint, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}

	var rows []struct {
		SlotID uint
		Count  int64
	}
	err = a.db.WithContext(ctx).Model(&models.Order{}).
		Select("slot_id, COUNT(*) AS count").
		Where("slot_id IN ? AND calendar_date = ? AND status NOT IN ?", ids, day, models.ReleasedStatuses).
		Group("slot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	used := make(map[uint]int64, len(rows))
	for _, r := range rows {
		used[r.SlotID] = r.Count
	}

	out := make([]SlotAvailability, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		remaining := s.Capacity - int(used[s.ID])
		if remaining < 0 {
			remaining = 0
		}
		past := a.isPast(s, now)
		out = append(out, SlotAvailability{
			SlotID:            s.ID,
			StartTime:         s.StartTime,
			Capacity:          s.Capacity,
			RemainingCapacity: remaining,
			IsPast:            past,
			IsFull:            remaining == 0,
			Eligible:          !past && remaining > 0,
		})
	}
	return out, nil
}

func (a *AdmissionController) checkEligible(slot *models.SlotTemplate, channel models.Channel, now time.Time) error {
	if !slot.Active {
		return fmt.Errorf("slot %d is inactive: %w", slot.ID, apperrors.ErrSlotIneligible)
	}
	if !slot.Serves(channel) {
		return fmt.Errorf("slot %d does not serve %s: %w", slot.ID, channel, apperrors.ErrSlotIneligible)
	}
	if a.isPast(slot, now) {
		return fmt.Errorf("slot %d at %s has passed: %w", slot.ID, slot.StartTime, apperrors.ErrSlotIneligible)
	}
	return nil
}

// isPast treats a slot as gone once now plus the cutoff reaches its start.
func (a *AdmissionController) isPast(slot *models.SlotTemplate, now time.Time) bool {
	start, err := slot.StartOn(now, a.loc)
	if err != nil {
		return true
	}
	return !now.Add(a.cutoff).Before(start)
}

// liveCount is the capacity denominator for a slot-day.
func liveCount(tx *gorm.DB, slotID uint, day string) (int64, error) {
	var count int64
	err := tx.Model(&models.Order{}).
		Where("slot_id = ? AND calendar_date = ? AND status NOT IN ?", slotID, day, models.ReleasedStatuses).
		Count(&count).Error
	return count, err
}
