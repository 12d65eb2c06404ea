package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LifecycleManager owns every status change of an order.
type LifecycleManager struct {
	db       *gorm.DB
	notifier Notifier
	now      Clock
}

func NewLifecycleManager(db *gorm.DB, notifier Notifier, clock Clock) *LifecycleManager {
	if notifier == nil {
		notifier = Notifiers{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleManager{db: db, notifier: notifier, now: clock}
}

// Transition moves orderID from expected to target. Re-applying a transition that
// already happened succeeds without writing or notifying, so a duplicated tap on
// the kitchen display is harmless.
func (m *LifecycleManager) Transition(ctx context.Context, orderID uint, expected, target models.OrderStatus, actor string) (*models.Order, error) {
	if !expected.Valid() || !target.Valid() || !models.CanTransition(expected, target) {
		return nil, fmt.Errorf("%s -> %s: %w", expected, target, apperrors.ErrInvalidTransition)
	}

	var (
		order   models.Order
		changed bool
		at      = m.now().UTC()
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored, err := currentStatus(tx, orderID)
		if err != nil {
			return err
		}
		if stored == target {
			return withItems(tx).First(&order, orderID).Error
		}
		if stored != expected {
			return fmt.Errorf("order %d is %s, expected %s: %w", orderID, stored, expected, apperrors.ErrConflict)
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, expected).
			Updates(transitionColumns(target, at))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost the race; the winner may have applied the same target
			stored, err = currentStatus(tx, orderID)
			if err != nil {
				return err
			}
			if stored == target {
				return withItems(tx).First(&order, orderID).Error
			}
			return fmt.Errorf("order %d is %s, expected %s: %w", orderID, stored, expected, apperrors.ErrConflict)
		}

		entry := models.OrderStatusLog{
			OrderID:    orderID,
			FromStatus: expected,
			ToStatus:   target,
			ChangedBy:  actor,
			ChangedAt:  at,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		changed = true
		return withItems(tx).First(&order, orderID).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id": orderID,
			"from":     expected,
			"to":       target,
			"actor":    actor,
		}).Info("order status changed")

		m.notifier.OrderTransitioned(TransitionEvent{
			Order:     order,
			From:      expected,
			To:        target,
			Visible:   order.KitchenVisible(),
			ChangedBy: actor,
			ChangedAt: at,
		})
	}
	return &order, nil
}

func currentStatus(tx *gorm.DB, orderID uint) (models.OrderStatus, error) {
	var order models.Order
	if err := tx.Select("id", "status").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
		}
		return "", err
	}
	return order.Status, nil
}

func transitionColumns(target models.OrderStatus, at time.Time) map[string]interface{} {
	cols := map[string]interface{}{
		"status":            target,
		"status_changed_at": at,
	}
	switch target {
	case models.StatusCooking:
		cols["start_cooking_time"] = at
	case models.StatusPackaging:
		cols["finish_cooking_time"] = at
	case models.StatusCompleted:
		cols["completed_at"] = at
	}
	return cols
}
