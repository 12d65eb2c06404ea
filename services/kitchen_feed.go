package services

import (
	"context"
	"fmt"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"gorm.io/gorm"
)

// KitchenFeed is the read-only projection polled by kitchen displays.
type KitchenFeed struct {
	db *gorm.DB
}

func NewKitchenFeed(db *gorm.DB) *KitchenFeed {
	return &KitchenFeed{db: db}
}

// ListActive returns orders in any of statuses, oldest first with id as the
// tie breaker. An empty filter means the cooking queue.
func (k *KitchenFeed) ListActive(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	if len(statuses) == 0 {
		statuses = models.KitchenStatuses
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, st)
		}
	}

	var orders []models.Order
	err := withItems(k.db.WithContext(ctx)).
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
