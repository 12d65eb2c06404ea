package services

import (
	"errors"
	"time"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"gorm.io/gorm"
)

// TransitionMonitor tails order_status_logs and replays new rows to a notifier.
// It lets every instance push kitchen updates for transitions committed by its peers.
type TransitionMonitor struct {
	DB       *gorm.DB
	Notifier Notifier
	StopChan chan struct{}
	Interval time.Duration

	lastID uint
}

func NewTransitionMonitor(db *gorm.DB, notifier Notifier, interval time.Duration) *TransitionMonitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &TransitionMonitor{
		DB:       db,
		Notifier: notifier,
		StopChan: make(chan struct{}),
		Interval: interval,
	}
}

// Start skips history already in the table and polls from there on.
func (tm *TransitionMonitor) Start() {
	var last models.OrderStatusLog
	if err := tm.DB.Order("id DESC").Limit(1).Find(&last).Error; err == nil {
		tm.lastID = last.ID
	}

	go func() {
		ticker := time.NewTicker(tm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				tm.checkChanges()
			case <-tm.StopChan:
				return
			}
		}
	}()
}

func (tm *TransitionMonitor) Stop() {
	close(tm.StopChan)
}

// checkChanges returns the number of rows it forwarded.
func (tm *TransitionMonitor) checkChanges() int {
	var logs []models.OrderStatusLog
	if err := tm.DB.Where("id > ?", tm.lastID).Order("id ASC").Limit(100).Find(&logs).Error; err != nil {
		utils.ErrorLogger.Errorf("Error fetching status changes: %v", err)
		return 0
	}

	for _, entry := range logs {
		tm.lastID = entry.ID

		var order models.Order
		err := withItems(tm.DB).First(&order, entry.OrderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// purged since
			continue
		}
		if err != nil {
			utils.ErrorLogger.Errorf("Error fetching order %d: %v", entry.OrderID, err)
			continue
		}

		tm.Notifier.OrderTransitioned(TransitionEvent{
			Order:     order,
			From:      entry.FromStatus,
			To:        entry.ToStatus,
			Visible:   models.IsKitchenStatus(entry.ToStatus),
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
		})
	}
	return len(logs)
}
