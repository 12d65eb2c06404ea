package database

import (
	"fmt"

	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns and verifies the
// index backing the per slot-day capacity count.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.SlotTemplate{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.Ticket{},
		&models.TicketItem{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if !db.Migrator().HasIndex(&models.Order{}, "idx_orders_slot_day") {
		if err := db.Migrator().CreateIndex(&models.Order{}, "idx_orders_slot_day"); err != nil {
			return fmt.Errorf("create idx_orders_slot_day: %w", err)
		}
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
