package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemInput struct {
	ProductID uint                  `json:"product_id" binding:"required"`
	Quantity  int                   `json:"quantity" binding:"required"`
	Modifiers []models.ItemModifier `json:"modifiers"`
	SideRef   *uint                 `json:"side_ref"`
	DrinkRef  *uint                 `json:"drink_ref"`
	Notes     string                `json:"notes"`
}

func (in ItemInput) validate() error {
	if in.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrInvalidInput)
	}
	for _, m := range in.Modifiers {
		if strings.TrimSpace(m.Name) == "" || m.Quantity < 1 {
			return fmt.Errorf("%w: modifiers need a name and a quantity of at least 1", apperrors.ErrInvalidInput)
		}
	}
	return nil
}

type CreateOrderInput struct {
	Channel         models.Channel `json:"channel" binding:"required"`
	SlotID          *uint          `json:"slot_id"`
	Items           []ItemInput    `json:"items" binding:"required,dive"`
	PaymentMethod   string         `json:"payment_method"`
	CustomerName    string         `json:"customer_name"`
	DeliveryAddress string         `json:"delivery_address"`
	Notes           string         `json:"notes"`
}

type OrderFilter struct {
	Status models.OrderStatus
	Date   string
}

// OrderService persists orders and their items. Slot-bound orders are created
// through the admission controller so the capacity check and the insert commit together.
type OrderService struct {
	db        *gorm.DB
	admission *AdmissionController
	notifier  Notifier
}

func NewOrderService(db *gorm.DB, admission *AdmissionController, notifier Notifier) *OrderService {
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &OrderService{db: db, admission: admission, notifier: notifier}
}

func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if _, err := models.ParseChannel(string(in.Channel)); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", apperrors.ErrInvalidInput)
	}
	for _, item := range in.Items {
		if err := item.validate(); err != nil {
			return nil, err
		}
	}

	order := &models.Order{
		Channel:         in.Channel,
		Status:          models.StatusPending,
		CalendarDate:    s.admission.Today(),
		PaymentMethod:   in.PaymentMethod,
		CustomerName:    in.CustomerName,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
	}
	insert := func(tx *gorm.DB) error {
		items, err := buildItems(tx, in.Items)
		if err != nil {
			return err
		}
		order.OrderItems = items
		order.Total = order.ComputeTotal()
		return tx.Create(order).Error
	}

	var err error
	if in.SlotID != nil {
		_, err = s.admission.Reserve(ctx, *in.SlotID, in.Channel, func(tx *gorm.DB, token ReservationToken) error {
			order.SlotID = &token.SlotID
			order.CalendarDate = token.CalendarDate
			return insert(tx)
		})
	} else {
		err = s.db.WithContext(ctx).Transaction(insert)
	}
	if err != nil {
		return nil, err
	}

	verifyTotal(order)
	fields := logrus.Fields{
		"order_id": order.ID,
		"channel":  order.Channel,
		"total":    order.Total.String(),
	}
	if order.SlotID != nil {
		fields["slot_id"] = *order.SlotID
	}
	utils.InfoLogger.WithFields(fields).Info("order created")
	s.notifier.OrderCreated(*order)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withItems(s.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	query := withItems(s.db.WithContext(ctx))
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		query = query.Where("calendar_date = ?", f.Date)
	}
	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// AddItem appends a line and re-derives the total in the same transaction.
func (s *OrderService) AddItem(ctx context.Context, orderID uint, in ItemInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.mutateItems(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		items, err := buildItems(tx, []ItemInput{in})
		if err != nil {
			return err
		}
		items[0].OrderID = order.ID
		return tx.Create(&items[0]).Error
	})
}

// RemoveItem drops a line. The last line cannot be removed; cancel the order instead.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	return s.mutateItems(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		var count int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND order_id = ?", itemID, order.ID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("item %d on order %d: %w", itemID, order.ID, apperrors.ErrNotFound)
		}
		if count <= 1 {
			return fmt.Errorf("%w: an order keeps at least one item", apperrors.ErrInvalidInput)
		}
		return nil
	})
}

func (s *OrderService) mutateItems(ctx context.Context, orderID uint, mutate func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %d: %w", orderID, apperrors.ErrNotFound)
			}
			return err
		}
		if order.TicketLocked() {
			return fmt.Errorf("order %d: %w", orderID, apperrors.ErrTicketLocked)
		}
		if !order.Status.ItemsEditable() {
			return fmt.Errorf("order %d is %s, items can no longer change: %w", orderID, order.Status, apperrors.ErrConflict)
		}
		if err := mutate(tx, &order); err != nil {
			return err
		}
		if err := recomputeTotal(tx, order.ID); err != nil {
			return err
		}
		order = models.Order{}
		return withItems(tx).First(&order, orderID).Error
	})
	if err != nil {
		return nil, err
	}
	verifyTotal(&order)
	return &order, nil
}

func (s *OrderService) MarkPaid(ctx context.Context, id uint) (*models.Order, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("is_paid", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Purge physically removes an order and everything hanging off it. It is an
// operator bypass of the lifecycle and emits no transition.
func (s *OrderService) Purge(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticketIDs []uint
		if err := tx.Model(&models.Ticket{}).Where("order_id = ?", id).Pluck("id", &ticketIDs).Error; err != nil {
			return err
		}
		if len(ticketIDs) > 0 {
			if err := tx.Where("ticket_id IN ?", ticketIDs).Delete(&models.TicketItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", ticketIDs).Delete(&models.Ticket{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	utils.InfoLogger.WithField("order_id", id).Warn("order purged")
	return nil
}

// buildItems resolves product references through tx and snapshots name and price.
func buildItems(tx *gorm.DB, inputs []ItemInput) ([]models.OrderItem, error) {
	var ids []uint
	for _, in := range inputs {
		ids = append(ids, in.ProductID)
		if in.SideRef != nil {
			ids = append(ids, *in.SideRef)
		}
		if in.DrinkRef != nil {
			ids = append(ids, *in.DrinkRef)
		}
	}
	products, err := lookupProducts(tx, ids)
	if err != nil {
		return nil, err
	}
	ref := func(id uint) (models.Product, error) {
		p, ok := products[id]
		if !ok {
			return p, fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
		}
		if !p.Active {
			return p, fmt.Errorf("%w: product %d is not available", apperrors.ErrInvalidInput, id)
		}
		return p, nil
	}

	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		p, err := ref(in.ProductID)
		if err != nil {
			return nil, err
		}
		modifiers := in.Modifiers
		if modifiers == nil {
			modifiers = []models.ItemModifier{}
		}
		item := models.OrderItem{
			ProductID:         p.ID,
			ProductName:       p.Name,
			Quantity:          in.Quantity,
			UnitPriceSnapshot: p.Price,
			Modifiers:         modifiers,
			Notes:             in.Notes,
		}
		if in.SideRef != nil {
			side, err := ref(*in.SideRef)
			if err != nil {
				return nil, err
			}
			item.SideRef, item.SideName = &side.ID, side.Name
		}
		if in.DrinkRef != nil {
			drink, err := ref(*in.DrinkRef)
			if err != nil {
				return nil, err
			}
			item.DrinkRef, item.DrinkName = &drink.ID, drink.Name
		}
		items = append(items, item)
	}
	return items, nil
}

func recomputeTotal(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	o := models.Order{OrderItems: items}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total", o.ComputeTotal()).Error
}

// verifyTotal panics when the stored total drifts from the items. That can only
// come from a bug in the item mutation code paths.
func verifyTotal(order *models.Order) {
	if want := order.ComputeTotal(); !order.Total.Equal(want) {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"stored":   order.Total.String(),
			"computed": want.String(),
		}).Error("order total diverged from its items")
		panic(fmt.Sprintf("order %d total %s != items %s", order.ID, order.Total, want))
	}
}

func withItems(tx *gorm.DB) *gorm.DB {
	return tx.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}
