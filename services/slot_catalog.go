package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"gorm.io/gorm"
)

type SlotInput struct {
	StartTime  string `json:"start_time" binding:"required"`
	Capacity   int    `json:"capacity" binding:"required"`
	IsDelivery bool   `json:"is_delivery"`
	IsTakeaway bool   `json:"is_takeaway"`
	Active     *bool  `json:"active"`
}

func (in SlotInput) validate() error {
	if _, _, err := models.ParseClock(in.StartTime); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if in.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", apperrors.ErrInvalidInput)
	}
	if !in.IsDelivery && !in.IsTakeaway {
		return fmt.Errorf("%w: slot must serve at least one channel", apperrors.ErrInvalidInput)
	}
	return nil
}

// SlotCatalog stores slot templates. It holds no state beyond the database handle.
type SlotCatalog struct {
	db *gorm.DB
}

func NewSlotCatalog(db *gorm.DB) *SlotCatalog {
	return &SlotCatalog{db: db}
}

// ListTemplates returns active templates serving channel, earliest first.
func (s *SlotCatalog) ListTemplates(ctx context.Context, channel models.Channel) ([]models.SlotTemplate, error) {
	query := s.db.WithContext(ctx).Where("active = ?", true)
	switch channel {
	case models.ChannelDelivery:
		query = query.Where("is_delivery = ?", true)
	case models.ChannelTakeaway:
		query = query.Where("is_takeaway = ?", true)
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", apperrors.ErrInvalidInput, channel)
	}

	var slots []models.SlotTemplate
	if err := query.Order("start_time ASC, id ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// ListAll includes inactive templates for the operator view.
func (s *SlotCatalog) ListAll(ctx context.Context) ([]models.SlotTemplate, error) {
	var slots []models.SlotTemplate
	if err := s.db.WithContext(ctx).Order("start_time ASC, id ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *SlotCatalog) Get(ctx context.Context, id uint) (*models.SlotTemplate, error) {
	var slot models.SlotTemplate
	if err := s.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("slot %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &slot, nil
}

// Upsert creates a template when id is nil and replaces the given one otherwise.
// Orders already bound to the template are not touched.
func (s *SlotCatalog) Upsert(ctx context.Context, id *uint, in SlotInput) (*models.SlotTemplate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	if id == nil {
		slot := models.SlotTemplate{
			StartTime:  in.StartTime,
			Capacity:   in.Capacity,
			IsDelivery: in.IsDelivery,
			IsTakeaway: in.IsTakeaway,
			Active:     active,
		}
		if err := s.db.WithContext(ctx).Create(&slot).Error; err != nil {
			return nil, err
		}
		return &slot, nil
	}

	slot, err := s.Get(ctx, *id)
	if err != nil {
		return nil, err
	}
	slot.StartTime = in.StartTime
	slot.Capacity = in.Capacity
	slot.IsDelivery = in.IsDelivery
	slot.IsTakeaway = in.IsTakeaway
	slot.Active = active
	if err := s.db.WithContext(ctx).Save(slot).Error; err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *SlotCatalog) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.SlotTemplate{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("slot %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
