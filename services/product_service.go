package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductInput struct {
	Name   *string          `json:"name"`
	Price  *decimal.Decimal `json:"price"`
	Active *bool            `json:"active"`
}

type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("name ASC, id ASC").Find(&products).Error
	return products, err
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: product name is required", apperrors.ErrInvalidInput)
	}
	if in.Price == nil || in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: product price must be zero or more", apperrors.ErrInvalidInput)
	}
	p := models.Product{Name: strings.TrimSpace(*in.Name), Price: *in.Price, Active: true}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Update changes the catalog only. Items already on orders keep their snapshot.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: product name is required", apperrors.ErrInvalidInput)
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product price must be zero or more", apperrors.ErrInvalidInput)
		}
		p.Price = *in.Price
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// lookupProducts loads the referenced products through tx keyed by id.
func lookupProducts(tx *gorm.DB, ids []uint) (map[uint]models.Product, error) {
	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
