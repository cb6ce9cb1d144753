package service

import (
	"context"
	"strings"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"
	"canteen_system/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProductInput creates or replaces a product's editable fields
type ProductInput struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" binding:"gte=0"`
	IsActive    *bool           `json:"is_active"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("Name is required")
	}
	if !in.Price.IsPositive() {
		return apperr.Invalid("Price must be positive")
	}
	if in.Stock < 0 {
		return apperr.Invalid("Stock must not be negative")
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, activeProductsKey)
	return &p, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	var p domain.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "Product not found")
	}
	return &p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"description": in.Description,
		"price":       in.Price.Round(2),
		"stock":       in.Stock,
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.invalidate(ctx, activeProductsKey)
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes: the row stays for purchase history
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Product not found")
	}
	s.invalidate(ctx, activeProductsKey)
	return nil
}

// Restock adjusts stock by delta; the result may not go below zero
func (s *Service) Restock(ctx context.Context, id uint, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, apperr.Invalid("Delta must not be zero")
	}
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Invalid("Stock cannot go below zero")
	}
	s.invalidate(ctx, activeProductsKey)
	logrus.WithFields(logrus.Fields{"product_id": id, "delta": delta}).Info("Product restocked")
	return s.GetProduct(ctx, id)
}

func (s *Service) SetProductImage(ctx context.Context, id uint, path string) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(p).Update("image_path", path).Error; err != nil {
		return nil, err
	}
	p.ImagePath = path
	s.invalidate(ctx, activeProductsKey)
	return p, nil
}

// ListProducts returns the catalog. The active catalog is cached; the second
// result reports a cache hit.
func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, bool, error) {
	if !includeInactive {
		var cached []domain.Product
		if found, err := utils.GetCache(ctx, s.rdb, activeProductsKey, &cached); err == nil && found {
			return cached, true, nil
		}
	}
	query := s.db.WithContext(ctx).Order("name asc")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	products := []domain.Product{}
	if err := query.Find(&products).Error; err != nil {
		return nil, false, err
	}
	if !includeInactive {
		_ = utils.SetCache(ctx, s.rdb, activeProductsKey, products, catalogCacheTTL)
	}
	return products, false, nil
}
