// Package store holds the generic gorm repository used by the plain CRUD
// resources (manufacturer products, trucks, drivers, employees).
package store

import (
	"context"
	"errors"

	"canteen_system/internal/apperr"

	"gorm.io/gorm"
)

// Validatable is a pointer to T that can check its own fields
type Validatable[T any] interface {
	*T
	Validate() error
}

// Page is one page of a listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage fills the derived fields of a page
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (int(total) + pageSize - 1) / pageSize,
	}
}

// Normalize clamps page to >= 1 and pageSize to 1..100 (default 20) and
// returns the row offset.
func Normalize(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}

// Repository is a CRUD repository over one model
type Repository[T any, PT Validatable[T]] struct {
	db   *gorm.DB
	name string // Used in client-facing messages
}

func NewRepository[T any, PT Validatable[T]](db *gorm.DB, name string) *Repository[T, PT] {
	return &Repository[T, PT]{db: db, name: name}
}

func (r *Repository[T, PT]) Create(ctx context.Context, e PT) error {
	if err := e.Validate(); err != nil {
		return apperr.Invalid(err.Error())
	}
	return r.translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *Repository[T, PT]) Get(ctx context.Context, id uint) (PT, error) {
	var e T
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, r.translate(err)
	}
	return &e, nil
}

func (r *Repository[T, PT]) List(ctx context.Context, page, pageSize int) (Page[T], error) {
	page, pageSize, offset := Normalize(page, pageSize)
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}
	var items []T
	if err := r.db.WithContext(ctx).Order("id asc").Offset(offset).Limit(pageSize).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, page, pageSize, total), nil
}

// Update overwrites the row identified by id with e
func (r *Repository[T, PT]) Update(ctx context.Context, id uint, e PT) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return apperr.Invalid(err.Error())
	}
	return r.translate(r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).
		Select("*").Omit("id", "created_at").Updates(e).Error)
}

func (r *Repository[T, PT]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return r.translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(r.name + " not found")
	}
	return nil
}

func (r *Repository[T, PT]) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(r.name + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(r.name + " already exists")
	}
	return err
}
