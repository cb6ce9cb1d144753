package service

import (
	"context"
	"fmt"
	"time"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"
	"canteen_system/internal/store"
	"canteen_system/internal/utils"
)

func historyPrefix(userID uint) string { return fmt.Sprintf("txhistory:user:%d:", userID) }

// TransactionFilter narrows ledger listings. A zero UserID lists every user.
type TransactionFilter struct {
	UserID   uint
	Type     domain.TransactionType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// ListTransactions returns ledger entries newest first with their line items
func (s *Service) ListTransactions(ctx context.Context, f TransactionFilter) (store.Page[domain.Transaction], error) {
	page, pageSize, offset := store.Normalize(f.Page, f.PageSize)
	query := s.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return store.Page[domain.Transaction]{}, err
	}
	var txs []domain.Transaction
	if err := query.Preload("Purchases").Order("created_at desc, id desc").
		Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
		return store.Page[domain.Transaction]{}, err
	}
	return store.NewPage(txs, page, pageSize, total), nil
}

// GetTransaction returns one entry. A non-zero ownerID restricts it to that user.
func (s *Service) GetTransaction(ctx context.Context, id, ownerID uint) (*domain.Transaction, error) {
	var entry domain.Transaction
	if err := s.db.WithContext(ctx).Preload("Purchases").First(&entry, id).Error; err != nil {
		return nil, notFound(err, "Transaction not found")
	}
	if ownerID != 0 && entry.UserID != ownerID {
		return nil, apperr.NotFound("Transaction not found")
	}
	return &entry, nil
}

// History is a user's own ledger, one cached page at a time. The second
// result reports a cache hit.
func (s *Service) History(ctx context.Context, userID uint, page, pageSize int) (store.Page[domain.Transaction], bool, error) {
	page, pageSize, _ = store.Normalize(page, pageSize)
	key := fmt.Sprintf("%spage:%d:size:%d", historyPrefix(userID), page, pageSize)
	var cached store.Page[domain.Transaction]
	if found, err := utils.GetCache(ctx, s.rdb, key, &cached); err == nil && found {
		return cached, true, nil
	}
	result, err := s.ListTransactions(ctx, TransactionFilter{UserID: userID, Page: page, PageSize: pageSize})
	if err != nil {
		return result, false, err
	}
	_ = utils.SetCache(ctx, s.rdb, key, result, historyCacheTTL)
	return result, false, nil
}
