package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LineItem is one product and quantity of a purchase request
type LineItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// PurchaseInput describes a debit of a user's balance for goods
type PurchaseInput struct {
	UserID      uint
	Items       []LineItem
	PerformedBy uint
	PIN         string // Required when the user configured a PIN
	Note        string
}

func outOfStock(productID uint) error {
	return apperr.Invalid(fmt.Sprintf("Invalid or out-of-stock product: %d", productID))
}

// Purchase debits the user's balance and the products' stock atomically.
// Either every write (ledger entry, line items, stock, balance) is committed
// or none is.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*domain.Transaction, error) {
	entry, err := s.purchase(ctx, in)
	result := "success"
	if err != nil {
		result = kindLabel(err)
		logrus.WithFields(logrus.Fields{
			"user_id":      in.UserID,
			"performed_by": in.PerformedBy,
			"items":        len(in.Items),
			"error":        err.Error(),
		}).Warn("Purchase rejected")
	}
	purchasesTotal.WithLabelValues(result).Inc()
	return entry, err
}

func (s *Service) purchase(ctx context.Context, in PurchaseInput) (*domain.Transaction, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Invalid("At least one item is required")
	}
	// Merge repeated products so each stock row is checked against the full quantity
	quantities := make(map[uint]int, len(in.Items))
	var productIDs []uint
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, apperr.Invalid("Quantity must be positive")
		}
		if _, seen := quantities[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	if err := s.checkPIN(ctx, in.UserID, in.PIN); err != nil {
		return nil, err
	}

	var entry domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			return notFound(err, "User not found")
		}
		if user.Status != domain.UserActive {
			return apperr.Forbidden("User account is not active")
		}

		total := decimal.Zero
		lines := make([]domain.Purchase, 0, len(productIDs))
		for _, id := range productIDs {
			var product domain.Product
			if err := tx.First(&product, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return outOfStock(id)
				}
				return err
			}
			qty := quantities[id]
			if !product.IsActive || product.Stock < qty {
				return outOfStock(id)
			}
			subtotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(subtotal)
			lines = append(lines, domain.Purchase{
				ProductID: id,
				Quantity:  qty,
				UnitPrice: product.Price, // Snapshot so later price changes leave history intact
				Subtotal:  subtotal,
			})
		}

		if user.Balance.Round(2).LessThan(total) {
			return apperr.Insufficient("Insufficient balance")
		}

		// Guarded decrements: zero rows affected means a concurrent writer got there first.
		// Balance arithmetic is rounded in SQL since SQLite stores decimals as REAL.
		for _, line := range lines {
			res := tx.Model(&domain.Product{}).
				Where("id = ? AND is_active = ? AND stock >= ?", line.ProductID, true, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return outOfStock(line.ProductID)
			}
		}
		res := tx.Model(&domain.User{}).
			Where("id = ? AND balance >= ?", user.ID, total).
			UpdateColumn("balance", gorm.Expr("ROUND(balance - ?, 2)", total))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Insufficient("Insufficient balance")
		}

		after, err := currentBalance(tx, user.ID)
		if err != nil {
			return err
		}
		entry = domain.Transaction{
			UserID:        user.ID,
			Type:          domain.TxPurchase,
			Amount:        total,
			BalanceBefore: after.Add(total),
			BalanceAfter:  after,
			PerformedBy:   in.PerformedBy,
			Note:          in.Note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].TransactionID = entry.ID
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		entry.Purchases = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        entry.UserID,
		"performed_by":   entry.PerformedBy,
		"transaction_id": entry.ID,
		"amount":         entry.Amount.StringFixed(2),
		"balance_after":  entry.BalanceAfter.StringFixed(2),
		"type":           string(entry.Type),
		"timestamp":      time.Now().Format(time.RFC3339),
	}).Info("Purchase transaction")
	s.invalidate(ctx, profileKey(entry.UserID), activeProductsKey)
	s.invalidateHistory(ctx, entry.UserID)
	return &entry, nil
}

// RechargeInput describes a credit to a user's balance
type RechargeInput struct {
	UserID      uint
	Amount      decimal.Decimal
	PerformedBy uint
	Note        string
}

// Recharge credits a user's balance and writes the ledger entry in one transaction
func (s *Service) Recharge(ctx context.Context, in RechargeInput) (*domain.Transaction, error) {
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return nil, apperr.Invalid("Amount must have at most 2 decimal places")
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.Invalid("Amount must be positive")
	}
	var entry domain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			return notFound(err, "User not found")
		}
		if user.Status == domain.UserBlocked {
			return apperr.Forbidden("User account is blocked")
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", user.ID).
			UpdateColumn("balance", gorm.Expr("ROUND(balance + ?, 2)", amount)).Error; err != nil {
			return err
		}
		after, err := currentBalance(tx, user.ID)
		if err != nil {
			return err
		}
		entry = domain.Transaction{
			UserID:        user.ID,
			Type:          domain.TxRecharge,
			Amount:        amount,
			BalanceBefore: after.Sub(amount),
			BalanceAfter:  after,
			PerformedBy:   in.PerformedBy,
			Note:          in.Note,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": in.UserID,
			"amount":  in.Amount.String(),
			"error":   err.Error(),
		}).Error("Recharge failed")
		return nil, err
	}
	rechargesTotal.Inc()
	logrus.WithFields(logrus.Fields{
		"user_id":        entry.UserID,
		"performed_by":   entry.PerformedBy,
		"transaction_id": entry.ID,
		"amount":         entry.Amount.StringFixed(2),
		"balance_after":  entry.BalanceAfter.StringFixed(2),
		"type":           string(entry.Type),
	}).Info("Recharge transaction")
	s.invalidate(ctx, profileKey(entry.UserID))
	s.invalidateHistory(ctx, entry.UserID)
	return &entry, nil
}

func currentBalance(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var user domain.User
	if err := tx.Select("id", "balance").First(&user, userID).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Balance.Round(2), nil // SQLite hands fractional results back as floats
}

func kindLabel(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindInsufficient:
		return "insufficient"
	case apperr.KindInvalid:
		return "invalid"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindForbidden, apperr.KindUnauthorized, apperr.KindLocked:
		return "denied"
	}
	return "error"
}
