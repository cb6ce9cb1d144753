package domain

import (
	"time" // Creation timestamp

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// TransactionType distinguishes debits from credits in the ledger
type TransactionType string

const (
	TxPurchase TransactionType = "Purchase" // Debit for goods
	TxRecharge TransactionType = "Recharge" // Credit by an admin
)

// Transaction Model. Rows are append-only: nothing updates or deletes them.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                              // Primary key
	UserID        uint            `gorm:"index;not null" json:"user_id"`                     // Owner of the balance
	Type          TransactionType `gorm:"size:20;index;not null" json:"type"`                // Purchase or Recharge
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`         // Absolute amount moved
	BalanceBefore decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_before"` // Snapshot before
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`  // Snapshot after
	PerformedBy   uint            `json:"performed_by"`                                      // Actor (cashier, admin or the user)
	Note          string          `json:"note,omitempty"`                                    // Free text
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`                           // Timestamp
	Purchases     []Purchase      `json:"purchases,omitempty"`                               // Line items for Purchase rows
}

// Purchase Model: one line item of a Purchase transaction
type Purchase struct {
	ID            uint            `gorm:"primaryKey" json:"id"`                          // Primary key
	TransactionID uint            `gorm:"index;not null" json:"transaction_id"`          // Ledger entry
	ProductID     uint            `gorm:"index;not null" json:"product_id"`              // Product sold
	Quantity      int             `gorm:"not null" json:"quantity"`                      // Units sold
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"` // Price at purchase time
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`   // UnitPrice * Quantity
}
