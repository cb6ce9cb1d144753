package domain

import "time"

// ResetToken is a single-use password reset token
type ResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still reset a password
func (t *ResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// Models lists every persisted model, in dependency order, for migrations
func Models() []any {
	return []any{
		&User{}, &Product{}, &Transaction{}, &Purchase{},
		&ManufacturerProduct{}, &Driver{}, &Truck{}, &Employee{},
		&Order{}, &ResetToken{},
	}
}
