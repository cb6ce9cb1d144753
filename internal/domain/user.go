package domain

import (
	"time" // Timestamps and lockout deadline

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// UserStatus is the lifecycle state of an account
type UserStatus string

const (
	UserActive   UserStatus = "Active"   // Can log in and spend
	UserInactive UserStatus = "Inactive" // Registered, awaiting admin approval
	UserBlocked  UserStatus = "Blocked"  // Disabled by an admin
)

// Valid reports whether s is a known status
func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive || s == UserBlocked
}

// Roles
const (
	RoleUser    = "user"
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// User Model
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	Name           string          `gorm:"not null" json:"name"`                                 // Display name
	Email          string          `gorm:"uniqueIndex;size:191;not null" json:"email"`           // Unique, lowercase
	Password       string          `gorm:"not null" json:"-"`                                    // Hashed password
	Role           string          `gorm:"size:20;default:user" json:"role"`                     // Role: user, cashier or admin
	Status         UserStatus      `gorm:"size:20;default:Inactive;index" json:"status"`         // Account status
	Balance        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"` // Wallet balance, never negative
	QRCode         string          `gorm:"uniqueIndex;size:64;not null" json:"qr_code"`          // Scannable identity code
	PINHash        string          `json:"-"`                                                    // Optional hashed PIN
	PINAttempts    int             `gorm:"not null;default:0" json:"-"`                          // Consecutive failed PIN tries
	PINLockedUntil *time.Time      `json:"pin_locked_until,omitempty"`                           // PIN lockout deadline
	CreatedAt      time.Time       `json:"created_at"`                                           // Creation time
	UpdatedAt      time.Time       `json:"updated_at"`                                           // Last update time
}

// HasPIN reports whether the user configured a PIN
func (u *User) HasPIN() bool { return u.PINHash != "" }

// PINLocked reports whether PIN entry is locked at the given instant
func (u *User) PINLocked(now time.Time) bool {
	return u.PINLockedUntil != nil && now.Before(*u.PINLockedUntil)
}
