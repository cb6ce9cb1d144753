package db

import (
	"errors"  // Error inspection
	"strings" // Email normalisation

	"canteen_system/internal/domain" // Importing domain models

	"github.com/google/uuid"     // QR code generation
	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// SeedAdmin creates an active admin account unless the email already exists
func SeedAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil // Nothing to seed
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var existing domain.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil // Already seeded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := domain.User{
		Name:     "Administrator",
		Email:    email,
		Password: string(hash),
		Role:     domain.RoleAdmin,
		Status:   domain.UserActive,
		QRCode:   uuid.NewString(),
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logrus.WithField("email", email).Info("Admin account seeded")
	return nil
}
