package service

import (
	"context"
	"errors"
	"fmt"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RequestPasswordReset mails a single-use reset token. Unknown emails succeed
// silently so the endpoint cannot be used to probe accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	token := domain.ResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.opts.ResetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return err
	}
	body := fmt.Sprintf("Hello %s,\n\nUse this code to reset your password: %s\nIt expires in %s.\n",
		user.Name, token.Token, s.opts.ResetTokenTTL)
	if err := s.mail.Send(user.Email, "Password reset", body); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Password reset email failed")
		return err
	}
	logrus.WithField("user_id", user.ID).Info("Password reset requested")
	return nil
}

// ResetPassword consumes a token and sets a new password in one transaction
func (s *Service) ResetPassword(ctx context.Context, tokenValue, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashSecret(password)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token domain.ResetToken
		if err := tx.Where("token = ?", tokenValue).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Invalid("Invalid or expired token")
			}
			return err
		}
		now := s.now()
		if !token.Usable(now) {
			return apperr.Invalid("Invalid or expired token")
		}
		res := tx.Model(&domain.ResetToken{}).Where("id = ? AND used_at IS NULL", token.ID).Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Invalid("Invalid or expired token")
		}
		return tx.Model(&domain.User{}).Where("id = ?", token.UserID).Update("password", hash).Error
	})
}

// PurgeExpiredTokens deletes tokens that can no longer be used
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", s.now()).
		Delete(&domain.ResetToken{})
	return res.RowsAffected, res.Error
}
