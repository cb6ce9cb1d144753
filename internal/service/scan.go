package service

import (
	"context"
	"errors"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"
	"canteen_system/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ResolveQR maps a scanned code to its user. The code to id mapping is cached;
// the user row itself is always read fresh so balance and status are current.
func (s *Service) ResolveQR(ctx context.Context, code string) (*domain.User, error) {
	if code == "" {
		return nil, apperr.Invalid("QR code is required")
	}
	var userID uint
	if found, err := utils.GetCache(ctx, s.rdb, qrKey(code), &userID); err == nil && found {
		user, err := s.GetUser(ctx, userID)
		if err == nil && user.QRCode == code {
			return user, nil
		}
		s.invalidate(ctx, qrKey(code)) // Stale mapping
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("qr_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Unknown QR code")
		}
		return nil, err
	}
	_ = utils.SetCache(ctx, s.rdb, qrKey(code), user.ID, qrCacheTTL)
	return &user, nil
}

// RegenerateQR issues a new code and revokes the old one
func (s *Service) RegenerateQR(ctx context.Context, id uint) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	old := user.QRCode
	code := uuid.NewString()
	if err := s.db.WithContext(ctx).Model(user).Update("qr_code", code).Error; err != nil {
		return nil, err
	}
	user.QRCode = code
	s.invalidate(ctx, qrKey(old))
	logrus.WithField("user_id", id).Info("QR code regenerated")
	return user, nil
}
