package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"
	"canteen_system/internal/store"
	"canteen_system/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// RegisterInput is the self-registration payload
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 72 {
		return apperr.Invalid("Password must be 8-72 characters")
	}
	return nil
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Register creates an Inactive account that an admin must approve
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || !strings.Contains(email, "@") {
		return nil, apperr.Invalid("Name and a valid email are required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("Email already registered")
	}
	hash, err := hashSecret(in.Password)
	if err != nil {
		return nil, err
	}
	user := domain.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Role:     domain.RoleUser,
		Status:   domain.UserInactive,
		Balance:  decimal.Zero,
		QRCode:   uuid.NewString(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("User registered")
	return &user, nil
}

// Authenticate checks credentials and that the account may log in
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	switch user.Status {
	case domain.UserBlocked:
		return nil, apperr.Forbidden("Account is blocked")
	case domain.UserInactive:
		return nil, apperr.Forbidden("Account pending approval")
	}
	return &user, nil
}

// AuthenticateAdmin is Authenticate restricted to admins
func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleAdmin {
		return nil, apperr.Forbidden("Admin access required")
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "User not found")
	}
	return &user, nil
}

// Profile is the cached self view of an account
type Profile struct {
	ID             uint              `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	Role           string            `json:"role"`
	Status         domain.UserStatus `json:"status"`
	Balance        decimal.Decimal   `json:"balance"`
	HasPIN         bool              `json:"has_pin"`
	PINLockedUntil *time.Time        `json:"pin_locked_until,omitempty"`
}

// Profile returns the user's profile, served from cache when possible.
// The second result reports a cache hit.
func (s *Service) Profile(ctx context.Context, id uint) (*Profile, bool, error) {
	var cached Profile
	if found, err := utils.GetCache(ctx, s.rdb, profileKey(id), &cached); err == nil && found {
		return &cached, true, nil
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, false, err
	}
	p := &Profile{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		Status:         user.Status,
		Balance:        user.Balance.Round(2),
		HasPIN:         user.HasPIN(),
		PINLockedUntil: user.PINLockedUntil,
	}
	_ = utils.SetCache(ctx, s.rdb, profileKey(id), p, profileCacheTTL)
	return p, false, nil
}

// UserFilter narrows ListUsers
type UserFilter struct {
	Status   domain.UserStatus
	Role     string
	Page     int
	PageSize int
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter) (store.Page[domain.User], error) {
	page, pageSize, offset := store.Normalize(f.Page, f.PageSize)
	query := s.db.WithContext(ctx).Model(&domain.User{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return store.Page[domain.User]{}, err
	}
	var users []domain.User
	if err := query.Order("id asc").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return store.Page[domain.User]{}, err
	}
	return store.NewPage(users, page, pageSize, total), nil
}

// SetStatus is the admin approval step: it activates, deactivates or blocks
// an account. Approving an account notifies its owner by email.
func (s *Service) SetStatus(ctx context.Context, id uint, status domain.UserStatus, actorID uint) (*domain.User, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("Status must be Active, Inactive or Blocked")
	}
	if id == actorID && status != domain.UserActive {
		return nil, apperr.Invalid("Cannot deactivate your own account")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := user.Status
	if err := s.db.WithContext(ctx).Model(user).Update("status", status).Error; err != nil {
		return nil, err
	}
	user.Status = status
	s.invalidate(ctx, profileKey(id))
	logrus.WithFields(logrus.Fields{
		"user_id":  id,
		"actor_id": actorID,
		"from":     previous,
		"to":       status,
	}).Info("User status changed")

	if previous == domain.UserInactive && status == domain.UserActive {
		body := fmt.Sprintf("Hello %s,\n\nYour canteen account has been approved. You can now log in.\n", user.Name)
		if err := s.mail.Send(user.Email, "Account approved", body); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Warn("Approval email failed")
		}
	}
	return user, nil
}

func (s *Service) SetRole(ctx context.Context, id uint, role string, actorID uint) (*domain.User, error) {
	switch role {
	case domain.RoleUser, domain.RoleCashier, domain.RoleAdmin:
	default:
		return nil, apperr.Invalid("Role must be user, cashier or admin")
	}
	if id == actorID && role != domain.RoleAdmin {
		return nil, apperr.Invalid("Cannot demote your own account")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	s.invalidate(ctx, profileKey(id))
	logrus.WithFields(logrus.Fields{"user_id": id, "actor_id": actorID, "role": role}).Info("User role changed")
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uint, current, next string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return apperr.Unauthorized("Current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := hashSecret(next)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hash).Error
}

// SetPIN stores a new 4-6 digit PIN and clears any lockout
func (s *Service) SetPIN(ctx context.Context, id uint, pin string) error {
	if !pinPattern.MatchString(pin) {
		return apperr.Invalid("PIN must be 4-6 digits")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := hashSecret(pin)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"pin_hash":         hash,
		"pin_attempts":     0,
		"pin_locked_until": nil,
	}).Error; err != nil {
		return err
	}
	s.invalidate(ctx, profileKey(id))
	return nil
}

// VerifyPIN checks pin against the stored hash. Each failure is persisted;
// reaching PINMaxAttempts locks PIN entry for PINLockout.
func (s *Service) VerifyPIN(ctx context.Context, id uint, pin string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !user.HasPIN() {
		return apperr.Invalid("No PIN configured")
	}
	now := s.now()
	if user.PINLocked(now) {
		return apperr.Locked("PIN locked until " + user.PINLockedUntil.UTC().Format(time.RFC3339))
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(pin)) == nil {
		if user.PINAttempts > 0 || user.PINLockedUntil != nil {
			return s.db.WithContext(ctx).Model(user).Updates(map[string]any{
				"pin_attempts":     0,
				"pin_locked_until": nil,
			}).Error
		}
		return nil
	}

	attempts := user.PINAttempts + 1
	if attempts >= s.opts.PINMaxAttempts {
		until := now.Add(s.opts.PINLockout)
		if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
			"pin_attempts":     0,
			"pin_locked_until": until,
		}).Error; err != nil {
			return err
		}
		s.invalidate(ctx, profileKey(id))
		logrus.WithFields(logrus.Fields{"user_id": id, "locked_until": until.Format(time.RFC3339)}).Warn("PIN locked")
		return apperr.Locked("Too many invalid PIN attempts, locked until " + until.UTC().Format(time.RFC3339))
	}
	if err := s.db.WithContext(ctx).Model(user).Update("pin_attempts", attempts).Error; err != nil {
		return err
	}
	return apperr.Unauthorized("Invalid PIN")
}

// checkPIN enforces the PIN for users who configured one
func (s *Service) checkPIN(ctx context.Context, userID uint, pin string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPIN() {
		return nil
	}
	if pin == "" {
		return apperr.Unauthorized("PIN required")
	}
	return s.VerifyPIN(ctx, userID, pin)
}

// UnlockExpiredPINs clears lockouts whose deadline has passed
func (s *Service) UnlockExpiredPINs(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("pin_locked_until IS NOT NULL AND pin_locked_until < ?", s.now()).
		Update("pin_locked_until", nil)
	return res.RowsAffected, res.Error
}
