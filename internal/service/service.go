// Package service implements the canteen's business operations on top of
// gorm. Every balance-affecting operation runs inside a single database
// transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canteen_system/internal/apperr"
	"canteen_system/internal/mail"
	"canteen_system/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options tunes security-related behaviour
type Options struct {
	PINMaxAttempts int
	PINLockout     time.Duration
	ResetTokenTTL  time.Duration
}

// Service bundles the dependencies shared by all operations
type Service struct {
	db   *gorm.DB
	rdb  *redis.Client // May be nil: caching disabled
	mail mail.Sender
	opts Options
	now  func() time.Time
}

// New creates a Service. rdb may be nil.
func New(db *gorm.DB, rdb *redis.Client, sender mail.Sender, opts Options) *Service {
	if opts.PINMaxAttempts <= 0 {
		opts.PINMaxAttempts = 3
	}
	if opts.PINLockout <= 0 {
		opts.PINLockout = 15 * time.Minute
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 15 * time.Minute
	}
	if sender == nil {
		sender = mail.NopSender{}
	}
	return &Service{db: db, rdb: rdb, mail: sender, opts: opts, now: time.Now}
}

// DB exposes the underlying connection for middleware that re-reads roles
func (s *Service) DB() *gorm.DB { return s.db }

// Cache keys
const (
	activeProductsKey = "products:active"
	qrCacheTTL        = 10 * time.Minute
	profileCacheTTL   = 60 * time.Second
	catalogCacheTTL   = 60 * time.Second
	historyCacheTTL   = 60 * time.Second
)

func profileKey(userID uint) string { return fmt.Sprintf("balance:user:%d", userID) }
func qrKey(code string) string      { return "qr:" + code }

// invalidate drops cache keys; a cache failure never fails the caller
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := utils.DeleteCache(ctx, s.rdb, keys...); err != nil {
		logrus.WithFields(logrus.Fields{"keys": keys, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}

// notFound converts gorm's missing-row error into a typed NotFound
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

// invalidateHistory drops every cached history page of a user
func (s *Service) invalidateHistory(ctx context.Context, userID uint) {
	if err := utils.DeleteCachePrefix(ctx, s.rdb, historyPrefix(userID)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}
