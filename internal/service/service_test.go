package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"canteen_system/internal/config"
	"canteen_system/internal/db"
	"canteen_system/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	redis  *miniredis.Miniredis
	mailer *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "canteen.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mailer := &fakeMailer{}
	svc := New(gdb, rdb, mailer, Options{PINMaxAttempts: 3})
	return &fixture{svc: svc, db: gdb, redis: mr, mailer: mailer}
}

func (f *fixture) user(t *testing.T, balance string, status domain.UserStatus) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:     "Test User",
		Email:    uuid.NewString() + "@canteen.test",
		Password: "x",
		Role:     domain.RoleUser,
		Status:   status,
		Balance:  decimal.RequireFromString(balance),
		QRCode:   uuid.NewString(),
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) product(t *testing.T, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{Name: "Item " + uuid.NewString()[:8], Price: decimal.RequireFromString(price), Stock: stock, IsActive: true}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) reload(t *testing.T, dest any, id uint) {
	t.Helper()
	require.NoError(t, f.db.First(dest, id).Error)
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

var ctx = context.Background()
