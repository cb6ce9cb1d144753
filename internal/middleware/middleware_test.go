package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"canteen_system/internal/config"
	"canteen_system/internal/db"
	"canteen_system/internal/domain"
	"canteen_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "middleware-secret"

func setup(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb, err := db.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "mw.db")})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	r := gin.New()
	r.Use(MetricsMiddleware())
	ok := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(UserIDKey), "role": c.GetString(RoleKey)})
	}
	r.GET("/any", JWTAuthMiddleware(secret), RoleMiddleware(gdb), ok)
	r.GET("/counter", JWTAuthMiddleware(secret), RoleMiddleware(gdb, domain.RoleCashier, domain.RoleAdmin), ok)
	r.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(gdb), ok)
	return gdb, r
}

func makeUser(t *testing.T, gdb *gorm.DB, role string, status domain.UserStatus) string {
	t.Helper()
	u := &domain.User{Name: "u", Email: uuid.NewString() + "@x.test", Password: "x", Role: role, Status: status, QRCode: uuid.NewString()}
	require.NoError(t, gdb.Create(u).Error)
	token, err := utils.GenerateJWT(u.ID, role, secret, time.Hour)
	require.NoError(t, err)
	return token
}

func get(r *gin.Engine, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	gdb, r := setup(t)
	token := makeUser(t, gdb, domain.RoleUser, domain.UserActive)

	assert.Equal(t, http.StatusOK, get(r, "/any", token))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", ""))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", token+"x"))

	expired, err := utils.GenerateJWT(1, domain.RoleUser, secret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", expired))

	foreign, err := utils.GenerateJWT(1, domain.RoleUser, "other-secret", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/any", foreign))
}

func TestRoleMiddleware(t *testing.T) {
	gdb, r := setup(t)
	user := makeUser(t, gdb, domain.RoleUser, domain.UserActive)
	cashier := makeUser(t, gdb, domain.RoleCashier, domain.UserActive)
	admin := makeUser(t, gdb, domain.RoleAdmin, domain.UserActive)
	blockedAdmin := makeUser(t, gdb, domain.RoleAdmin, domain.UserBlocked)

	assert.Equal(t, http.StatusForbidden, get(r, "/counter", user))
	assert.Equal(t, http.StatusOK, get(r, "/counter", cashier))
	assert.Equal(t, http.StatusOK, get(r, "/counter", admin))

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", cashier))
	assert.Equal(t, http.StatusOK, get(r, "/admin", admin))
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", blockedAdmin))
	assert.Equal(t, http.StatusForbidden, get(r, "/any", blockedAdmin))
}

func TestRoleMiddlewareUnknownUser(t *testing.T) {
	_, r := setup(t)
	token, err := utils.GenerateJWT(999, domain.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", token))
}
