package db

import (
	"path/filepath"
	"testing"

	"canteen_system/internal/config"
	"canteen_system/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigrateAndSeed(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "canteen.db")}
	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	require.NoError(t, SeedAdmin(gdb, "Admin@Canteen.test", "supersecret"))
	require.NoError(t, SeedAdmin(gdb, "admin@canteen.test", "supersecret")) // idempotent

	var admins []domain.User
	require.NoError(t, gdb.Where("role = ?", domain.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@canteen.test", admins[0].Email)
	assert.Equal(t, domain.UserActive, admins[0].Status)
	assert.NotEmpty(t, admins[0].QRCode)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
