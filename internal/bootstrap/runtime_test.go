package bootstrap

import (
	"context"
	"testing"

	"inmomarket/internal/config"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureDevRootAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled outside development", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		cfg := &config.Config{Env: "production", DevBootstrapRoot: true, DevRootPassword: "secret"}
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, repository.NewStore(db)))

		var n int64
		require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("requires password", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		cfg := &config.Config{Env: "development", DevBootstrapRoot: true}
		assert.Error(t, ensureDevRootAdmin(ctx, cfg, repository.NewStore(db)))
	})

	t.Run("creates root admin", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		store := repository.NewStore(db)
		cfg := &config.Config{
			Env:              "development",
			DevBootstrapRoot: true,
			DevRootEmail:     "Root@Example.com",
			DevRootPassword:  "s3cret-pass",
		}
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, store))
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, store), "second run is a no-op")

		admins, err := store.Users().ListByRole(ctx, models.RoleAdmin)
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, "root@example.com", admins[0].Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admins[0].Password), []byte("s3cret-pass")))
	})

	t.Run("promotes existing account", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		store := repository.NewStore(db)
		existing := testutil.CreateUser(t, db, "root@inmomarket.local", models.RoleUser)

		cfg := &config.Config{Env: "development", DevBootstrapRoot: true, DevRootPassword: "x"}
		require.NoError(t, ensureDevRootAdmin(ctx, cfg, store))

		got, err := store.Users().GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})
}
