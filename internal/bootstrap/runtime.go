// Package bootstrap wires the process-wide dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inmomarket/internal/cache"
	"inmomarket/internal/config"
	"inmomarket/internal/database"
	"inmomarket/internal/middleware"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/storage"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Runtime holds the connections a server or tool process runs on.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Images storage.ImageStore
}

// InitRuntime connects to the database, Redis and the image store, and ensures
// the development root admin when enabled.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)

	images, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}

	if err := ensureDevRootAdmin(ctx, cfg, repository.NewStore(db)); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return &Runtime{DB: db, Redis: cache.GetClient(), Images: images}, nil
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, store repository.Store) error {
	if cfg == nil || store == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@inmomarket.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	var rootID uint
	err = store.WithinTx(ctx, func(tx repository.Store) error {
		root, findErr := tx.Users().GetByEmail(ctx, email)
		switch {
		case repository.IsNotFound(findErr):
			root = &models.User{
				Email:       email,
				DisplayName: "Root",
				Password:    string(hashedPassword),
				Role:        models.RoleAdmin,
			}
			if err := tx.Users().Create(ctx, root); err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		case !root.IsAdmin():
			if err := tx.Users().SetRole(ctx, root.ID, models.RoleAdmin); err != nil {
				return err
			}
		}
		rootID = root.ID
		return nil
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development root admin bootstrap ensured",
		slog.Uint64("user_id", uint64(rootID)), slog.String("email", email))
	return nil
}
