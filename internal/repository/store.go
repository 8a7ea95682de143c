// Package repository provides the GORM data access layer.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Users() UserRepository
	Registry() RegistryRepository
	Publications() PublicationRepository
	Favorites() FavoriteRepository
	Reports() ReportRepository
	// WithinTx runs fn in a single database transaction. Repositories obtained
	// from the Store passed to fn share that transaction; returning an error rolls it back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository               { return NewUserRepository(s.db) }
func (s *gormStore) Registry() RegistryRepository        { return NewRegistryRepository(s.db) }
func (s *gormStore) Publications() PublicationRepository { return NewPublicationRepository(s.db) }
func (s *gormStore) Favorites() FavoriteRepository       { return NewFavoriteRepository(s.db) }
func (s *gormStore) Reports() ReportRepository           { return NewReportRepository(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsUniqueViolation reports whether err is a unique-constraint failure on either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isPostgres gates statements SQLite does not understand, such as row locks.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
