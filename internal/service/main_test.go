package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/storage"
	"inmomarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// imageStoreStub is a stub for storage.ImageStore.
type imageStoreStub struct {
	mu       sync.Mutex
	uploadFn func(context.Context, uint, []storage.ImageUpload) ([]storage.ImageRef, error)
	deleteFn func(context.Context, storage.ImageRef) error
	deleted  []storage.ImageRef
}

func (s *imageStoreStub) Upload(ctx context.Context, ownerID uint, uploads []storage.ImageUpload) ([]storage.ImageRef, error) {
	return s.uploadFn(ctx, ownerID, uploads)
}

func (s *imageStoreStub) Delete(ctx context.Context, ref storage.ImageRef) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, ref)
	s.mu.Unlock()
	if s.deleteFn != nil {
		return s.deleteFn(ctx, ref)
	}
	return nil
}

// fakeImageStore hands out sequential keys for every upload.
func fakeImageStore() *imageStoreStub {
	var n int
	return &imageStoreStub{
		uploadFn: func(_ context.Context, _ uint, uploads []storage.ImageUpload) ([]storage.ImageRef, error) {
			refs := make([]storage.ImageRef, 0, len(uploads))
			for _, u := range uploads {
				n++
				key := fmt.Sprintf("publications/test/%d-%s", n, u.Filename)
				refs = append(refs, storage.ImageRef{URL: "/media/" + key + ".jpg", Key: key})
			}
			return refs, nil
		},
	}
}

// failingTxStore behaves like the wrapped store except that every transaction fails.
type failingTxStore struct {
	repository.Store
	err error
}

func (s failingTxStore) WithinTx(context.Context, func(repository.Store) error) error {
	return s.err
}

type fixture struct {
	db     *gorm.DB
	store  repository.Store
	images *imageStoreStub
	owner  models.Identity
	other  models.Identity
	admin  models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleUser)
	other := testutil.CreateUser(t, db, "other@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	return &fixture{
		db:     db,
		store:  repository.NewStore(db),
		images: fakeImageStore(),
		owner:  models.Identity{ID: owner.ID, Email: owner.Email, Role: owner.Role},
		other:  models.Identity{ID: other.ID, Email: other.Email, Role: other.Role},
		admin:  models.Identity{ID: admin.ID, Email: admin.Email, Role: admin.Role},
	}
}

func requireCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
