package seed

import (
	"context"
	"testing"

	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_PublicationInputIsValid(t *testing.T) {
	db := testutil.NewTestDB(t)
	f, err := NewFactory(repository.NewStore(db), 42)
	require.NoError(t, err)

	ctx := context.Background()
	owner, err := f.CreateUser(ctx, models.RoleUser)
	require.NoError(t, err)

	for range 20 {
		pub, err := f.CreatePublication(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, models.PublicationStatusActive, pub.Status)
		assert.NotEmpty(t, pub.Geohash)
		assert.NotEmpty(t, pub.AvailableTimes)
	}
}

func TestSeed(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	res, err := Seed(ctx, db, Options{
		NumUsers:         4,
		NumPublications:  6,
		FavoritesPerUser: 3,
		NumReports:       5,
		Seed:             7,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 6, res.Publications)
	assert.Equal(t, 5, res.Reports)
	assert.Equal(t, 3, res.Resolved)
	assert.Positive(t, res.Favorites)

	var pending int64
	require.NoError(t, db.Model(&models.Report{}).Where("status = ?", models.ReportStatusPending).Count(&pending).Error)
	assert.Equal(t, int64(2), pending)

	// Registries stay deduplicated across many listings.
	var types int64
	require.NoError(t, db.Model(&models.PropertyType{}).Count(&types).Error)
	assert.LessOrEqual(t, types, int64(len(propertyTypes)))

	require.NoError(t, ClearAll(ctx, db))
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}
