package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"inmomarket/internal/cache"
	"inmomarket/internal/featureflags"
	"inmomarket/internal/models"
	"inmomarket/internal/storage"
	"inmomarket/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func casaInput() PublicationInput {
	return PublicationInput{
		TypeName:     "Casa",
		Department:   "Antioquia",
		Municipality: "Medellín",
		Neighborhood: "El Poblado",
		Address:      "Calle 10 # 43-12",
		Title:        "Casa con jardín",
		Description:  "Amplia y luminosa",
		Longitude:    decimal.RequireFromString("-75.5678"),
		Latitude:     decimal.RequireFromString("6.2088"),
		Size:         decimal.RequireFromString("180.5"),
		Bedrooms:     3,
		Floors:       2,
		Parking:      1,
		Price:        decimal.RequireFromString("450000000"),
		AvailableTimes: []AvailabilityInput{
			{DayOfWeek: "SATURDAY", StartTime: "09:00", EndTime: "12:00"},
		},
	}
}

func decodePatch(t *testing.T, raw string) PublicationPatch {
	t.Helper()
	var p PublicationPatch
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func ids(pubs []models.Publication) []uint {
	out := make([]uint, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, p.ID)
	}
	return out
}

func TestPublicationService_Create(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	pub, err := svc.Create(ctx, f.owner, casaInput(), []storage.ImageUpload{
		{Filename: "front.jpg"}, {Filename: "kitchen.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.PublicationStatusActive, pub.Status)
	assert.Equal(t, f.owner.ID, pub.UserID)
	assert.Equal(t, "Casa", pub.PropertyType.Name)
	assert.Equal(t, "El Poblado", pub.Location.Neighborhood)
	assert.Len(t, pub.Geohash, GeohashPrecision)
	require.Len(t, pub.Images, 2)
	assert.Equal(t, 0, pub.Images[0].Position)
	assert.Equal(t, 1, pub.Images[1].Position)
	require.Len(t, pub.AvailableTimes, 1)
	assert.Equal(t, models.Saturday, pub.AvailableTimes[0].DayOfWeek)

	second, err := svc.Create(ctx, f.other, casaInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, pub.PropertyTypeID, second.PropertyTypeID, "property types are shared")
	assert.Equal(t, pub.LocationID, second.LocationID, "locations are shared")
	assert.Equal(t, int64(1), countRows(t, f.db, &models.Location{}))
}

func TestPublicationService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)

	in := casaInput()
	in.Title = "  "
	in.Bedrooms = -1
	in.Latitude = decimal.RequireFromString("91")
	in.Size = decimal.Zero
	in.AvailableTimes = []AvailabilityInput{{DayOfWeek: "MONDAY", StartTime: "12:00", EndTime: "09:00"}}

	uploaded := false
	f.images.uploadFn = func(context.Context, uint, []storage.ImageUpload) ([]storage.ImageRef, error) {
		uploaded = true
		return nil, nil
	}

	_, err := svc.Create(context.Background(), f.owner, in, []storage.ImageUpload{{Filename: "a.jpg"}})
	appErr := requireCode(t, err, models.CodeValidation)
	for _, field := range []string{"title", "bedrooms", "latitude", "size", "available_times[0].end_time"} {
		assert.Contains(t, appErr.Fields, field)
	}
	assert.False(t, uploaded, "nothing is uploaded for invalid input")
	assert.Zero(t, countRows(t, f.db, &models.Publication{}))
}

func TestPublicationService_CreateUnknownOwner(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)

	_, err := svc.Create(context.Background(), models.Identity{ID: 9999}, casaInput(), nil)
	requireCode(t, err, models.CodeNotFound)
}

func TestPublicationService_CreateImageStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.images.uploadFn = func(context.Context, uint, []storage.ImageUpload) ([]storage.ImageRef, error) {
		return nil, errors.New("bucket unavailable")
	}
	svc := NewPublicationService(f.store, f.images, nil)

	_, err := svc.Create(context.Background(), f.owner, casaInput(), []storage.ImageUpload{{Filename: "a.jpg"}})
	requireCode(t, err, models.CodeImageStore)
	assert.Zero(t, countRows(t, f.db, &models.Publication{}))
	assert.Zero(t, countRows(t, f.db, &models.PropertyType{}))
}

func TestPublicationService_CreateRollsBackImages(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(failingTxStore{Store: f.store, err: errors.New("disk full")}, f.images, nil)

	_, err := svc.Create(context.Background(), f.owner, casaInput(), []storage.ImageUpload{
		{Filename: "a.jpg"}, {Filename: "b.jpg"},
	})
	requireCode(t, err, models.CodeStorage)
	assert.Len(t, f.images.deleted, 2, "uploaded images are removed when the transaction fails")
	assert.Zero(t, countRows(t, f.db, &models.Publication{}))
}

func TestPublicationService_UpdatePartial(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	before, err := svc.Create(ctx, f.owner, casaInput(), []storage.ImageUpload{{Filename: "a.jpg"}})
	require.NoError(t, err)

	after, err := svc.Update(ctx, before.ID, f.owner, decodePatch(t, `{"bedrooms": 4}`), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, after.Bedrooms)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.Address, after.Address)
	assert.True(t, before.Price.Equal(after.Price))
	assert.True(t, before.Size.Equal(after.Size))
	assert.Equal(t, before.Floors, after.Floors)
	assert.Equal(t, before.Parking, after.Parking)
	assert.Equal(t, before.Furnished, after.Furnished)
	assert.Equal(t, before.Geohash, after.Geohash)
	assert.Equal(t, before.PropertyTypeID, after.PropertyTypeID)
	assert.Equal(t, before.LocationID, after.LocationID)
	assert.Equal(t, before.Status, after.Status)
	assert.Len(t, after.Images, 1)
	assert.Len(t, after.AvailableTimes, 1)
}

func TestPublicationService_UpdateOwnership(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	pub, err := svc.Create(ctx, f.owner, casaInput(), nil)
	require.NoError(t, err)

	uploaded := false
	f.images.uploadFn = func(context.Context, uint, []storage.ImageUpload) ([]storage.ImageRef, error) {
		uploaded = true
		return nil, nil
	}

	_, err = svc.Update(ctx, pub.ID, f.other, decodePatch(t, `{"title": "Hijacked"}`), []storage.ImageUpload{{Filename: "x.jpg"}})
	requireCode(t, err, models.CodeForbidden)
	assert.False(t, uploaded)

	_, err = svc.Update(ctx, 9999, f.owner, decodePatch(t, `{"title": "Nope"}`), nil)
	requireCode(t, err, models.CodeNotFound)

	got, err := svc.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Casa con jardín", got.Title)
}

func TestPublicationService_UpdateNulls(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	pub, err := svc.Create(ctx, f.owner, casaInput(), nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, pub.ID, f.owner, decodePatch(t, `{"description": null}`), nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
	assert.Equal(t, pub.Title, updated.Title)

	_, err = svc.Update(ctx, pub.ID, f.owner, decodePatch(t, `{"title": null, "price": null, "status": "SOLD"}`), nil)
	appErr := requireCode(t, err, models.CodeValidation)
	assert.Equal(t, "cannot be null", appErr.Fields["title"])
	assert.Equal(t, "cannot be null", appErr.Fields["price"])
	assert.Contains(t, appErr.Fields, "status")
}

func TestPublicationService_UpdateRegistriesAndChildren(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	pub, err := svc.Create(ctx, f.owner, casaInput(), []storage.ImageUpload{{Filename: "a.jpg"}, {Filename: "b.jpg"}})
	require.NoError(t, err)

	patch := decodePatch(t, `{
		"type_name": "Apartamento",
		"neighborhood": "Laureles",
		"latitude": "6.2450",
		"status": "inactive",
		"available_times": [
			{"day_of_week": "monday", "start_time": "08:00", "end_time": "09:00"},
			{"day_of_week": "tuesday", "start_time": "08:00", "end_time": "09:00"}
		]
	}`)
	updated, err := svc.Update(ctx, pub.ID, f.owner, patch, []storage.ImageUpload{{Filename: "c.jpg"}})
	require.NoError(t, err)

	assert.Equal(t, "Apartamento", updated.PropertyType.Name)
	assert.Equal(t, "Antioquia", updated.Location.Department, "unchanged location parts are kept")
	assert.Equal(t, "Medellín", updated.Location.Municipality)
	assert.Equal(t, "Laureles", updated.Location.Neighborhood)
	assert.NotEqual(t, pub.Geohash, updated.Geohash)
	assert.Equal(t, models.PublicationStatusInactive, updated.Status)

	require.Len(t, updated.Images, 3)
	assert.Equal(t, 2, updated.Images[2].Position)
	require.Len(t, updated.AvailableTimes, 2)
	assert.Equal(t, models.Monday, updated.AvailableTimes[0].DayOfWeek)

	kept, err := svc.Update(ctx, pub.ID, f.owner, decodePatch(t, `{"available_times": []}`), nil)
	require.NoError(t, err)
	assert.Len(t, kept.AvailableTimes, 2, "an empty list leaves availability untouched")

	same, err := svc.Update(ctx, pub.ID, f.owner, decodePatch(t, `{"department": "Antioquia"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, updated.LocationID, same.LocationID)
}

func TestPublicationService_UpdateRollsBackImages(t *testing.T) {
	f := newFixture(t)
	pub := testutil.CreatePublication(t, f.db, f.owner.ID)
	svc := NewPublicationService(failingTxStore{Store: f.store, err: errors.New("connection reset")}, f.images, nil)

	_, err := svc.Update(context.Background(), pub.ID, f.owner, decodePatch(t, `{"title": "X"}`), []storage.ImageUpload{{Filename: "a.jpg"}})
	requireCode(t, err, models.CodeStorage)
	assert.Len(t, f.images.deleted, 1)
}

func TestPublicationService_FilterScenario(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, f.owner, casaInput(), nil)
	require.NoError(t, err)

	got, err := svc.ListFiltered(ctx, models.DepartmentFilter{Department: "Antioquia"})
	require.NoError(t, err)
	assert.Contains(t, ids(got), a.ID)

	got, err = svc.ListFiltered(ctx, models.BedroomsFilter{Count: 2})
	require.NoError(t, err)
	assert.NotContains(t, ids(got), a.ID)

	_, err = svc.Update(ctx, a.ID, f.owner, decodePatch(t, `{"bedrooms": 4}`), nil)
	require.NoError(t, err)

	fetched, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fetched.Bedrooms)
	assert.Equal(t, "Casa", fetched.PropertyType.Name)
	assert.True(t, fetched.Price.Equal(decimal.RequireFromString("450000000")))

	got, err = svc.ListFiltered(ctx, models.BedroomsFilter{Count: 3})
	require.NoError(t, err)
	assert.NotContains(t, ids(got), a.ID)

	got, err = svc.ListFiltered(ctx, models.BedroomsFilter{Count: 4})
	require.NoError(t, err)
	assert.Contains(t, ids(got), a.ID)
}

func TestPublicationService_ListFilteredValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	_, err := svc.ListFiltered(ctx, nil)
	requireCode(t, err, models.CodeValidation)

	_, err = svc.ListFiltered(ctx, models.PriceRangeFilter{Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(1)})
	requireCode(t, err, models.CodeValidation)

	got, err := svc.ListFiltered(ctx, models.FurnishedFilter{Furnished: true})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPublicationService_Popularity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreatePublication(t, f.db, f.owner.ID)
	b := testutil.CreatePublication(t, f.db, f.owner.ID)

	favorites := NewFavoriteService(f.store)
	_, err := favorites.Toggle(ctx, f.owner.ID, a.ID)
	require.NoError(t, err)
	_, err = favorites.Toggle(ctx, f.other.ID, a.ID)
	require.NoError(t, err)
	_, err = favorites.Toggle(ctx, f.admin.ID, b.ID)
	require.NoError(t, err)

	counted, err := NewPublicationService(f.store, f.images, nil).ListMostPopular(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, ids(counted))

	legacy, err := NewPublicationService(f.store, f.images, featureflags.Parse("popular_legacy_order=on")).ListMostPopular(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID, a.ID, a.ID}, ids(legacy))
}

func TestPublicationService_ListRecentAndByUser(t *testing.T) {
	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		testutil.CreatePublication(t, f.db, f.owner.ID)
	}
	hidden := testutil.CreatePublication(t, f.db, f.other.ID, func(p *models.Publication) {
		p.Status = models.PublicationStatusInactive
	})

	recent, err := svc.ListRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, RecentLimit)
	assert.NotContains(t, ids(recent), hidden.ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 11)

	mine, err := svc.ListByUser(ctx, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{hidden.ID}, ids(mine))

	none, err := svc.ListByUser(ctx, 4242)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPublicationService_CacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	f := newFixture(t)
	svc := NewPublicationService(f.store, f.images, nil)
	ctx := context.Background()

	pub, err := svc.Create(ctx, f.owner, casaInput(), nil)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PublicationKey(pub.ID)))

	_, err = svc.ListRecent(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.RecentPublicationsKey))

	_, err = svc.Update(ctx, pub.ID, f.owner, decodePatch(t, `{"bedrooms": 5}`), nil)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PublicationKey(pub.ID)))
	assert.False(t, mr.Exists(cache.RecentPublicationsKey))

	got, err := svc.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Bedrooms)

	_, err = svc.GetByID(ctx, 9999)
	requireCode(t, err, models.CodeNotFound)
	assert.False(t, mr.Exists(cache.PublicationKey(9999)))
}
