package service

import (
	"context"
	"errors"
	"log/slog"

	"inmomarket/internal/cache"
	"inmomarket/internal/featureflags"
	"inmomarket/internal/models"
	"inmomarket/internal/observability"
	"inmomarket/internal/repository"
	"inmomarket/internal/storage"

	"github.com/mmcloughlin/geohash"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	RecentLimit  = 10
	PopularLimit = 10
	// GeohashPrecision of 7 characters is roughly a 150m cell.
	GeohashPrecision = 7
)

type PublicationService struct {
	store  repository.Store
	images storage.ImageStore
	flags  *featureflags.Flags
}

func NewPublicationService(store repository.Store, images storage.ImageStore, flags *featureflags.Flags) *PublicationService {
	return &PublicationService{store: store, images: images, flags: flags}
}

// Create validates and persists a new ACTIVE listing owned by owner. Images are
// uploaded first and removed again if the database transaction fails.
func (s *PublicationService) Create(
	ctx context.Context,
	owner models.Identity,
	in PublicationInput,
	uploads []storage.ImageUpload,
) (pub *models.Publication, err error) {
	span, ctx := observability.NewSpan(ctx, "PublicationService.Create",
		attribute.Int64("user.id", int64(owner.ID)),
		attribute.Int("images.count", len(uploads)),
	)
	defer func() {
		span.SetError(err)
		span.End()
	}()

	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	windows, err := BuildAvailability(in.AvailableTimes)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Users().GetByID(ctx, owner.ID); err != nil {
		return nil, notFoundOr(err, "User", owner.ID)
	}

	refs, err := s.upload(ctx, owner.ID, uploads)
	if err != nil {
		return nil, err
	}

	created := &models.Publication{
		UserID:         owner.ID,
		Address:        in.Address,
		Title:          in.Title,
		Description:    in.Description,
		Longitude:      in.Longitude,
		Latitude:       in.Latitude,
		Geohash:        encodeGeohash(in.Latitude, in.Longitude),
		Size:           in.Size,
		Bedrooms:       in.Bedrooms,
		Floors:         in.Floors,
		Parking:        in.Parking,
		Furnished:      in.Furnished,
		Price:          in.Price,
		Status:         models.PublicationStatusActive,
		Images:         imageRows(refs, 0),
		AvailableTimes: windows,
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		pt, err := tx.Registry().FindOrCreatePropertyType(ctx, in.TypeName)
		if err != nil {
			return err
		}
		loc, err := tx.Registry().FindOrCreateLocation(ctx, models.Location{
			Department:   in.Department,
			Municipality: in.Municipality,
			Neighborhood: in.Neighborhood,
		})
		if err != nil {
			return err
		}
		created.PropertyTypeID = pt.ID
		created.LocationID = loc.ID
		return tx.Publications().Create(ctx, created)
	})
	if err != nil {
		s.discard(ctx, refs)
		return nil, storageError(err)
	}

	observability.PublicationsWritten.WithLabelValues("create").Inc()
	cache.Invalidate(ctx, cache.RecentPublicationsKey, cache.PropertyTypesKey)
	slog.InfoContext(ctx, "Publication created", "publication_id", created.ID, "images", len(refs))

	return s.load(ctx, created.ID)
}

// Update applies patch to the listing. Only the owner may update; both checks
// run before any image is uploaded or row is written.
func (s *PublicationService) Update(
	ctx context.Context,
	id uint,
	requester models.Identity,
	patch PublicationPatch,
	uploads []storage.ImageUpload,
) (pub *models.Publication, err error) {
	span, ctx := observability.NewSpan(ctx, "PublicationService.Update",
		attribute.Int64("publication.id", int64(id)),
		attribute.Int64("user.id", int64(requester.ID)),
	)
	defer func() {
		span.SetError(err)
		span.End()
	}()

	ownerID, err := s.store.Publications().GetOwnerID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Publication", id)
	}
	if ownerID != requester.ID {
		return nil, models.NewForbiddenError("Only the owner can edit this publication")
	}

	patch.normalize()
	if err := patch.validate(); err != nil {
		return nil, err
	}
	var windows []models.AvailableTime
	if patch.replacesAvailability() {
		if windows, err = BuildAvailability(patch.AvailableTimes.Value); err != nil {
			return nil, err
		}
	}

	refs, err := s.upload(ctx, requester.ID, uploads)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		row, err := tx.Publications().GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Publication", id)
		}
		if row.UserID != requester.ID {
			return models.NewForbiddenError("Only the owner can edit this publication")
		}

		if patch.TypeName.Present() {
			pt, err := tx.Registry().FindOrCreatePropertyType(ctx, patch.TypeName.Value)
			if err != nil {
				return err
			}
			row.PropertyTypeID = pt.ID
		}
		if patch.touchesLocation() {
			loc, err := tx.Registry().GetLocation(ctx, row.LocationID)
			if err != nil {
				return err
			}
			if merged := mergeLocation(*loc, patch); merged.ID == 0 {
				found, err := tx.Registry().FindOrCreateLocation(ctx, merged)
				if err != nil {
					return err
				}
				row.LocationID = found.ID
			}
		}
		applyPatch(row, patch)

		if err := tx.Publications().Update(ctx, row); err != nil {
			return err
		}
		if len(refs) > 0 {
			next, err := tx.Publications().NextImagePosition(ctx, id)
			if err != nil {
				return err
			}
			images := imageRows(refs, next)
			for i := range images {
				images[i].PublicationID = id
			}
			if err := tx.Publications().AppendImages(ctx, images); err != nil {
				return err
			}
		}
		if patch.replacesAvailability() {
			return tx.Publications().ReplaceAvailability(ctx, id, windows)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, refs)
		return nil, storageError(err)
	}

	observability.PublicationsWritten.WithLabelValues("update").Inc()
	cache.InvalidatePublication(ctx, id)
	if patch.TypeName.Present() {
		cache.Invalidate(ctx, cache.PropertyTypesKey)
	}
	slog.InfoContext(ctx, "Publication updated", "publication_id", id, "images_added", len(refs))

	return s.load(ctx, id)
}

// mergeLocation overlays the location fields present in patch onto the current tuple.
// The result keeps loc's ID only when the tuple is unchanged.
func mergeLocation(loc models.Location, patch PublicationPatch) models.Location {
	out := loc
	if patch.Department.Present() {
		out.Department = patch.Department.Value
	}
	if patch.Municipality.Present() {
		out.Municipality = patch.Municipality.Value
	}
	if patch.Neighborhood.Present() {
		out.Neighborhood = patch.Neighborhood.Value
	}
	if out != loc {
		out.ID = 0
	}
	return out
}

func applyPatch(row *models.Publication, p PublicationPatch) {
	if p.Address.Present() {
		row.Address = p.Address.Value
	}
	if p.Title.Present() {
		row.Title = p.Title.Value
	}
	if p.Description.Set {
		row.Description = p.Description.Value
	}
	if p.Longitude.Present() {
		row.Longitude = p.Longitude.Value
	}
	if p.Latitude.Present() {
		row.Latitude = p.Latitude.Value
	}
	if p.Longitude.Present() || p.Latitude.Present() {
		row.Geohash = encodeGeohash(row.Latitude, row.Longitude)
	}
	if p.Size.Present() {
		row.Size = p.Size.Value
	}
	if p.Bedrooms.Present() {
		row.Bedrooms = p.Bedrooms.Value
	}
	if p.Floors.Present() {
		row.Floors = p.Floors.Value
	}
	if p.Parking.Present() {
		row.Parking = p.Parking.Value
	}
	if p.Furnished.Present() {
		row.Furnished = p.Furnished.Value
	}
	if p.Price.Present() {
		row.Price = p.Price.Value
	}
	if p.Status.Present() {
		row.Status = p.Status.Value
	}
}

// GetByID returns a listing of any status.
func (s *PublicationService) GetByID(ctx context.Context, id uint) (*models.Publication, error) {
	var pub models.Publication
	err := cache.Aside(ctx, cache.PublicationKey(id), &pub, cache.PublicationTTL, func() error {
		found, err := s.store.Publications().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "Publication", id)
		}
		pub = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

// ListFiltered returns active listings matching the single filter dimension.
func (s *PublicationService) ListFiltered(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, error) {
	if filter == nil {
		return nil, models.NewValidationError("Exactly one filter is required")
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	span, ctx := observability.NewSpan(ctx, "PublicationService.ListFiltered",
		attribute.String("filter.kind", string(filter.Kind())),
	)
	defer span.End()

	pubs, err := s.store.Publications().ListFiltered(ctx, filter)
	if err != nil {
		span.SetError(err)
		return nil, storageError(err)
	}
	return nonNil(pubs), nil
}

func validateFilter(filter models.PublicationFilter) error {
	switch f := filter.(type) {
	case models.PriceRangeFilter:
		if f.Min.GreaterThan(f.Max) {
			return models.NewFieldValidationError(map[string]string{"minPrice": "must not exceed maxPrice"})
		}
	case models.SizeRangeFilter:
		if f.Min.GreaterThan(f.Max) {
			return models.NewFieldValidationError(map[string]string{"minSize": "must not exceed maxSize"})
		}
	case models.DepartmentFilter:
		if f.Department == "" {
			return models.NewFieldValidationError(map[string]string{"department": "is required"})
		}
	case models.TypeNameFilter:
		if f.Name == "" {
			return models.NewFieldValidationError(map[string]string{"typeName": "is required"})
		}
	}
	return nil
}

// ListAll returns every active listing.
func (s *PublicationService) ListAll(ctx context.Context) ([]models.Publication, error) {
	pubs, err := s.store.Publications().ListAll(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return nonNil(pubs), nil
}

// ListByUser returns a user's listings of any status, newest first.
func (s *PublicationService) ListByUser(ctx context.Context, userID uint) ([]models.Publication, error) {
	pubs, err := s.store.Publications().ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	return nonNil(pubs), nil
}

// ListRecent returns the newest active listings.
func (s *PublicationService) ListRecent(ctx context.Context) ([]models.Publication, error) {
	var pubs []models.Publication
	err := cache.Aside(ctx, cache.RecentPublicationsKey, &pubs, cache.ListTTL, func() error {
		var err error
		pubs, err = s.store.Publications().ListRecent(ctx, RecentLimit)
		return storageError(err)
	})
	if err != nil {
		return nil, err
	}
	return nonNil(pubs), nil
}

// ListMostPopular ranks active listings by how many users saved them.
// With popular_legacy_order on, it lists the listings behind the newest favorite rows instead.
func (s *PublicationService) ListMostPopular(ctx context.Context) ([]models.Publication, error) {
	key := cache.PopularPublicationsKey
	list := s.store.Publications().ListMostPopular
	if s.flags.On(featureflags.PopularLegacyOrder) {
		key = cache.PopularLegacyKey
		list = s.store.Publications().ListRecentlyFavorited
	}

	var pubs []models.Publication
	err := cache.Aside(ctx, key, &pubs, cache.ListTTL, func() error {
		var err error
		pubs, err = list(ctx, PopularLimit)
		return storageError(err)
	})
	if err != nil {
		return nil, err
	}
	return nonNil(pubs), nil
}

func (s *PublicationService) load(ctx context.Context, id uint) (*models.Publication, error) {
	pub, err := s.store.Publications().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Publication", id)
	}
	return pub, nil
}

func (s *PublicationService) upload(ctx context.Context, ownerID uint, uploads []storage.ImageUpload) ([]storage.ImageRef, error) {
	return uploadImages(ctx, s.images, ownerID, uploads)
}

func (s *PublicationService) discard(ctx context.Context, refs []storage.ImageRef) {
	discardImages(ctx, s.images, refs)
}

// uploadImages stores uploads, classifying store failures as ImageStoreError.
func uploadImages(ctx context.Context, images storage.ImageStore, ownerID uint, uploads []storage.ImageUpload) ([]storage.ImageRef, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if images == nil {
		return nil, models.NewImageStoreError(errors.New("image store not configured"))
	}
	refs, err := images.Upload(ctx, ownerID, uploads)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewImageStoreError(err)
	}
	return refs, nil
}

// discardImages removes images whose database rows were never committed, or no longer exist.
func discardImages(ctx context.Context, images storage.ImageStore, refs []storage.ImageRef) {
	for _, ref := range refs {
		if err := images.Delete(context.WithoutCancel(ctx), ref); err != nil {
			slog.WarnContext(ctx, "Failed to remove orphaned image", "key", ref.Key, "error", err)
		}
	}
}

func imageRows(refs []storage.ImageRef, firstPosition int) []models.PublicationImage {
	rows := make([]models.PublicationImage, 0, len(refs))
	for i, ref := range refs {
		rows = append(rows, models.PublicationImage{
			URL:        ref.URL,
			StorageKey: ref.Key,
			Position:   firstPosition + i,
		})
	}
	return rows
}

func encodeGeohash(lat, lng decimal.Decimal) string {
	return geohash.EncodeWithPrecision(lat.InexactFloat64(), lng.InexactFloat64(), GeohashPrecision)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
