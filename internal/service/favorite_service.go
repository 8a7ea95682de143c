package service

import (
	"context"
	"errors"
	"log/slog"

	"inmomarket/internal/cache"
	"inmomarket/internal/models"
	"inmomarket/internal/observability"
	"inmomarket/internal/repository"
)

// ToggleResult is the outcome of a favorite toggle.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)

type FavoriteService struct {
	store repository.Store
}

func NewFavoriteService(store repository.Store) *FavoriteService {
	return &FavoriteService{store: store}
}

// errToggleRace marks a toggle whose insert lost to a concurrent toggle of the same pair.
var errToggleRace = errors.New("favorite inserted concurrently")

// toggleAttempts bounds how often a toggle is retried after losing an insert race.
const toggleAttempts = 2

// Toggle removes the favorite if it exists and adds it otherwise, in one transaction.
// The unique (user, publication) index keeps concurrent toggles from creating duplicates.
// When another toggle commits the row between the delete and the insert, the toggle is
// retried so that it applies on top of the winner's state.
func (s *FavoriteService) Toggle(ctx context.Context, userID, publicationID uint) (ToggleResult, error) {
	if err := s.requirePublication(ctx, publicationID); err != nil {
		return "", err
	}

	var result ToggleResult
	var err error
	for attempt := 1; attempt <= toggleAttempts; attempt++ {
		result, err = s.toggleOnce(ctx, userID, publicationID)
		if !errors.Is(err, errToggleRace) {
			break
		}
		slog.DebugContext(ctx, "Favorite toggle lost insert race", "publication_id", publicationID, "attempt", attempt)
	}
	if errors.Is(err, errToggleRace) {
		// the row exists, but another request wrote it
		cache.InvalidatePopularity(ctx)
		return ToggleAdded, nil
	}
	if err != nil {
		return "", storageError(err)
	}

	observability.FavoriteToggles.WithLabelValues(string(result)).Inc()
	cache.InvalidatePopularity(ctx)
	slog.DebugContext(ctx, "Favorite toggled", "publication_id", publicationID, "result", result)
	return result, nil
}

func (s *FavoriteService) toggleOnce(ctx context.Context, userID, publicationID uint) (ToggleResult, error) {
	var result ToggleResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		removed, err := tx.Favorites().Remove(ctx, userID, publicationID)
		if err != nil {
			return err
		}
		if removed {
			result = ToggleRemoved
			return nil
		}
		inserted, err := tx.Favorites().Add(ctx, userID, publicationID)
		if err != nil {
			return err
		}
		if !inserted {
			return errToggleRace
		}
		result = ToggleAdded
		return nil
	})
	return result, err
}

// ListForUser pages through the publications a user saved, most recently saved first.
func (s *FavoriteService) ListForUser(ctx context.Context, userID uint, req models.PageRequest) (models.Page[models.Publication], error) {
	req = req.Normalize()
	favs, total, err := s.store.Favorites().ListByUser(ctx, userID, req)
	if err != nil {
		return models.Page[models.Publication]{}, storageError(err)
	}
	pubs := make([]models.Publication, 0, len(favs))
	for _, f := range favs {
		if f.Publication != nil {
			pubs = append(pubs, *f.Publication)
		}
	}
	return models.NewPage(pubs, req, total), nil
}

func (s *FavoriteService) Exists(ctx context.Context, userID, publicationID uint) (bool, error) {
	ok, err := s.store.Favorites().Exists(ctx, userID, publicationID)
	return ok, storageError(err)
}

// Remove deletes a favorite, failing with NotFound when the user never saved the publication.
func (s *FavoriteService) Remove(ctx context.Context, userID, publicationID uint) error {
	removed, err := s.store.Favorites().Remove(ctx, userID, publicationID)
	if err != nil {
		return storageError(err)
	}
	if !removed {
		return models.NewNotFoundError("Favorite", publicationID)
	}
	observability.FavoriteToggles.WithLabelValues(string(ToggleRemoved)).Inc()
	cache.InvalidatePopularity(ctx)
	return nil
}

func (s *FavoriteService) StatsForUser(ctx context.Context, userID uint) (models.FavoriteStats, error) {
	n, err := s.store.Favorites().CountByUser(ctx, userID)
	if err != nil {
		return models.FavoriteStats{}, storageError(err)
	}
	return models.FavoriteStats{TotalCount: n}, nil
}

func (s *FavoriteService) requirePublication(ctx context.Context, id uint) error {
	ok, err := s.store.Publications().Exists(ctx, id)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return models.NewNotFoundError("Publication", id)
	}
	return nil
}
