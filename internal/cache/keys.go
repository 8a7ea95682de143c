package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PublicationKeyPrefix   = "publication:%d"
	RecentPublicationsKey  = "publications:recent"
	PopularPublicationsKey = "publications:popular"
	PopularLegacyKey       = "publications:popular:legacy"
	PropertyTypesKey       = "property_types"
)

const (
	PublicationTTL = 10 * time.Minute
	ListTTL        = 2 * time.Minute
	CatalogTTL     = 30 * time.Minute
)

func PublicationKey(id uint) string {
	return fmt.Sprintf(PublicationKeyPrefix, id)
}

// Invalidate drops the given keys. Failures are tolerated; entries expire on their own.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidatePublication drops a listing and every list that may contain it.
func InvalidatePublication(ctx context.Context, id uint) {
	Invalidate(ctx, PublicationKey(id), RecentPublicationsKey, PopularPublicationsKey, PopularLegacyKey)
}

// InvalidatePopularity drops the rankings derived from favorites.
func InvalidatePopularity(ctx context.Context) {
	Invalidate(ctx, PopularPublicationsKey, PopularLegacyKey)
}
