package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inmomarket/internal/middleware"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers         int
	NumPublications  int
	FavoritesPerUser int
	NumReports       int
	ShouldClean      bool
	Seed             int64
}

// Result counts what a run created.
type Result struct {
	Users        int
	Publications int
	Favorites    int
	Reports      int
	Resolved     int
}

// Seed populates db with an admin, regular users, their listings, favorites and
// reports. About half of the reports are resolved with admin feedback.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (Result, error) {
	var res Result
	if opts.ShouldClean {
		if err := ClearAll(ctx, db); err != nil {
			return res, fmt.Errorf("clean: %w", err)
		}
	}

	f, err := NewFactory(repository.NewStore(db), opts.Seed)
	if err != nil {
		return res, err
	}

	admin, err := f.CreateUser(ctx, models.RoleAdmin)
	if err != nil {
		return res, fmt.Errorf("create admin: %w", err)
	}
	users := make([]*models.User, 0, opts.NumUsers)
	for range opts.NumUsers {
		u, err := f.CreateUser(ctx, models.RoleUser)
		if err != nil {
			return res, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users) + 1
	if len(users) == 0 {
		return res, nil
	}

	pubs := make([]*models.Publication, 0, opts.NumPublications)
	for i := range opts.NumPublications {
		p, err := f.CreatePublication(ctx, users[i%len(users)])
		if err != nil {
			return res, fmt.Errorf("create publication: %w", err)
		}
		pubs = append(pubs, p)
	}
	res.Publications = len(pubs)
	if len(pubs) == 0 {
		return res, nil
	}

	for i, u := range users {
		for j := range min(opts.FavoritesPerUser, len(pubs)) {
			// stride through listings so popularity is uneven
			if err := f.Favorite(ctx, u, pubs[(i+j*(i+1))%len(pubs)]); err != nil {
				return res, fmt.Errorf("favorite: %w", err)
			}
		}
	}
	var favorites int64
	if err := db.WithContext(ctx).Model(&models.Favorite{}).Count(&favorites).Error; err != nil {
		return res, err
	}
	res.Favorites = int(favorites)

	for i := range opts.NumReports {
		report, err := f.CreateReport(ctx, users[i%len(users)], pubs[i%len(pubs)])
		if err != nil {
			return res, fmt.Errorf("create report: %w", err)
		}
		res.Reports++
		if i%2 == 0 {
			if _, err := f.ResolveReport(ctx, admin, report); err != nil {
				return res, fmt.Errorf("resolve report: %w", err)
			}
			res.Resolved++
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", res.Users),
		slog.Int("publications", res.Publications),
		slog.Int("favorites", res.Favorites),
		slog.Int("reports", res.Reports),
		slog.Int("resolved", res.Resolved),
		slog.String("admin_email", admin.Email),
	)
	return res, nil
}

// ClearAll deletes every marketplace row, children first.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.Report{},
		&models.Favorite{},
		&models.PublicationImage{},
		&models.AvailableTime{},
		&models.Publication{},
		&models.Location{},
		&models.PropertyType{},
		&models.User{},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
