// Command seed populates the database with demo marketplace data.
package main

import (
	"context"
	"flag"
	"log"

	"inmomarket/internal/config"
	"inmomarket/internal/database"
	"inmomarket/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of regular users to create")
	numPublications := flag.Int("publications", 60, "Number of publications to create")
	favoritesPerUser := flag.Int("favorites", 5, "Favorites per user")
	numReports := flag.Int("reports", 15, "Number of reports to file")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(context.Background(), db, seed.Options{
		NumUsers:         *numUsers,
		NumPublications:  *numPublications,
		FavoritesPerUser: *favoritesPerUser,
		NumReports:       *numReports,
		ShouldClean:      *shouldClean,
		Seed:             *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d publications, %d favorites, %d reports (%d resolved)",
		res.Users, res.Publications, res.Favorites, res.Reports, res.Resolved)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
