// Command admin manages marketplace accounts from the shell.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"inmomarket/internal/config"
	"inmomarket/internal/database"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/server"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>             - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>              - Demote admin to user")
	fmt.Println("  go run ./cmd/admin list-admins                   - List all admins")
	fmt.Println("  go run ./cmd/admin create-user <email> <name>    - Create a regular account")
	fmt.Println("  go run ./cmd/admin token <user_id> [ttl]         - Print an access token (default ttl 24h)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewStore(db).Users()
	ctx := context.Background()

	switch os.Args[1] {
	case "promote":
		setRole(ctx, users, arg(2, "promote <user_id>"), models.RoleAdmin)
	case "demote":
		setRole(ctx, users, arg(2, "demote <user_id>"), models.RoleUser)
	case "list-admins":
		listAdmins(ctx, users)
	case "create-user":
		createUser(ctx, users, arg(2, "create-user <email> <name>"), strings.Join(os.Args[3:], " "))
	case "token":
		ttl := 24 * time.Hour
		if len(os.Args) > 3 {
			if ttl, err = time.ParseDuration(os.Args[3]); err != nil {
				log.Fatalf("Invalid ttl %q: %v", os.Args[3], err)
			}
		}
		printToken(ctx, cfg, users, arg(2, "token <user_id> [ttl]"), ttl)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func arg(i int, form string) string {
	if len(os.Args) <= i {
		fmt.Printf("Usage: go run ./cmd/admin %s\n", form)
		os.Exit(1)
	}
	return os.Args[i]
}

func loadUser(ctx context.Context, users repository.UserRepository, rawID string) *models.User {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		log.Fatalf("Invalid user ID %q", rawID)
	}
	user, err := users.GetByID(ctx, uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			fmt.Printf("User with ID %s not found\n", rawID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	return user
}

func setRole(ctx context.Context, users repository.UserRepository, rawID string, role models.Role) {
	user := loadUser(ctx, users, rawID)
	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Email, user.ID, role)
		return
	}
	if err := users.SetRole(ctx, user.ID, role); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Updated %s (ID: %d) to role %s\n", user.Email, user.ID, role)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.DisplayName, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func createUser(ctx context.Context, users repository.UserRepository, email, name string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name = strings.TrimSpace(name); name == "" {
		name = email
	}
	user := &models.User{Email: email, DisplayName: name, Role: models.RoleUser}
	if err := users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			fmt.Printf("A user with email %s already exists\n", email)
			os.Exit(1)
		}
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Printf("Created %s (ID: %d)\n", user.Email, user.ID)
}

func printToken(ctx context.Context, cfg *config.Config, users repository.UserRepository, rawID string, ttl time.Duration) {
	user := loadUser(ctx, users, rawID)
	token, err := server.IssueToken(cfg.JWTSecret, user, ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
