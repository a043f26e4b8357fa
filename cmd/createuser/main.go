package main

import (
	"context"
	"flag"
	"log"

	"github.com/novelvoice-team/novelvoice/internal/adapter/repository"
	"github.com/novelvoice-team/novelvoice/internal/infrastructure/database"
	"github.com/novelvoice-team/novelvoice/internal/usecase/auth"
	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/jwt"
)

// createuser seeds an account, typically the first superuser after a fresh
// deployment
func main() {
	username := flag.String("username", "", "account username")
	password := flag.String("password", "", "account password")
	superuser := flag.Bool("superuser", false, "grant superuser rights")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	jwtManager := jwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(repository.NewUserRepository(db), jwtManager)

	user, err := authService.CreateUser(context.Background(), *username, *password, *superuser)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	log.Printf("✅ Created user %s (%s), superuser=%v", user.Username, user.ID, user.IsSuperuser)
}
