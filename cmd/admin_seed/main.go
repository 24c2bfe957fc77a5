// Command admin_seed creates the analyst account used to reach the admin
// endpoints and prints a bearer token for it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/models"
	"fraudguard/internal/repositories"
	"fraudguard/internal/utils"
)

func main() {
	config.LoadEnv()

	name := flag.String("name", config.GetEnv("ADMIN_NAME", "Fraud Analyst"), "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" {
		log.Fatal("ADMIN_EMAIL or -email must be set")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver == "memory" {
		log.Fatal("admin_seed needs a persistent database")
	}

	db, err := repositories.Open(cfg.Database, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repositories.NewUserRepository(db)
	admin := &models.User{Name: *name, Email: *email, Role: models.RoleAdmin}
	switch err := users.Create(ctx, admin); {
	case errors.Is(err, repositories.ErrEmailTaken):
		existing, err := users.GetByEmail(ctx, *email)
		if err != nil {
			log.Fatalf("Failed to load existing admin: %v", err)
		}
		if existing.Role != models.RoleAdmin {
			log.Fatalf("%s exists but is not an admin", *email)
		}
		admin = existing
		log.Println("Admin user already exists")
	case err != nil:
		log.Fatalf("Failed to create admin user: %v", err)
	default:
		log.Println("✅ Admin account created successfully!")
	}

	token, err := utils.SignToken(cfg.Auth.JWTSecret, models.UserClaims{
		UserID: admin.ID,
		Email:  admin.Email,
		Role:   admin.Role,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
