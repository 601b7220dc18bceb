package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/auth"
	"github.com/waiyaki/maintraq/internal/config"
	"github.com/waiyaki/maintraq/internal/handlers"
	"github.com/waiyaki/maintraq/internal/mailer"
	"github.com/waiyaki/maintraq/internal/notify"
	"github.com/waiyaki/maintraq/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize signing key: %v", err)
	}

	if err := db.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	dispatcher := notify.New(mailer.NewSMTPMailer(cfg), db.DB, cfg.AdminEmail, cfg.Domain)
	handlers.Setup(cfg, dispatcher)

	r := router.NewRouter()

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
