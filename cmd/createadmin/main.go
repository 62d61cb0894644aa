package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mobeebot/internal/auth"
	"mobeebot/internal/config"
	"mobeebot/internal/db"
	"mobeebot/internal/logging"
	"mobeebot/internal/store"
	"mobeebot/internal/validator"
)

func main() {
	username := flag.String("username", "", "admin login name")
	role := flag.String("role", auth.RoleViewer, "viewer, operator or super")
	flag.Parse()
	password := os.Getenv("ADMIN_PASSWORD")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to read .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger, flush, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer flush()

	if err := validator.ValidateUsername(*username); err != nil {
		logger.Fatal("invalid username", zap.Error(err))
	}
	if err := validator.ValidatePassword(password); err != nil {
		logger.Fatal("invalid ADMIN_PASSWORD", zap.Error(err))
	}
	if !auth.KnownRole(*role) {
		logger.Fatal("unknown role", zap.String("role", *role))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	id, err := store.NewAdminStore(database).Create(ctx, *username, hash, *role)
	if errors.Is(err, store.ErrDuplicate) {
		logger.Fatal("admin already exists", zap.String("username", *username))
	}
	if err != nil {
		logger.Fatal("failed to create admin", zap.Error(err))
	}
	logger.Info("admin created", zap.Int64("id", id), zap.String("username", *username), zap.String("role", *role))
}
