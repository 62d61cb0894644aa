package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mobeebot/internal/config"
	"mobeebot/internal/db"
	"mobeebot/internal/logging"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the numbered .sql files")
	flag.Parse()

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

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	applied, err := migrate(ctx, database, *dir, logger)
	if err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations complete", zap.Int("applied", applied))
}

func migrate(ctx context.Context, database *sqlx.DB, dir string, logger *zap.Logger) (int, error) {
	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			return applied, fmt.Errorf("read migration state: %w", err)
		}
		if exists {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return applied, err
		}
		tx, err := database.BeginTxx(ctx, nil)
		if err != nil {
			return applied, err
		}
		for _, stmt := range splitSQL(upSection(string(content))) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return applied, fmt.Errorf("apply %s: %w", filename, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record %s: %w", filename, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}
		logger.Info("applied migration", zap.String("file", filename))
		applied++
	}
	return applied, nil
}

func upSection(content string) string {
	up, _, _ := strings.Cut(content, downMarker)
	up = strings.Replace(up, upMarker, "", 1)
	return up
}

func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
