package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/config"
	"github.com/tendant/simple-settings/pkg/passwordhash"
)

// init-user seeds a security record so a login can use the settings pages.
func main() {
	loginIDStr := flag.String("login-id", "", "Login ID (UUID) of the record; random when empty")
	password := flag.String("password", "", "Initial password (required)")
	email := flag.String("email", "", "Email address for security notices")
	flag.Parse()

	if *password == "" {
		fmt.Println("Error: password is required")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	loginID := uuid.New()
	if *loginIDStr != "" {
		loginID, err = uuid.Parse(*loginIDStr)
		if err != nil {
			slog.Error("Invalid login ID", "loginID", *loginIDStr, "error", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Persist.Type == "postgres" || cfg.Persist.Type == "postgresql" {
		dbConfig := cfg.Database.ToDbConfig()
		pool, err = dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
			os.Exit(-1)
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, account.Schema); err != nil {
			slog.Error("Failed to apply schema", "error", err)
			os.Exit(-1)
		}
	}

	repo, err := account.NewRepository(cfg.Persist.Type, account.RepositoryConfig{
		Pool:    pool,
		DataDir: cfg.Persist.DataDir,
	})
	if err != nil {
		slog.Error("Failed to create record repository", "type", cfg.Persist.Type, "error", err)
		os.Exit(1)
	}

	hasher, err := passwordhash.New(passwordhash.Algorithm(cfg.Password.Algorithm))
	if err != nil {
		slog.Error("Failed to create password hasher", "algorithm", cfg.Password.Algorithm, "error", err)
		os.Exit(1)
	}

	hash, err := hasher.Hash(*password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		os.Exit(1)
	}

	record := account.Record{
		LoginID:      loginID,
		Email:        *email,
		PasswordHash: hash,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Save(ctx, record); err != nil {
		slog.Error("Failed to save security record", "loginID", loginID, "error", err)
		os.Exit(1)
	}

	slog.Info("Security record created", "loginID", loginID, "persistence", cfg.Persist.Type)
	fmt.Println(loginID)
}
