package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/client"
	"github.com/tendant/simple-settings/pkg/config"
	"github.com/tendant/simple-settings/pkg/notice"
	"github.com/tendant/simple-settings/pkg/notification"
	"github.com/tendant/simple-settings/pkg/passwordhash"
	"github.com/tendant/simple-settings/pkg/pgp"
	"github.com/tendant/simple-settings/pkg/profile"
	settingsapi "github.com/tendant/simple-settings/pkg/settings/api"
	"github.com/tendant/simple-settings/pkg/totp"
	"github.com/tendant/simple-settings/pkg/twofa"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	loadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

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
	slog.Info("Using record repository", "type", cfg.Persist.Type)

	var redisClient *redis.Client
	if cfg.Challenge.Type == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Challenge.RedisAddr,
			Password: cfg.Challenge.RedisPassword,
			DB:       cfg.Challenge.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to redis", "addr", cfg.Challenge.RedisAddr, "error", err)
			os.Exit(1)
		}
	}

	store, err := challenge.NewStore(cfg.Challenge.Type, challenge.StoreConfig{
		Client: redisClient,
		TTL:    cfg.Challenge.TTL,
	})
	if err != nil {
		slog.Error("Failed to create challenge store", "type", cfg.Challenge.Type, "error", err)
		os.Exit(1)
	}

	totpProvider, err := totp.New(cfg.TwoFactor.TotpProvider, cfg.TwoFactor.ApplicationTitle)
	if err != nil {
		slog.Error("Failed to create totp provider", "provider", cfg.TwoFactor.TotpProvider, "error", err)
		os.Exit(1)
	}

	hasher, err := passwordhash.New(passwordhash.Algorithm(cfg.Password.Algorithm))
	if err != nil {
		slog.Error("Failed to create password hasher", "algorithm", cfg.Password.Algorithm, "error", err)
		os.Exit(1)
	}

	var notifier notice.Notifier = notice.NoopNotifier{}
	if cfg.Email.Enabled {
		var smtpConfig notification.SMTPConfig
		copier.Copy(&smtpConfig, &cfg.Email)
		noticeService, err := notice.NewSMTPService(smtpConfig, cfg.TwoFactor.ApplicationTitle)
		if err != nil {
			slog.Error("Failed to create notice service", "error", err)
			os.Exit(1)
		}
		notifier = noticeService
		slog.Info("Security notices enabled", "host", cfg.Email.Host, "port", cfg.Email.Port)
	}

	twoFaManager, err := twofa.NewManager(repo, totpProvider, pgp.NewCipher(),
		twofa.WithIssuer(cfg.TwoFactor.ApplicationTitle),
		twofa.WithQRSize(cfg.TwoFactor.QRSize),
		twofa.WithNotifier(notifier),
	)
	if err != nil {
		slog.Error("Failed to create 2fa manager", "error", err)
		os.Exit(1)
	}

	profileService, err := profile.NewProfileService(repo, hasher, profile.WithNotifier(notifier))
	if err != nil {
		slog.Error("Failed to create profile service", "error", err)
		os.Exit(1)
	}

	handler := settingsapi.NewHandler(repo, store, twoFaManager, profileService)

	tokenAuth := jwtauth.New("HS256", []byte(cfg.Jwt.JwtSecret), nil)

	server.R.Group(func(r chi.Router) {
		r.Use(client.Verifier(tokenAuth))
		r.Use(client.AuthUserMiddleware)
		r.Use(client.RequireAuth)
		handler.RegisterRoutes(r)
	})

	server.Run()
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() {
	envFile := ".env"
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envFile = candidate
		}
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
