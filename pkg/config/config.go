package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	dbutils "github.com/tendant/db-utils/db"
)

type DatabaseConfig struct {
	Host     string `env:"SETTINGS_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SETTINGS_PG_PORT" env-default:"5432"`
	Database string `env:"SETTINGS_PG_DATABASE" env-default:"settings_db"`
	User     string `env:"SETTINGS_PG_USER" env-default:"settings"`
	Password string `env:"SETTINGS_PG_PASSWORD" env-default:"pwd"`
}

func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

type PersistenceConfig struct {
	// Type selects the record repository: postgres, file or memory
	Type    string `env:"PERSISTENCE_TYPE" env-default:"postgres"`
	DataDir string `env:"PERSISTENCE_DATA_DIR" env-default:"./data"`
}

type ChallengeStoreConfig struct {
	// Type selects the pending challenge store: redis or memory
	Type          string        `env:"CHALLENGE_STORE_TYPE" env-default:"memory"`
	TTL           time.Duration `env:"CHALLENGE_TTL" env-default:"30m"`
	RedisAddr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
}

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer    string `env:"JWT_ISSUER" env-default:"simple-settings"`
	Audience  string `env:"JWT_AUDIENCE" env-default:"public"`
}

type TwoFactorConfig struct {
	// ApplicationTitle is both the label and the issuer shown in authenticator apps
	ApplicationTitle string `env:"APPLICATION_TITLE" env-default:"simple-settings"`
	TotpProvider     string `env:"TOTP_PROVIDER" env-default:"pquerna"`
	QRSize           int    `env:"TOTP_QR_SIZE" env-default:"200"`
}

type PasswordConfig struct {
	Algorithm string `env:"PASSWORD_HASH_ALGORITHM" env-default:"bcrypt"`
}

type EmailConfig struct {
	Enabled  bool   `env:"EMAIL_NOTICES_ENABLED" env-default:"false"`
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

// Settings groups every setting the service reads
type Settings struct {
	Database  DatabaseConfig
	Persist   PersistenceConfig
	Challenge ChallengeStoreConfig
	Jwt       JwtConfig
	TwoFactor TwoFactorConfig
	Password  PasswordConfig
	Email     EmailConfig
}

// Load reads Settings from the environment and checks the selector values
func Load() (Settings, error) {
	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.Persist.Type {
	case "postgres", "postgresql", "file", "memory", "inmem":
	default:
		return fmt.Errorf("invalid PERSISTENCE_TYPE: %q", s.Persist.Type)
	}
	switch s.Challenge.Type {
	case "redis", "memory", "inmem":
	default:
		return fmt.Errorf("invalid CHALLENGE_STORE_TYPE: %q", s.Challenge.Type)
	}
	if s.Challenge.TTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	if s.Jwt.JwtSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
