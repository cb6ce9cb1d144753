package config

import (
	"fmt"  // DSN formatting
	"time" // Durations for TTLs and lockouts

	"github.com/caarlos0/env/v11" // Struct-tag environment parsing
	"github.com/joho/godotenv"    // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"` // Application port
	IsProd  bool   `env:"IS_PROD"`                    // Is production environment

	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`    // mysql, postgres or sqlite
	DBUser     string `env:"DB_USER"`                         // Database user
	DBPassword string `env:"DB_PASSWORD"`                     // Database password
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`  // Database host
	DBPort     string `env:"DB_PORT" envDefault:"3306"`       // Database port
	DBName     string `env:"DB_NAME" envDefault:"canteen"`    // Database name
	DBPath     string `env:"DB_PATH" envDefault:"canteen.db"` // SQLite file, only for DB_DRIVER=sqlite

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`      // JWT secret key
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"` // Token lifetime

	RedisAddr string `env:"REDIS_ADDR"` // Redis server address, empty disables caching
	RedisPass string `env:"REDIS_PASS"` // Redis password
	RedisDB   int    `env:"REDIS_DB"`   // Redis database number

	SMTPHost string `env:"SMTP_HOST"`                  // SMTP server, empty disables mail
	SMTPPort int    `env:"SMTP_PORT" envDefault:"465"` // SMTP port
	SMTPUser string `env:"SMTP_USER"`                  // SMTP account
	SMTPPass string `env:"SMTP_PASS"`                  // SMTP password
	SMTPFrom string `env:"SMTP_FROM"`                  // From header, defaults to SMTP_USER

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./uploads"`     // Root of stored uploads
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"2097152"` // 2 MB

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	PINMaxAttempts int           `env:"PIN_MAX_ATTEMPTS" envDefault:"3"`  // Failed PIN tries before lockout
	PINLockout     time.Duration `env:"PIN_LOCKOUT" envDefault:"15m"`     // Lockout duration
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"15m"` // Password reset token lifetime

	AdminEmail    string `env:"ADMIN_EMAIL"`    // Seeded by cmd/migrate
	AdminPassword string `env:"ADMIN_PASSWORD"` // Seeded by cmd/migrate
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	return cfg, nil
}

// DSN returns the data source name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
	case "sqlite":
		return c.DBPath
	default:
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
	}
}
