package config

import (
	"fmt"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the service reads from the environment. A .env
// file is loaded automatically in development via godotenv.
type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"comments"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	RecaptchaSecretKey string  `envconfig:"RECAPTCHA_SECRET_KEY"`
	RecaptchaThreshold float64 `envconfig:"RECAPTCHA_THRESHOLD" default:"0.7"`

	RateLimitWindow      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1h"`
	RateLimitMaxComments int           `envconfig:"RATE_LIMIT_MAX_COMMENTS" default:"10"`

	// Moderation alerts via SMS are enabled only when all four are set.
	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
	ModeratorPhone   string `envconfig:"MODERATOR_PHONE"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the deployment is flagged as production.
// Production enforces the bot-risk token and Secure cookies.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
