// Package config resolves SDK settings from HAVN_* environment variables.
// Explicit client options always win over the environment; the environment
// wins over the documented defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	APIKey        string        `env:"HAVN_API_KEY"`
	WebhookSecret string        `env:"HAVN_WEBHOOK_SECRET"`
	BaseURL       string        `env:"HAVN_BASE_URL"        env-default:"https://api.havn.com" validate:"required,url"`
	Timeout       time.Duration `env:"HAVN_TIMEOUT"         env-default:"30s"                  validate:"gt=0,lte=5m"`
	MaxRetries    int           `env:"HAVN_MAX_RETRIES"     env-default:"3"                    validate:"min=0,max=10"`
	BackoffFactor time.Duration `env:"HAVN_BACKOFF_FACTOR"  env-default:"500ms"                validate:"gte=0,lte=30s"`
	TestMode      bool          `env:"HAVN_TEST_MODE"       env-default:"false"`

	ExchangeRateAPIURL     string        `env:"HAVN_EXCHANGE_RATE_API_URL"              env-default:"https://api.exchangerate-api.com/v4/latest/USD" validate:"required,url"`
	ExchangeRateCacheHours int           `env:"HAVN_EXCHANGE_RATE_CACHE_DURATION_HOURS" env-default:"24"                                             validate:"min=1,max=168"`
	CurrencyAPITimeout     time.Duration `env:"HAVN_CURRENCY_API_TIMEOUT"               env-default:"5s"                                             validate:"gt=0,lte=1m"`
}

// Load reads the environment and validates the result. Missing credentials
// are not an error here; the client decides whether it needs them.
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: read env: %w", op, err)
	}

	validate := validator.New()

	var validationErrors []string
	if err := validate.Struct(&cfg); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, ve := range validationErrs {
				validationErrors = append(validationErrors,
					fmt.Sprintf("%s=%v must satisfy '%s'", ve.Field(), ve.Value(), ve.Tag()))
			}
			return nil, fmt.Errorf(
				"%s: config validation: %v", op,
				strings.Join(validationErrors, "; "),
			)
		}
		return nil, fmt.Errorf("%s: config validation: %w", op, err)
	}

	return &cfg, nil
}
