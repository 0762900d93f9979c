package env

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/countdown/protocol"
)

type Config struct {
	Host string `env:"COUNTDOWN_HOST,default=0.0.0.0"`

	// HTTPPort enables the operational HTTP endpoint when set
	HTTPPort  string `env:"COUNTDOWN_HTTP_PORT"`
	DebugHTTP bool   `env:"COUNTDOWN_DEBUG_HTTP"`

	LogLevel string `env:"COUNTDOWN_LOG_LEVEL,default=info"`

	RedThreshold   uint64        `env:"COUNTDOWN_RED_THRESHOLD,default=5"`
	LenientSeconds bool          `env:"COUNTDOWN_LENIENT_SECONDS"`
	ReadTimeout    time.Duration `env:"COUNTDOWN_READ_TIMEOUT,default=30s"`

	Reuseport    bool `env:"COUNTDOWN_REUSEPORT"`
	NumListeners int  `env:"COUNTDOWN_LISTENERS"`
}

func (c *Config) ParseMode() protocol.ParseMode {
	if c.LenientSeconds {
		return protocol.Lenient
	}

	return protocol.Strict
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("Failed to load .env.local: %w", err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	if config.NumListeners < 0 {
		return nil, fmt.Errorf("COUNTDOWN_LISTENERS must not be negative, got %d", config.NumListeners)
	}

	return &config, nil
}
