package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config is the environment-provided configuration surface.
type Config struct {
	// BotToken authenticates to the messaging platform.
	BotToken string `env:"BOT_TOKEN,required,notEmpty"`

	// ChannelUsername is the gate channel users must join, with leading "@".
	ChannelUsername string `env:"CHANNEL_USERNAME" envDefault:"@legendxexpert"`

	// VerifiedTTL is how long a confirmed membership stays cached.
	VerifiedTTL time.Duration `env:"VERIFIED_TTL" envDefault:"12h"`

	// ReplicateAPIToken, when set, enables the remote enhancement attempt
	// before the local pipeline. ReplicateModel selects the model version.
	ReplicateAPIToken string `env:"REPLICATE_API_TOKEN"`
	ReplicateModel    string `env:"REPLICATE_MODEL" envDefault:"xinntao/Real-ESRGAN"`

	// RemoteTimeout bounds one remote enhancement attempt end to end.
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"30s"`

	// MaxEnhanceWorkers caps concurrent local pipeline runs. 0 means NumCPU.
	MaxEnhanceWorkers int64 `env:"MAX_ENHANCE_WORKERS" envDefault:"0"`

	// MetricsAddr, when set (e.g. ":9090"), serves prometheus metrics.
	MetricsAddr string `env:"METRICS_ADDR"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	// Load .env if available; ignore error if file does not exist
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxEnhanceWorkers <= 0 {
		cfg.MaxEnhanceWorkers = int64(runtime.NumCPU())
	}
	return cfg, nil
}

// RemoteEnabled reports whether the remote enhancement path is configured.
func (c Config) RemoteEnabled() bool {
	return c.ReplicateAPIToken != ""
}
