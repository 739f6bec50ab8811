package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is process configuration read from the environment.
type Config struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"./data/inhouse.db"`
	AdminToken   string        `env:"ADMIN_TOKEN"`
	BetWindow    time.Duration `env:"BET_WINDOW" envDefault:"10m"`
	RNGSeed      int64         `env:"RNG_SEED" envDefault:"0"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	VAPIDPublicKey  string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string `env:"VAPID_SUBJECT" envDefault:"mailto:admin@localhost"`
}

// Read parses the configuration from the environment.
func Read() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
