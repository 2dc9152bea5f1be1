package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig controls the websocket server process.
type ServerConfig struct {
	Addr           string        `env:"SPACESIM_ADDR"            envDefault:":5000"`
	LogLevel       string        `env:"SPACESIM_LOG_LEVEL"       envDefault:"info"`
	FrameInterval  time.Duration `env:"SPACESIM_FRAME_INTERVAL"  envDefault:"16ms"`
	AllowedOrigins []string      `env:"SPACESIM_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	MaxSessions    int           `env:"SPACESIM_MAX_SESSIONS"    envDefault:"1000"`
	DataDir        string        `env:"SPACESIM_DATA_DIR"        envDefault:".spacesim"`
}

// LoadServerConfig reads ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
