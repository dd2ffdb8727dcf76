package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "GLOVEBOX_CONFIG"

// DefaultPath is read when neither a flag nor EnvPath names a file.
const DefaultPath = "config/glovebox.toml"

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	Match    MatchConfig    `toml:"match"`
	Spectate SpectateConfig `toml:"spectate"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	MatchID   string `toml:"match_id"` // random when empty
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress       string        `toml:"bind_address"`
	FixedStep         time.Duration `toml:"fixed_step"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	PacketsPerSecond  int           `toml:"packets_per_second"` // 0 = unlimited
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	StartDelay        time.Duration `toml:"start_delay"`
}

type MatchConfig struct {
	TuningFile  string `toml:"tuning_file"` // empty = built-in tuning
	HitScript   string `toml:"hit_script"`  // empty = embedded script
	InputWindow int    `toml:"input_window"`
}

type SpectateConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config file to load: flagValue when set, else the
// EnvPath variable, else DefaultPath.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server.MatchID == "" {
		cfg.Server.MatchID = uuid.NewString()
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if _, err := uuid.Parse(c.Server.MatchID); err != nil {
		errs = append(errs, fmt.Errorf("server.match_id: %w", err))
	}
	if c.Network.FixedStep <= 0 {
		errs = append(errs, fmt.Errorf("network.fixed_step must be positive, got %s", c.Network.FixedStep))
	}
	if c.Network.InQueueSize <= 0 || c.Network.OutQueueSize <= 0 {
		errs = append(errs, errors.New("network queue sizes must be positive"))
	}
	if c.Network.MaxPacketsPerTick <= 0 {
		errs = append(errs, fmt.Errorf("network.max_packets_per_tick must be positive, got %d", c.Network.MaxPacketsPerTick))
	}
	if c.Match.InputWindow < 1 {
		errs = append(errs, fmt.Errorf("match.input_window must be at least 1, got %d", c.Match.InputWindow))
	}
	if c.Spectate.Enabled && c.Spectate.BindAddress == "" {
		errs = append(errs, errors.New("spectate.bind_address is required when spectate is enabled"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "glovebox",
		},
		Network: NetworkConfig{
			BindAddress:       "0.0.0.0:7777",
			FixedStep:         20 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       30 * time.Second,
			StartDelay:        3 * time.Second,
		},
		Match: MatchConfig{
			InputWindow: 50,
		},
		Spectate: SpectateConfig{
			BindAddress: "127.0.0.1:7778",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
