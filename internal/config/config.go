package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"dumamon/internal/logger"
)

// Config is the top-level application configuration loaded from TOML.
type Config struct {
	Theme              string        `toml:"theme"`
	DefaultCredentials string        `toml:"default_credentials"`
	PollInterval       time.Duration `toml:"-"`
	PollIntervalStr    string        `toml:"poll_interval"`
	RequestTimeout     time.Duration `toml:"-"`
	RequestTimeoutStr  string        `toml:"request_timeout"`
	MaxHistory         int           `toml:"max_history"`
	ListenAddr         string        `toml:"listen_addr"`
	Log                logger.Config `toml:"log"`
	Routers            []Router      `toml:"routers"`
}

// Router describes a single DumaOS router to poll.
type Router struct {
	Name              string        `toml:"name"`
	Host              string        `toml:"host"`
	VerifyTLS         *bool         `toml:"verify_tls"`
	Credentials       string        `toml:"credentials"`
	PollInterval      time.Duration `toml:"-"`
	PollIntervalStr   string        `toml:"poll_interval"`
	RequestTimeout    time.Duration `toml:"-"`
	RequestTimeoutStr string        `toml:"request_timeout"`
	SNMPCommunity     string        `toml:"snmp_community"`
}

// TLSVerify reports whether certificate verification is enabled for this
// router. Unset means verify; self-signed routers opt out explicitly.
func (r Router) TLSVerify() bool {
	return r.VerifyTLS == nil || *r.VerifyTLS
}

func DefaultConfig() *Config {
	return &Config{
		Theme:             "solarized-dark",
		PollInterval:      20 * time.Second,
		PollIntervalStr:   "20s",
		RequestTimeout:    10 * time.Second,
		RequestTimeoutStr: "10s",
		MaxHistory:        360,
		ListenAddr:        "127.0.0.1:8970",
		Log:               logger.Config{Level: "info"},
	}
}

// LoadConfig reads the TOML config at path. A missing file yields defaults.
// Router entries inherit the global interval, timeout, and credential
// profile unless they set their own.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.PollIntervalStr != "" {
		d, err := time.ParseDuration(c.PollIntervalStr)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if c.RequestTimeoutStr != "" {
		d, err := time.ParseDuration(c.RequestTimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 360
	}
	for i := range c.Routers {
		r := &c.Routers[i]
		if r.Host == "" {
			return fmt.Errorf("router %d: host is required", i)
		}
		if r.Name == "" {
			r.Name = r.Host
		}
		if r.Credentials == "" {
			r.Credentials = c.DefaultCredentials
		}
		r.PollInterval = c.PollInterval
		if r.PollIntervalStr != "" {
			d, err := time.ParseDuration(r.PollIntervalStr)
			if err != nil {
				return fmt.Errorf("router %q: invalid poll_interval: %w", r.Name, err)
			}
			r.PollInterval = d
		}
		r.RequestTimeout = c.RequestTimeout
		if r.RequestTimeoutStr != "" {
			d, err := time.ParseDuration(r.RequestTimeoutStr)
			if err != nil {
				return fmt.Errorf("router %q: invalid request_timeout: %w", r.Name, err)
			}
			r.RequestTimeout = d
		}
	}
	return nil
}

// SaveConfig writes the config to a TOML file at path.
func SaveConfig(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteConfig(cfg, f)
}

// WriteConfig renders the config as TOML to w.
func WriteConfig(cfg *Config, w io.Writer) error {
	cfg.PollIntervalStr = cfg.PollInterval.String()
	cfg.RequestTimeoutStr = cfg.RequestTimeout.String()
	return toml.NewEncoder(w).Encode(cfg)
}
