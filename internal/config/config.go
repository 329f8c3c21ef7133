// Package config loads the panel configuration from configs/config.yml,
// PUMP_* environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PUMP"

// Config mirrors the sections of config.yml.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Panel    PanelConfig    `mapstructure:"panel"`
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Labels   LabelsConfig   `mapstructure:"labels"`
	Terminal TerminalConfig `mapstructure:"terminal"`
}

// UpstreamConfig describes the telemetry source. URL is the page origin of
// the controller (http or https); the WebSocket endpoint is derived from it.
type UpstreamConfig struct {
	URL              string        `mapstructure:"url"`
	ReloadDelay      time.Duration `mapstructure:"reload_delay"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
}

type PanelConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// DBConfig locates the journal. Entries older than Retention are pruned every
// PruneInterval; a zero Retention keeps them forever.
type DBConfig struct {
	Path          string        `mapstructure:"path"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LabelsConfig struct {
	PumpOn  string `mapstructure:"pump_on"`
	PumpOff string `mapstructure:"pump_off"`
}

type TerminalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"url":       "upstream.url",
	"port":      "panel.port",
	"db":        "db.path",
	"log-level": "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.url", "http://127.0.0.1:8080")
	v.SetDefault("upstream.reload_delay", 3*time.Second)
	v.SetDefault("upstream.handshake_timeout", 10*time.Second)
	v.SetDefault("upstream.write_timeout", 10*time.Second)
	v.SetDefault("panel.enabled", true)
	v.SetDefault("panel.port", "8090")
	v.SetDefault("db.path", "panel.db")
	v.SetDefault("db.retention", 7*24*time.Hour)
	v.SetDefault("db.prune_interval", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("labels.pump_on", "ON")
	v.SetDefault("labels.pump_off", "OFF")
	v.SetDefault("terminal.enabled", false)
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to config file (default: configs/config.yml)")
	fs.String("url", "", "Controller page URL, e.g. http://192.168.1.20:8080")
	fs.String("port", "", "Local panel HTTP port")
	fs.String("db", "", "Path to the SQLite journal")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
}

// Load resolves the configuration. An explicit path must exist; without one
// configs/config.yml is optional. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %q: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath("configs")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func validate(cfg Config) error {
	u, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return fmt.Errorf("upstream.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream.url must be http or https, got %q", cfg.Upstream.URL)
	}
	if u.Host == "" {
		return errors.New("upstream.url must include a host")
	}
	if cfg.Upstream.ReloadDelay <= 0 {
		return errors.New("upstream.reload_delay must be > 0")
	}
	if cfg.Upstream.HandshakeTimeout <= 0 {
		return errors.New("upstream.handshake_timeout must be > 0")
	}
	if cfg.Upstream.WriteTimeout <= 0 {
		return errors.New("upstream.write_timeout must be > 0")
	}
	if cfg.DB.Retention < 0 {
		return errors.New("db.retention must be >= 0")
	}
	if cfg.DB.Retention > 0 && cfg.DB.PruneInterval <= 0 {
		return errors.New("db.prune_interval must be > 0 when db.retention is set")
	}
	if cfg.Panel.Enabled && cfg.Panel.Port == "" {
		return errors.New("panel.port must not be empty when the panel is enabled")
	}
	if cfg.Labels.PumpOn == "" || cfg.Labels.PumpOff == "" {
		return errors.New("labels.pump_on and labels.pump_off must not be empty")
	}
	return nil
}
