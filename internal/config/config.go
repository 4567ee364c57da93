package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Environment selects the second configuration layer.
type Environment string

const (
	EnvLocal      Environment = "local"
	EnvProduction Environment = "production"
)

func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return EnvLocal, nil
	case "production":
		return EnvProduction, nil
	default:
		return "", fmt.Errorf("%s is not a supported environment. Use either `local` or `production`", s)
	}
}

type AppSettings struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	StaticDir       string   `yaml:"static_dir"`
	MaxParticipants int      `yaml:"max_participants"`
	MaxRooms        int      `yaml:"max_rooms"`
	QueueSize       int      `yaml:"queue_size"`
	OutboundBuffer  int      `yaml:"outbound_buffer"`
	MessagesDir     string   `yaml:"messages_dir"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// Addr is host:port for the HTTP listener.
func (a AppSettings) Addr() string { return net.JoinHostPort(a.Host, strconv.Itoa(a.Port)) }

type RedisSettings struct {
	URL string `yaml:"url"`
}

type DatabaseSettings struct {
	URL string `yaml:"url"`
}

type AppConfig struct {
	Environment Environment      `yaml:"-"`
	App         AppSettings      `yaml:"app"`
	Redis       RedisSettings    `yaml:"redis"`
	Database    DatabaseSettings `yaml:"database"`
}

func defaults() *AppConfig {
	return &AppConfig{
		App: AppSettings{
			Host:            "127.0.0.1",
			Port:            8080,
			StaticDir:       "dist",
			MaxParticipants: 1000,
			MaxRooms:        500,
			QueueSize:       1024,
			OutboundBuffer:  64,
		},
	}
}

// Load layers defaults, <dir>/base.yaml, <dir>/<APP_ENVIRONMENT>.yaml and
// environment overrides, in that order. Missing files are skipped.
func Load(dir string) (*AppConfig, error) {
	env, err := ParseEnvironment(os.Getenv("APP_ENVIRONMENT"))
	if err != nil {
		return nil, err
	}
	cfg := defaults()
	cfg.Environment = env

	if strings.TrimSpace(dir) != "" {
		for _, name := range []string{"base.yaml", string(env) + ".yaml"} {
			if err := applyFile(cfg, filepath.Join(dir, name)); err != nil {
				return nil, err
			}
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv reads APP_APP__<FIELD> overrides plus REDIS_URL and DATABASE_URL.
func applyEnv(cfg *AppConfig) error {
	if v := strings.TrimSpace(os.Getenv("APP_APP__HOST")); v != "" {
		cfg.App.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_APP__STATIC_DIR")); v != "" {
		cfg.App.StaticDir = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_APP__MESSAGES_DIR")); v != "" {
		cfg.App.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_APP__ALLOWED_ORIGINS")); v != "" {
		cfg.App.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.App.AllowedOrigins = append(cfg.App.AllowedOrigins, o)
			}
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"APP_APP__PORT", &cfg.App.Port},
		{"APP_APP__MAX_PARTICIPANTS", &cfg.App.MaxParticipants},
		{"APP_APP__MAX_ROOMS", &cfg.App.MaxRooms},
		{"APP_APP__QUEUE_SIZE", &cfg.App.QueueSize},
		{"APP_APP__OUTBOUND_BUFFER", &cfg.App.OutboundBuffer},
	}
	for _, it := range ints {
		v := strings.TrimSpace(os.Getenv(it.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = n
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.URL = v
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if strings.TrimSpace(c.App.Host) == "" {
		return errors.New("app.host is required")
	}
	if c.App.MaxParticipants < 0 || c.App.MaxRooms < 0 {
		return errors.New("capacity limits must not be negative")
	}
	if c.App.QueueSize <= 0 {
		c.App.QueueSize = 1024
	}
	if c.App.OutboundBuffer <= 0 {
		c.App.OutboundBuffer = 64
	}
	return nil
}
