package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file lookup.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/liblogin/config.yaml",
}

// AppConfig collects everything needed to run the portal backend.
type AppConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Media     MediaConfig     `koanf:"media"`
	Hotspot   HotspotConfig   `koanf:"hotspot"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
	Admin     AdminConfig     `koanf:"admin"`
}

type ServerConfig struct {
	ListenAddr    string `koanf:"listen_addr"`
	GinMode       string `koanf:"gin_mode"`
	SessionSecret string `koanf:"session_secret"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type CacheConfig struct {
	Driver        string        `koanf:"driver"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	LandingTTL    time.Duration `koanf:"landing_ttl"`
}

type MediaConfig struct {
	BaseURL string `koanf:"base_url"`
}

// HotspotConfig points at the directory holding the hotspot_* login folders.
type HotspotConfig struct {
	RootDir string `koanf:"root_dir"`
}

type AnalyticsConfig struct {
	Timezone              string `koanf:"timezone"`
	DefaultTargetAudience int    `koanf:"default_target_audience"`
}

type RateLimitConfig struct {
	ImpressionsPerMinute int `koanf:"impressions_per_minute"`
}

type LogConfig struct {
	Mode string `koanf:"mode"`
}

type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

func defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:    ":8000",
			GinMode:       "release",
			SessionSecret: "liblogin-dev-secret",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "liblogin.db",
		},
		Cache: CacheConfig{
			Driver:     "memory",
			RedisAddr:  "127.0.0.1:6379",
			LandingTTL: 300 * time.Second,
		},
		Media:     MediaConfig{BaseURL: "/media"},
		Hotspot:   HotspotConfig{RootDir: "."},
		Analytics: AnalyticsConfig{Timezone: "Local", DefaultTargetAudience: 1000},
		RateLimit: RateLimitConfig{ImpressionsPerMinute: 120},
		Log:       LogConfig{Mode: "production"},
	}
}

// Load reads defaults, then the optional YAML file, then environment variables.
func Load() (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return AppConfig{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := strings.TrimSpace(os.Getenv(PathEnvVar)); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var legacyEnv = map[string]string{
	"listen_addr":    "server.listen_addr",
	"gin_mode":       "server.gin_mode",
	"session_secret": "server.session_secret",
	"database_path":  "database.dsn",
	"redis_addr":     "cache.redis_addr",
}

// envKey maps LIBLOGIN_SECTION_FIELD and the older flat names onto koanf paths.
// Anything else in the environment is ignored.
func envKey(key string) string {
	lower := strings.ToLower(key)
	if mapped, ok := legacyEnv[lower]; ok {
		return mapped
	}

	rest, ok := strings.CutPrefix(lower, "liblogin_")
	if !ok {
		return ""
	}
	section, field, ok := strings.Cut(rest, "_")
	if !ok {
		return ""
	}
	return section + "." + field
}

func (c *AppConfig) normalize() {
	c.Server.ListenAddr = strings.TrimSpace(c.Server.ListenAddr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("LISTEN_ADDR") == "" &&
		os.Getenv("LIBLOGIN_SERVER_LISTEN_ADDR") == "" {
		c.Server.ListenAddr = ":" + port
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Media.BaseURL = strings.TrimRight(strings.TrimSpace(c.Media.BaseURL), "/")
	if strings.TrimSpace(c.Analytics.Timezone) == "" {
		c.Analytics.Timezone = "Local"
	}
}

// Validate rejects settings the server cannot start with.
func (c AppConfig) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache driver %q", c.Cache.Driver))
	}
	if c.Cache.LandingTTL <= 0 {
		errs = append(errs, errors.New("cache landing_ttl must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("analytics timezone: %w", err))
	}
	if c.RateLimit.ImpressionsPerMinute < 0 {
		errs = append(errs, errors.New("ratelimit impressions_per_minute must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves the timezone used for calendar-day bucketing.
func (c AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Analytics.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
