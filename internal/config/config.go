// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultUploadDir       = "public/uploads"
	DefaultPublicPrefix    = "uploads"
	DefaultMaxUploadMB     = 50
	DefaultTempMaxAgeHours = 24
	DefaultQuality         = 85
	DefaultMaxWidth        = 2400
	DefaultMaxHeight       = 2400
	DefaultThumbnailSize   = 400
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "portfolio"
	DefaultPGSSLMode       = "disable"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Media    MediaConfig    `toml:"media"`
	Postgres PostgresConfig `toml:"postgres"`
}

// LogConfig holds the logging mode (development enables console colors).
type LogConfig struct {
	Development bool `toml:"development"`
}

// ServerConfig holds the HTTP server listen address and metrics port.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	MetricsPort string `toml:"metrics_port"`
}

// StorageConfig holds the upload area location and validation limits.
type StorageConfig struct {
	UploadDir         string   `toml:"upload_dir"`
	PublicPrefix      string   `toml:"public_prefix"`
	MaxUploadSizeMB   int64    `toml:"max_upload_size_mb"`
	AllowedImageTypes []string `toml:"allowed_image_types"`
	AllowedVideoTypes []string `toml:"allowed_video_types"`
	TempMaxAgeHours   int      `toml:"temp_max_age_hours"`
}

// MediaConfig holds the derivation pipeline tuning knobs.
type MediaConfig struct {
	Quality       int  `toml:"quality"`
	MaxWidth      int  `toml:"max_width"`
	MaxHeight     int  `toml:"max_height"`
	ThumbnailSize int  `toml:"thumbnail_size"`
	GenerateWebP  bool `toml:"generate_webp"`
	GenerateAVIF  bool `toml:"generate_avif"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN builds a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Config{
		Media: MediaConfig{GenerateWebP: true, GenerateAVIF: true},
	}

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultHTTPAddr
	}
	if cfg.Server.MetricsPort == "" {
		cfg.Server.MetricsPort = "9090"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = DefaultUploadDir
	}
	if cfg.Storage.PublicPrefix == "" {
		cfg.Storage.PublicPrefix = DefaultPublicPrefix
	}
	if cfg.Storage.MaxUploadSizeMB == 0 {
		cfg.Storage.MaxUploadSizeMB = DefaultMaxUploadMB
	}
	if len(cfg.Storage.AllowedImageTypes) == 0 {
		cfg.Storage.AllowedImageTypes = []string{
			"image/jpeg", "image/png", "image/webp", "image/gif",
		}
	}
	if len(cfg.Storage.AllowedVideoTypes) == 0 {
		cfg.Storage.AllowedVideoTypes = []string{
			"video/mp4", "video/webm", "video/quicktime",
		}
	}
	if cfg.Storage.TempMaxAgeHours == 0 {
		cfg.Storage.TempMaxAgeHours = DefaultTempMaxAgeHours
	}
	if cfg.Media.Quality == 0 {
		cfg.Media.Quality = DefaultQuality
	}
	if cfg.Media.MaxWidth == 0 {
		cfg.Media.MaxWidth = DefaultMaxWidth
	}
	if cfg.Media.MaxHeight == 0 {
		cfg.Media.MaxHeight = DefaultMaxHeight
	}
	if cfg.Media.ThumbnailSize == 0 {
		cfg.Media.ThumbnailSize = DefaultThumbnailSize
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPGHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPGPort
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = DefaultPGUser
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultPGDatabase
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = DefaultPGSSLMode
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PG_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}
}
