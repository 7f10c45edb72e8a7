package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config carries every operator-tunable limit. All values can be set through
// CONVERT_* environment variables or an optional config file.
type Config struct {
	ListenAddr  string
	Environment string

	// DataDir is the temp-file boundary. Everything the pipeline reads,
	// writes or deletes must resolve inside it.
	DataDir string
	DBPath  string

	MaxFiles        int
	MaxFileSize     int64
	MaxBodySize     int64
	MaxWidth        int
	MaxHeight       int
	MaxPixels       int64
	MaxArchiveBytes int64

	DailyQuota  int
	RedisAddr   string
	Concurrency int
	FileTimeout time.Duration
	ArchiveTTL  time.Duration

	// Sources larger than QualityCapBytes are encoded with quality capped at
	// QualityCap to bound output size and processing time.
	QualityCapBytes int64
	QualityCap      int
}

// Load reads configuration from the environment (CONVERT_ prefix) and an
// optional convert.yaml in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("convert")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("environment", "production")
	v.SetDefault("data_dir", "/data/convert")
	v.SetDefault("db_path", "/data/convert/convert.db")
	v.SetDefault("max_files", 5)
	v.SetDefault("max_file_size", 10<<20)
	v.SetDefault("max_body_size", 60<<20)
	v.SetDefault("max_width", 8192)
	v.SetDefault("max_height", 8192)
	v.SetDefault("max_pixels", int64(64<<20))
	v.SetDefault("max_archive_bytes", 100<<20)
	v.SetDefault("daily_quota", 100)
	v.SetDefault("redis_addr", "")
	v.SetDefault("concurrency", 4)
	v.SetDefault("file_timeout", "30s")
	v.SetDefault("archive_ttl", "10m")
	v.SetDefault("quality_cap_bytes", 4<<20)
	v.SetDefault("quality_cap", 70)

	v.SetConfigName("convert")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:      v.GetString("listen_addr"),
		Environment:     v.GetString("environment"),
		DataDir:         v.GetString("data_dir"),
		DBPath:          v.GetString("db_path"),
		MaxFiles:        v.GetInt("max_files"),
		MaxFileSize:     v.GetInt64("max_file_size"),
		MaxBodySize:     v.GetInt64("max_body_size"),
		MaxWidth:        v.GetInt("max_width"),
		MaxHeight:       v.GetInt("max_height"),
		MaxPixels:       v.GetInt64("max_pixels"),
		MaxArchiveBytes: v.GetInt64("max_archive_bytes"),
		DailyQuota:      v.GetInt("daily_quota"),
		RedisAddr:       v.GetString("redis_addr"),
		Concurrency:     v.GetInt("concurrency"),
		FileTimeout:     v.GetDuration("file_timeout"),
		ArchiveTTL:      v.GetDuration("archive_ttl"),
		QualityCapBytes: v.GetInt64("quality_cap_bytes"),
		QualityCap:      v.GetInt("quality_cap"),
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

// Development reports whether verbose error detail may be exposed to clients.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// UploadDir is the subtree where incoming files are written.
func (c *Config) UploadDir() string { return filepath.Join(c.DataDir, "uploads") }

// OutputDir is the subtree where converted files are written.
func (c *Config) OutputDir() string { return filepath.Join(c.DataDir, "output") }

// ArchiveDir is the subtree where downloadable archives are written.
func (c *Config) ArchiveDir() string { return filepath.Join(c.DataDir, "archives") }
