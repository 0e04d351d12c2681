package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gallery-pipeline/internal/logging"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is the config file looked for in the working directory
// when GALLERY_CONFIG is not set.
const DefaultConfigFile = "gallery.toml"

// Config holds all pipeline configuration.
type Config struct {
	// SourceDir is the root scanned for raw media.
	SourceDir string `toml:"source_dir"`
	// OptimizedDir receives full-tier variants.
	OptimizedDir string `toml:"optimized_dir"`
	// ThumbsDir receives thumbnail-tier variants.
	ThumbsDir string `toml:"thumbs_dir"`
	// ManifestPath is where the manifest JSON is written.
	ManifestPath string `toml:"manifest_path"`

	// MaxWidth caps full-tier image width; sources are never upscaled.
	MaxWidth int `toml:"max_width"`
	// ThumbSize is the square thumbnail dimension.
	ThumbSize int `toml:"thumb_size"`
	// WebPQuality is the full-tier modern-format quality setting.
	WebPQuality int `toml:"webp_quality"`
	// WebPThumbQuality is the thumbnail-tier webp quality, tuned smaller
	// since thumbnails tolerate more compression.
	WebPThumbQuality int `toml:"webp_thumb_quality"`
	// JPEGQuality is the full-tier fallback-format quality setting.
	JPEGQuality int `toml:"jpeg_quality"`
	// JPEGThumbQuality is the thumbnail-tier jpeg quality.
	JPEGThumbQuality int `toml:"jpeg_thumb_quality"`

	// FFmpegBinary is the external video encoder executable.
	FFmpegBinary string `toml:"ffmpeg_binary"`
	// EncodeTimeout bounds each external encoder invocation.
	EncodeTimeout time.Duration `toml:"-"`
	// EncodeTimeoutStr is the TOML/env form of EncodeTimeout, e.g. "90s".
	EncodeTimeoutStr string `toml:"encode_timeout"`

	// MetricsFile is the Prometheus textfile output path; empty disables it.
	MetricsFile string `toml:"metrics_file"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		SourceDir:        "images",
		OptimizedDir:     "images-optimized",
		ThumbsDir:        "images-thumbs",
		ManifestPath:     "media-manifest.json",
		MaxWidth:         1600,
		ThumbSize:        400,
		WebPQuality:      82,
		WebPThumbQuality: 75,
		JPEGQuality:      75,
		JPEGThumbQuality: 70,
		FFmpegBinary:     "ffmpeg",
		EncodeTimeout:    90 * time.Second,
		EncodeTimeoutStr: "90s",
	}
}

// Load builds the configuration from defaults, an optional TOML file, and
// environment variable overrides, in that order.
func Load() (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("GALLERY_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logging.Info("Loaded configuration from %s", path)
	case os.IsNotExist(err) && !explicit:
		logging.Debug("No %s found, using defaults", DefaultConfigFile)
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if cfg.EncodeTimeoutStr != "" {
		timeout, err := time.ParseDuration(cfg.EncodeTimeoutStr)
		if err != nil {
			logging.Warn("Invalid encode timeout %q, using default 90s", cfg.EncodeTimeoutStr)
			timeout = 90 * time.Second
		}
		cfg.EncodeTimeout = timeout
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logConfig(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.SourceDir = getEnv("SOURCE_DIR", cfg.SourceDir)
	cfg.OptimizedDir = getEnv("OPTIMIZED_DIR", cfg.OptimizedDir)
	cfg.ThumbsDir = getEnv("THUMBS_DIR", cfg.ThumbsDir)
	cfg.ManifestPath = getEnv("MANIFEST_PATH", cfg.ManifestPath)
	cfg.MaxWidth = getEnvInt("MAX_WIDTH", cfg.MaxWidth)
	cfg.ThumbSize = getEnvInt("THUMB_SIZE", cfg.ThumbSize)
	cfg.WebPQuality = getEnvInt("WEBP_QUALITY", cfg.WebPQuality)
	cfg.WebPThumbQuality = getEnvInt("WEBP_THUMB_QUALITY", cfg.WebPThumbQuality)
	cfg.JPEGQuality = getEnvInt("JPEG_QUALITY", cfg.JPEGQuality)
	cfg.JPEGThumbQuality = getEnvInt("JPEG_THUMB_QUALITY", cfg.JPEGThumbQuality)
	cfg.FFmpegBinary = getEnv("FFMPEG_BINARY", cfg.FFmpegBinary)
	cfg.EncodeTimeoutStr = getEnv("ENCODE_TIMEOUT", cfg.EncodeTimeoutStr)
	cfg.MetricsFile = getEnv("METRICS_FILE", cfg.MetricsFile)
}

func (c *Config) validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source directory must not be empty")
	}
	if c.MaxWidth <= 0 {
		return fmt.Errorf("max width must be positive, got %d", c.MaxWidth)
	}
	if c.ThumbSize <= 0 {
		return fmt.Errorf("thumb size must be positive, got %d", c.ThumbSize)
	}
	for name, q := range map[string]int{
		"webp quality":       c.WebPQuality,
		"webp thumb quality": c.WebPThumbQuality,
		"jpeg quality":       c.JPEGQuality,
		"jpeg thumb quality": c.JPEGThumbQuality,
	} {
		if q < 1 || q > 100 {
			return fmt.Errorf("%s must be 1-100, got %d", name, q)
		}
	}
	if c.EncodeTimeout <= 0 {
		return fmt.Errorf("encode timeout must be positive, got %s", c.EncodeTimeout)
	}
	return nil
}

func logConfig(cfg *Config) {
	logging.Info("Configuration:")
	logging.Info("  SOURCE_DIR:      %s", cfg.SourceDir)
	logging.Info("  OPTIMIZED_DIR:   %s", cfg.OptimizedDir)
	logging.Info("  THUMBS_DIR:      %s", cfg.ThumbsDir)
	logging.Info("  MANIFEST_PATH:   %s", cfg.ManifestPath)
	logging.Info("  MAX_WIDTH:       %d", cfg.MaxWidth)
	logging.Info("  THUMB_SIZE:      %d", cfg.ThumbSize)
	logging.Info("  WEBP_QUALITY:    %d (thumb %d)", cfg.WebPQuality, cfg.WebPThumbQuality)
	logging.Info("  JPEG_QUALITY:    %d (thumb %d)", cfg.JPEGQuality, cfg.JPEGThumbQuality)
	logging.Info("  FFMPEG_BINARY:   %s", cfg.FFmpegBinary)
	logging.Info("  ENCODE_TIMEOUT:  %s", cfg.EncodeTimeout)
	if cfg.MetricsFile != "" {
		logging.Info("  METRICS_FILE:    %s", cfg.MetricsFile)
	}
	logging.Info("  LOG_LEVEL:       %s", logging.GetLevel())
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as int, or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		logging.Warn("Invalid %s value %q, using default %d", key, os.Getenv(key), defaultValue)
	}
	return defaultValue
}
