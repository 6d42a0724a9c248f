package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tuesfest/yt-leaderboard/internal/constants"
	apperrors "github.com/tuesfest/yt-leaderboard/pkg/errors"
)

// SourceMode selects which remote video-metadata source feeds the aggregator.
type SourceMode string

const (
	SourceModeYouTube SourceMode = "youtube"
	SourceModeMirror  SourceMode = "mirror"
)

type Config struct {
	Server      ServerConfig
	Source      SourceConfig
	YouTube     YouTubeConfig
	Mirror      MirrorConfig
	Leaderboard LeaderboardConfig
	Redis       RedisConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Addr string
}

type SourceConfig struct {
	Mode SourceMode
}

type YouTubeConfig struct {
	APIKey string
}

type MirrorConfig struct {
	BaseURL string
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit float64
	Timeout   time.Duration
}

type LeaderboardConfig struct {
	PlaylistID      string
	MaxConcurrency  int
	RefreshInterval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mirrorURL := strings.TrimRight(getEnv("MIRROR_API_URL", ""), "/")
	defaultMode := SourceModeYouTube
	if mirrorURL != "" {
		defaultMode = SourceModeMirror
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Source: SourceConfig{
			Mode: SourceMode(strings.ToLower(getEnv("SOURCE_MODE", string(defaultMode)))),
		},
		YouTube: YouTubeConfig{
			APIKey: getEnv("YOUTUBE_API_KEY", ""),
		},
		Mirror: MirrorConfig{
			BaseURL:   mirrorURL,
			RateLimit: getEnvFloat("MIRROR_RATE_LIMIT", 0),
			Timeout:   getEnvDuration("MIRROR_TIMEOUT", constants.APIConfig.MirrorTimeout),
		},
		Leaderboard: LeaderboardConfig{
			PlaylistID:      getEnv("PLAYLIST_ID", constants.DefaultPlaylistID),
			MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 0),
			RefreshInterval: getEnvDuration("REFRESH_INTERVAL", constants.RefreshConfig.Interval),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Source.Mode {
	case SourceModeYouTube:
		if c.YouTube.APIKey == "" {
			return apperrors.NewValidationError(
				fmt.Sprintf("YOUTUBE_API_KEY is required in %s mode", SourceModeYouTube), "YOUTUBE_API_KEY", "")
		}
	case SourceModeMirror:
		if c.Mirror.BaseURL == "" {
			return apperrors.NewValidationError(
				fmt.Sprintf("MIRROR_API_URL is required in %s mode", SourceModeMirror), "MIRROR_API_URL", "")
		}
		if !strings.HasPrefix(c.Mirror.BaseURL, "http://") && !strings.HasPrefix(c.Mirror.BaseURL, "https://") {
			return apperrors.NewValidationError("MIRROR_API_URL must be an http(s) URL", "MIRROR_API_URL", c.Mirror.BaseURL)
		}
	default:
		return apperrors.NewValidationError("unknown SOURCE_MODE", "SOURCE_MODE", string(c.Source.Mode))
	}
	if c.Leaderboard.PlaylistID == "" {
		return apperrors.NewValidationError("PLAYLIST_ID must not be empty", "PLAYLIST_ID", "")
	}
	if c.Leaderboard.MaxConcurrency < 0 {
		return apperrors.NewValidationError("MAX_CONCURRENCY must not be negative", "MAX_CONCURRENCY", c.Leaderboard.MaxConcurrency)
	}
	if c.Leaderboard.RefreshInterval <= 0 {
		return apperrors.NewValidationError("REFRESH_INTERVAL must be positive", "REFRESH_INTERVAL", c.Leaderboard.RefreshInterval)
	}
	if c.Mirror.RateLimit < 0 {
		return apperrors.NewValidationError("MIRROR_RATE_LIMIT must not be negative", "MIRROR_RATE_LIMIT", c.Mirror.RateLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
