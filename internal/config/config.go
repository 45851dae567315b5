package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

const (
	CameraSourcePush     = "push"
	CameraSourceSnapshot = "snapshot"
)

var supportedLocales = []string{"en", "vi"}

type Config struct {
	Port                   int      `env:"PORT" envDefault:"8080"`
	LogLevel               string   `env:"LOG_LEVEL" envDefault:"info"`
	StationID              string   `env:"STATION_ID" envDefault:"default"`
	CheckinAPIURL          string   `env:"CHECKIN_API_URL,required"`
	CheckinAPIToken        string   `env:"CHECKIN_API_TOKEN"`
	CheckinLocation        string   `env:"CHECKIN_LOCATION" envDefault:"QR Scanner"`
	CheckinTimeoutSeconds  int      `env:"CHECKIN_TIMEOUT_SECONDS" envDefault:"0"`
	AllowedHosts           []string `env:"ALLOWED_HOSTS" envSeparator:","`
	CameraSource           string   `env:"CAMERA_SOURCE" envDefault:"push"`
	CameraSnapshotPath     string   `env:"CAMERA_SNAPSHOT_PATH"`
	CameraSampleIntervalMS int      `env:"CAMERA_SAMPLE_INTERVAL_MS" envDefault:"250"`
	MaxFrameBytes          int64    `env:"MAX_FRAME_BYTES" envDefault:"8388608"`
	RedisURL               string   `env:"REDIS_URL"`
	StationKeyHash         string   `env:"STATION_KEY_HASH"`
	Locale                 string   `env:"LOCALE" envDefault:"en"`
	RateLimitPerMin        int      `env:"RATE_LIMIT_PER_MIN" envDefault:"600"`
	TLSEnabled             bool     `env:"TLS_ENABLED" envDefault:"false"`
	TrustProxy             bool     `env:"TRUST_PROXY" envDefault:"false"`
	DisplayDir             string   `env:"DISPLAY_DIR"`
}

// CheckinTimeout returns zero when submissions should not be time-limited.
func (c *Config) CheckinTimeout() time.Duration {
	if c.CheckinTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CheckinTimeoutSeconds) * time.Second
}

func (c *Config) SampleInterval() time.Duration {
	if c.CameraSampleIntervalMS <= 0 {
		return DefaultSampleInterval
	}
	return time.Duration(c.CameraSampleIntervalMS) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.CheckinAPIURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("CHECKIN_API_URL must be an absolute http(s) URL, got %q", c.CheckinAPIURL)
	}

	if c.CameraSource == CameraSourceSnapshot && c.CameraSnapshotPath == "" {
		return fmt.Errorf("CAMERA_SNAPSHOT_PATH is required when CAMERA_SOURCE=%s", CameraSourceSnapshot)
	}

	if !isSupportedLocale(c.Locale) {
		return fmt.Errorf("LOCALE must be one of %s", strings.Join(supportedLocales, ", "))
	}

	if c.StationKeyHash != "" {
		if !strings.HasPrefix(c.StationKeyHash, "$2a$") &&
			!strings.HasPrefix(c.StationKeyHash, "$2b$") &&
			!strings.HasPrefix(c.StationKeyHash, "$2y$") {
			return fmt.Errorf("STATION_KEY_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <key>)")
		}
	}

	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative")
	}

	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("MAX_FRAME_BYTES must be positive")
	}

	if parsed.Scheme == "http" && !isLocalHost(parsed.Hostname()) {
		log.Warn().Str("url", c.CheckinAPIURL).Msg("CHECKIN_API_URL is not TLS: guest data travels in clear text")
	}
	if c.StationKeyHash == "" {
		log.Warn().Msg("STATION_KEY_HASH is empty: control API is unauthenticated")
	}

	return nil
}

func isSupportedLocale(locale string) bool {
	for _, l := range supportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

func isLocalHost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
