package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("CheckinTimeout is zero when disabled", func(t *testing.T) {
		cfg := &Config{CheckinTimeoutSeconds: 0}
		assert.Equal(t, time.Duration(0), cfg.CheckinTimeout())
	})

	t.Run("CheckinTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{CheckinTimeoutSeconds: 10}
		assert.Equal(t, 10*time.Second, cfg.CheckinTimeout())
	})

	t.Run("SampleInterval falls back to default", func(t *testing.T) {
		cfg := &Config{}
		assert.Equal(t, DefaultSampleInterval, cfg.SampleInterval())

		cfg.CameraSampleIntervalMS = 100
		assert.Equal(t, 100*time.Millisecond, cfg.SampleInterval())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			CheckinAPIURL: "https://events.example.com/api",
			CameraSource:  CameraSourcePush,
			Locale:        "en",
			MaxFrameBytes: 1024,
		}
	}

	t.Run("accepts valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects relative API URL", func(t *testing.T) {
		cfg := valid()
		cfg.CheckinAPIURL = "/api"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-http API URL", func(t *testing.T) {
		cfg := valid()
		cfg.CheckinAPIURL = "ftp://events.example.com"
		assert.Error(t, cfg.Validate())
	})

	t.Run("snapshot source requires a path", func(t *testing.T) {
		cfg := valid()
		cfg.CameraSource = CameraSourceSnapshot
		assert.Error(t, cfg.Validate())

		cfg.CameraSnapshotPath = "/run/camera/frame.jpg"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects unknown locale", func(t *testing.T) {
		cfg := valid()
		cfg.Locale = "fr"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects plain station key", func(t *testing.T) {
		cfg := valid()
		cfg.StationKeyHash = "hunter2"
		assert.Error(t, cfg.Validate())

		cfg.StationKeyHash = "$2a$10$abcdefghijklmnopqrstuv"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects negative rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimitPerMin = -1
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "CHECKIN_API_URL", "CHECKIN_LOCATION", "ALLOWED_HOSTS",
		"CAMERA_SOURCE", "LOG_LEVEL", "LOCALE", "REDIS_URL", "RATE_LIMIT_PER_MIN",
	}
	originalEnv := make(map[string]string, len(keys))
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		for _, k := range keys {
			os.Unsetenv(k)
		}
		os.Setenv("CHECKIN_API_URL", "http://localhost:8000/api")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "http://localhost:8000/api", cfg.CheckinAPIURL)
		assert.Equal(t, "QR Scanner", cfg.CheckinLocation)
		assert.Equal(t, CameraSourcePush, cfg.CameraSource)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "en", cfg.Locale)
		assert.Empty(t, cfg.AllowedHosts)
		assert.Empty(t, cfg.RedisURL)
		assert.Equal(t, 600, cfg.RateLimitPerMin)
		assert.False(t, cfg.TLSEnabled)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("CHECKIN_API_URL", "https://events.example.com/api")
		os.Setenv("PORT", "3000")
		os.Setenv("ALLOWED_HOSTS", "kiosk.lan,.venue.example.com")
		os.Setenv("LOCALE", "vi")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, []string{"kiosk.lan", ".venue.example.com"}, cfg.AllowedHosts)
		assert.Equal(t, "vi", cfg.Locale)
	})

	t.Run("fails without required CHECKIN_API_URL", func(t *testing.T) {
		os.Unsetenv("CHECKIN_API_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
