package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/camera"
	"github.com/exp-solution/checkin-scanner/internal/checkin"
	"github.com/exp-solution/checkin-scanner/internal/config"
	"github.com/exp-solution/checkin-scanner/internal/decoder"
	"github.com/exp-solution/checkin-scanner/internal/guard"
	"github.com/exp-solution/checkin-scanner/internal/handler"
	"github.com/exp-solution/checkin-scanner/internal/jobs"
	"github.com/exp-solution/checkin-scanner/internal/middleware"
	"github.com/exp-solution/checkin-scanner/internal/presenter"
	"github.com/exp-solution/checkin-scanner/internal/redis"
	"github.com/exp-solution/checkin-scanner/internal/scan"
	"github.com/exp-solution/checkin-scanner/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	device, push := newCameraDevice(cfg)

	p := presenter.New(cfg.Locale, nil)
	topic := redis.ScanChannel(cfg.StationID)

	client := checkin.NewClient(cfg.CheckinAPIURL, cfg.CheckinAPIToken, cfg.CheckinTimeout())
	coordinator := checkin.NewCoordinator(client, cfg.CheckinLocation)

	feed := handler.NewLiveFeed(broker, p, topic)
	defer feed.Close()

	session := scan.NewSession(
		cfg.StationID,
		guard.New(cfg.AllowedHosts),
		camera.NewManager(device),
		coordinator,
		func() decoder.ImageDecoder { return decoder.NewQRDecoder() },
		feed,
	)

	keyFailures := middleware.NewKeyFailureLimiter(config.StationKeyMaxFailures, config.StationKeyFailWindow)
	cleanupTasks := []jobs.Task{{Name: "station key failures", Run: keyFailures.Sweep}}

	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisRateLimiter(redisClient.Client)
	} else {
		memLimiter := middleware.NewRateLimiter()
		cleanupTasks = append(cleanupTasks, jobs.Task{Name: "rate limit windows", Run: memLimiter.Sweep})
		limiter = memLimiter
	}

	cleanupJob := jobs.NewCleanupJob(config.CleanupJobInterval, cleanupTasks...)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	stationKeyMiddleware := middleware.NewStationKeyMiddleware(cfg.StationKeyHash, cfg.StationID, keyFailures)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, cfg.RateLimitPerMin)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.TLSEnabled)

	scanHandler := handler.NewScanHandler(session, p, push, cfg.MaxFrameBytes, cfg.TrustProxy)
	eventsHandler := handler.NewEventsHandler(broker, session, p, topic)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"station":   cfg.StationID,
			"state":     session.Snapshot().Status,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/scan", func(r chi.Router) {
		r.Use(stationKeyMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		// Streams stay open past the request timeout.
		r.Get("/events", eventsHandler.ServeHTTP)

		r.With(chimiddleware.Timeout(config.ServerRequestTimeout)).Mount("/", scanHandler.Routes())
	})

	if cfg.DisplayDir != "" {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/display/", http.StatusFound)
		})
		r.Handle("/display/*", handler.NewSPAHandler(cfg.DisplayDir, "/display"))
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("station", cfg.StationID).
			Str("camera", cfg.CameraSource).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Releases the camera if a scan is still running.
	session.Close()

	log.Info().Msg("server stopped")
}

// newCameraDevice returns the configured frame source. push is non-nil only
// when frames arrive over HTTP.
func newCameraDevice(cfg *config.Config) (device camera.Device, push *camera.PushDevice) {
	switch cfg.CameraSource {
	case config.CameraSourcePush:
		push = camera.NewPushDevice()
		return push, push
	case config.CameraSourceSnapshot:
		return camera.NewSnapshotDevice(cfg.CameraSnapshotPath, cfg.SampleInterval()), nil
	default:
		log.Warn().Str("source", cfg.CameraSource).Msg("unknown camera source, scanning will report unsupported")
		return camera.Unsupported(cfg.CameraSource), nil
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
