package config

import "time"

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Redis ping timeout at startup
const RedisPingTimeout = 5 * time.Second

// Live feed publish timeout, per event
const PublishTimeout = 2 * time.Second

// Snapshot camera polling
const DefaultSampleInterval = 250 * time.Millisecond

// Upper bound for check-in response bodies
const MaxCheckinResponseBytes = 1 << 20

// Failed station key attempts allowed per client per window
const (
	StationKeyMaxFailures = 5
	StationKeyFailWindow  = time.Minute
)

// In-memory limiter sweep interval
const CleanupJobInterval = time.Minute
