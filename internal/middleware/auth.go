package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/audit"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/util"
)

const StationKeyHeader = "X-Station-Key"

// StationKeyMiddleware guards the control API with the station key. The
// bcrypt comparison runs once per distinct key; afterwards the key's SHA-256
// is compared in constant time.
type StationKeyMiddleware struct {
	keyHash   string
	stationID string
	failures  *KeyFailureLimiter

	mu       sync.RWMutex
	verified string
}

// NewStationKeyMiddleware returns a middleware that lets every request
// through when keyHash is empty.
func NewStationKeyMiddleware(keyHash, stationID string, failures *KeyFailureLimiter) *StationKeyMiddleware {
	return &StationKeyMiddleware{
		keyHash:   keyHash,
		stationID: stationID,
		failures:  failures,
	}
}

func (m *StationKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.keyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		ip := audit.ClientIP(r)
		if m.failures != nil && m.failures.Blocked(ip) {
			w.Header().Set("Retry-After", m.failures.RetryAfter())
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"code":  "TOO_MANY_ATTEMPTS",
				"error": "Too many invalid station key attempts. Please try again later.",
			})
			return
		}

		key := extractKey(r)
		if key == "" {
			writeError(w, apperrors.Unauthorized("Missing station key"))
			return
		}

		if !m.verify(key) {
			if m.failures != nil {
				m.failures.Record(ip)
			}
			log.Warn().Str("ip", ip).Msg("station key middleware: invalid key attempt")
			audit.LogFromRequest(r, audit.Event{
				Type:      audit.EventStationKeyFailure,
				StationID: m.stationID,
			})
			writeError(w, apperrors.Unauthorized("Invalid station key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *StationKeyMiddleware) verify(key string) bool {
	digest := util.HashToken(key)

	m.mu.RLock()
	verified := m.verified
	m.mu.RUnlock()

	if verified != "" && util.ConstantTimeEqual(digest, verified) {
		return true
	}

	if !util.CheckPasswordHash(key, m.keyHash) {
		return false
	}

	m.mu.Lock()
	m.verified = digest
	m.mu.Unlock()
	return true
}

// extractKey accepts a query token for EventSource clients, which cannot
// set headers.
func extractKey(r *http.Request) string {
	if key := r.Header.Get(StationKeyHeader); key != "" {
		return key
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}
