package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventScanStart         EventType = "scan_start"
	EventScanStop          EventType = "scan_stop"
	EventScanReset         EventType = "scan_reset"
	EventCameraFailed      EventType = "camera_failed"
	EventInsecureContext   EventType = "insecure_context"
	EventCheckinSubmit     EventType = "checkin_submit"
	EventCheckinResult     EventType = "checkin_result"
	EventCheckinFailed     EventType = "checkin_failed"
	EventStationKeyFailure EventType = "station_key_failure"
)

type Event struct {
	Type      EventType
	StationID string
	SessionID string
	GuestID   int64
	IP        string
	UserAgent string
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "checkin").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.StationID != "" {
		logger = logger.With().Str("station_id", event.StationID).Logger()
	}
	if event.SessionID != "" {
		logger = logger.With().Str("session_id", event.SessionID).Logger()
	}
	if event.GuestID != 0 {
		logger = logger.With().Int64("guest_id", event.GuestID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case error:
		return e.AnErr(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

// ClientIP is the address of the connection's peer. Forwarding headers are
// not read here; behind a trusted proxy chi's RealIP has already rewritten
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
