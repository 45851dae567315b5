package scan

import (
	"time"

	"github.com/exp-solution/checkin-scanner/internal/checkin"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/payload"
)

type Status string

const (
	StatusIdle            Status = "idle"
	StatusAcquiringCamera Status = "acquiring_camera"
	StatusScanning        Status = "scanning"
	StatusDetected        Status = "detected"
	StatusSubmitting      Status = "submitting"
	StatusResult          Status = "result"
	StatusError           Status = "error"
)

// Terminal reports whether the status can only be left through reset or stop.
func (s Status) Terminal() bool {
	return s == StatusResult || s == StatusError
}

// Active reports whether the session currently holds, or is acquiring, the camera.
func (s Status) Active() bool {
	switch s {
	case StatusAcquiringCamera, StatusScanning, StatusDetected, StatusSubmitting:
		return true
	default:
		return false
	}
}

type SessionError struct {
	Kind    apperrors.ErrorCode `json:"kind"`
	Message string              `json:"message"`
}

// Snapshot is a copy of the session state. LastError is only set in
// StatusError, PendingPayload only in StatusDetected, Submitted only in
// StatusSubmitting, Result only in StatusResult.
type Snapshot struct {
	ID             string           `json:"id,omitempty"`
	StationID      string           `json:"stationId"`
	Status         Status           `json:"status"`
	LastError      *SessionError    `json:"lastError,omitempty"`
	PendingPayload *payload.Payload `json:"pendingPayload,omitempty"`
	Submitted      *payload.Payload `json:"submitted,omitempty"`
	Result         *checkin.Outcome `json:"result,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Origin is how the operator's client reached the station.
type Origin struct {
	Host     string
	Protocol string
}

type Observer interface {
	SessionChanged(snapshot Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snapshot Snapshot)

func (f ObserverFunc) SessionChanged(snapshot Snapshot) {
	f(snapshot)
}
