// Package presenter projects scan session state into what the station
// display renders.
package presenter

import (
	"fmt"
	"time"

	"github.com/exp-solution/checkin-scanner/internal/checkin"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/scan"
)

type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneSuccess Tone = "success"
	ToneInfo    Tone = "info"
	ToneError   Tone = "error"
)

type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
	ActionReset Action = "reset"
)

type View struct {
	SessionID       string                 `json:"sessionId,omitempty"`
	StationID       string                 `json:"stationId"`
	State           scan.Status            `json:"state"`
	Tone            Tone                   `json:"tone"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	Guest           *checkin.GuestSnapshot `json:"guest,omitempty"`
	CheckedInAt     *time.Time             `json:"checkedInAt,omitempty"`
	CheckedInAtText string                 `json:"checkedInAtText,omitempty"`
	Location        string                 `json:"location,omitempty"`
	ErrorCode       apperrors.ErrorCode    `json:"errorCode,omitempty"`
	ErrorDetail     string                 `json:"errorDetail,omitempty"`
	Actions         []Action               `json:"actions"`
}

type Presenter struct {
	msgs     messages
	location *time.Location
}

// New returns a presenter for locale, falling back to English. Timestamps are
// shown in loc, or local time when loc is nil.
func New(locale string, loc *time.Location) *Presenter {
	msgs, ok := catalog[locale]
	if !ok {
		msgs = catalog[LocaleEN]
	}
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{msgs: msgs, location: loc}
}

func (p *Presenter) Present(s scan.Snapshot) View {
	v := View{
		SessionID: s.ID,
		StationID: s.StationID,
		State:     s.Status,
		Tone:      ToneNeutral,
	}

	switch s.Status {
	case scan.StatusIdle:
		v.Title, v.Message = p.msgs.idleTitle, p.msgs.idleMessage
		v.Actions = []Action{ActionStart}

	case scan.StatusAcquiringCamera:
		v.Title, v.Message = p.msgs.acquiringTitle, p.msgs.acquiringMsg
		v.Actions = []Action{ActionStop}

	case scan.StatusScanning:
		v.Title, v.Message = p.msgs.scanningTitle, p.msgs.scanningMessage
		v.Actions = []Action{ActionStop}

	case scan.StatusDetected, scan.StatusSubmitting:
		v.Title = p.msgs.submittingTitle
		request := s.PendingPayload
		if request == nil {
			request = s.Submitted
		}
		if request != nil {
			v.Message = fmt.Sprintf(p.msgs.submittingMsg, request.GuestID)
		}
		v.Actions = []Action{ActionStop}

	case scan.StatusResult:
		p.presentResult(&v, s.Result)
		v.Actions = []Action{ActionReset}

	case scan.StatusError:
		p.presentError(&v, s.LastError)
		v.Actions = []Action{ActionReset}
	}

	return v
}

func (p *Presenter) presentResult(v *View, outcome *checkin.Outcome) {
	if outcome == nil {
		v.Tone, v.Title = ToneSuccess, p.msgs.successTitle
		return
	}

	guest := outcome.Guest
	v.Guest = &guest

	if outcome.AlreadyCheckedIn {
		v.Tone = ToneInfo
		v.Title = p.msgs.alreadyTitle
		v.Message = fmt.Sprintf(p.msgs.alreadyMessage, guest.Name)
		return
	}

	v.Tone = ToneSuccess
	v.Title = p.msgs.successTitle
	v.Message = guest.Name
	v.Location = outcome.Location
	if outcome.CheckedInAt != nil {
		at := *outcome.CheckedInAt
		v.CheckedInAt = &at
		v.CheckedInAtText = at.In(p.location).Format(p.msgs.timeLayout)
	}
}

func (p *Presenter) presentError(v *View, lastErr *scan.SessionError) {
	v.Tone = ToneError
	v.Title = p.msgs.errorTitle

	kind := apperrors.ErrCodeUnknown
	if lastErr != nil {
		kind = lastErr.Kind
		v.ErrorDetail = lastErr.Message
	}
	v.ErrorCode = kind

	if msg, ok := p.msgs.errors[kind]; ok {
		v.Message = msg
	} else {
		v.Message = p.msgs.errors[apperrors.ErrCodeUnknown]
	}
}
