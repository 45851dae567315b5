// Package scan drives one station's scan session from camera acquisition
// through decoding to the check-in result.
package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/audit"
	"github.com/exp-solution/checkin-scanner/internal/camera"
	"github.com/exp-solution/checkin-scanner/internal/checkin"
	"github.com/exp-solution/checkin-scanner/internal/decoder"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/guard"
	"github.com/exp-solution/checkin-scanner/internal/payload"
)

var ErrClosed = errors.New("scan session closed")

// Submitter is the single-flight check-in gate the session submits through.
type Submitter interface {
	Submit(ctx context.Context, p *payload.Payload) (*checkin.Outcome, error)
}

type (
	startCmd struct {
		origin Origin
		reply  chan error
	}
	stopCmd struct {
		reply chan struct{}
	}
	resetCmd struct {
		reply chan error
	}
	acquiredEvent struct {
		epoch  uint64
		stream camera.Stream
		err    error
	}
	decodedEvent struct {
		epoch uint64
		text  string
	}
	submittedEvent struct {
		epoch   uint64
		guestID int64
		outcome *checkin.Outcome
		err     error
	}
)

// Session serializes every command and asynchronous completion through one
// loop goroutine. Completions carry the epoch they were started under and are
// discarded once the session has moved to a later epoch.
type Session struct {
	stationID  string
	guard      *guard.Guard
	camera     *camera.Manager
	submitter  Submitter
	newDecoder func() decoder.ImageDecoder
	observer   Observer

	events chan any
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	snapshot Snapshot

	// owned by the loop goroutine
	state     Snapshot
	epoch     uint64
	runCtx    context.Context
	runCancel context.CancelFunc
}

func NewSession(stationID string, g *guard.Guard, cam *camera.Manager, submitter Submitter, newDecoder func() decoder.ImageDecoder, observer Observer) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	if observer == nil {
		observer = ObserverFunc(func(Snapshot) {})
	}

	s := &Session{
		stationID:  stationID,
		guard:      g,
		camera:     cam,
		submitter:  submitter,
		newDecoder: newDecoder,
		observer:   observer,
		events:     make(chan any, 16),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.state = Snapshot{StationID: stationID, Status: StatusIdle, UpdatedAt: time.Now()}
	s.snapshot = s.state

	go s.loop()
	return s
}

// Snapshot returns the state as of the last transition.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Start begins a session from Idle. By the time it returns the session is in
// AcquiringCamera, or in Error when the origin is not trusted.
func (s *Session) Start(origin Origin) error {
	reply := make(chan error, 1)
	if !s.send(startCmd{origin: origin, reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Stop returns the session to Idle from any state and releases the camera
// before returning. A check-in already sent is not cancelled, but its result
// is discarded.
func (s *Session) Stop() error {
	reply := make(chan struct{}, 1)
	if !s.send(stopCmd{reply: reply}) {
		return ErrClosed
	}
	select {
	case <-reply:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Reset leaves Result or Error for Idle.
func (s *Session) Reset() error {
	reply := make(chan error, 1)
	if !s.send(resetCmd{reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// Close stops the loop and releases the camera.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) send(event any) bool {
	select {
	case s.events <- event:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.releaseCamera()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev any) {
	switch e := ev.(type) {
	case startCmd:
		e.reply <- s.handleStart(e.origin)
	case stopCmd:
		s.handleStop()
		e.reply <- struct{}{}
	case resetCmd:
		e.reply <- s.handleReset()
	case acquiredEvent:
		s.handleAcquired(e)
	case decodedEvent:
		s.handleDecoded(e)
	case submittedEvent:
		s.handleSubmitted(e)
	}
}

func (s *Session) handleStart(origin Origin) error {
	if s.state.Status != StatusIdle {
		return apperrors.InvalidState("start", string(s.state.Status))
	}

	s.epoch++
	s.transition(Snapshot{ID: uuid.NewString(), Status: StatusAcquiringCamera})
	s.audit(audit.EventScanStart, map[string]interface{}{
		"host":     origin.Host,
		"protocol": origin.Protocol,
	})

	if !s.guard.IsAllowed(origin.Host, origin.Protocol) {
		s.audit(audit.EventInsecureContext, map[string]interface{}{
			"host":     origin.Host,
			"protocol": origin.Protocol,
		})
		s.fail(apperrors.InsecureContext(origin.Host))
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(s.ctx)
	runCtx, epoch := s.runCtx, s.epoch

	go func() {
		stream, err := s.camera.Acquire(runCtx)
		s.send(acquiredEvent{epoch: epoch, stream: stream, err: err})
	}()
	return nil
}

func (s *Session) handleStop() {
	prev := s.state.Status
	s.epoch++
	s.releaseCamera()

	if prev == StatusIdle {
		return
	}
	s.audit(audit.EventScanStop, map[string]interface{}{"from": string(prev)})
	s.transition(Snapshot{Status: StatusIdle})
}

func (s *Session) handleReset() error {
	prev := s.state.Status
	switch {
	case prev == StatusIdle:
		return nil
	case !prev.Terminal():
		return apperrors.InvalidState("reset", string(prev))
	}

	s.epoch++
	s.releaseCamera()
	s.audit(audit.EventScanReset, map[string]interface{}{"from": string(prev)})
	s.transition(Snapshot{Status: StatusIdle})
	return nil
}

func (s *Session) handleAcquired(e acquiredEvent) {
	if e.epoch != s.epoch || s.state.Status != StatusAcquiringCamera {
		// Stopped while the camera was opening. The manager already closed
		// a late stream; anything else it does not hold is ours to close.
		if e.err == nil && !s.camera.Holds(e.stream) {
			if err := e.stream.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close stale camera stream")
			}
		}
		log.Debug().Uint64("epoch", e.epoch).Msg("stale camera acquisition discarded")
		return
	}

	if e.err == nil && !s.camera.Holds(e.stream) {
		e.err = errors.New("camera stream closed before scanning started")
	}

	if e.err != nil {
		appErr := camera.Classify(e.err)
		s.audit(audit.EventCameraFailed, map[string]interface{}{
			"kind":  string(appErr.Code),
			"error": e.err,
		})
		s.fail(appErr)
		return
	}

	s.transition(Snapshot{ID: s.state.ID, Status: StatusScanning})

	epoch := e.epoch
	go decoder.Run(s.runCtx, e.stream, s.newDecoder(), func(text string) {
		s.send(decodedEvent{epoch: epoch, text: text})
	})
}

func (s *Session) handleDecoded(e decodedEvent) {
	if e.epoch != s.epoch || s.state.Status != StatusScanning {
		return
	}

	p, err := payload.Parse(e.text)
	if err != nil {
		log.Debug().Err(err).Str("sessionId", s.state.ID).Msg("scanned code ignored")
		return
	}

	s.transition(Snapshot{ID: s.state.ID, Status: StatusDetected, PendingPayload: p})
	s.transition(Snapshot{ID: s.state.ID, Status: StatusSubmitting, Submitted: p})

	audit.Log(s.ctx, audit.Event{
		Type:      audit.EventCheckinSubmit,
		StationID: s.stationID,
		SessionID: s.state.ID,
		GuestID:   p.GuestID,
		Details:   map[string]interface{}{"encoding": string(p.Encoding)},
	})

	epoch := e.epoch
	go func() {
		outcome, err := s.submitter.Submit(s.ctx, p)
		s.send(submittedEvent{epoch: epoch, guestID: p.GuestID, outcome: outcome, err: err})
	}()
}

func (s *Session) handleSubmitted(e submittedEvent) {
	current := e.epoch == s.epoch && s.state.Status == StatusSubmitting

	if errors.Is(e.err, checkin.ErrInFlight) {
		// Another submission owns the slot; keep scanning without a result.
		if current {
			s.transition(Snapshot{ID: s.state.ID, Status: StatusScanning})
		}
		return
	}

	if !current {
		log.Info().
			Int64("guestId", e.guestID).
			Bool("failed", e.err != nil).
			Msg("check-in result discarded, session moved on")
		return
	}

	if e.err != nil {
		appErr, ok := apperrors.AsAppError(e.err)
		if !ok {
			appErr = apperrors.Network(e.err)
		}
		audit.Log(s.ctx, audit.Event{
			Type:      audit.EventCheckinFailed,
			StationID: s.stationID,
			SessionID: s.state.ID,
			GuestID:   e.guestID,
			Details:   map[string]interface{}{"error": e.err},
		})
		s.fail(appErr)
		return
	}

	s.releaseCamera()
	audit.Log(s.ctx, audit.Event{
		Type:      audit.EventCheckinResult,
		StationID: s.stationID,
		SessionID: s.state.ID,
		GuestID:   e.guestID,
		Details:   map[string]interface{}{"alreadyCheckedIn": e.outcome.AlreadyCheckedIn},
	})
	s.transition(Snapshot{ID: s.state.ID, Status: StatusResult, Result: e.outcome})
}

// fail releases the camera and moves to Error.
func (s *Session) fail(appErr *apperrors.AppError) {
	s.releaseCamera()
	s.transition(Snapshot{
		ID:        s.state.ID,
		Status:    StatusError,
		LastError: &SessionError{Kind: appErr.Code, Message: appErr.Message},
	})
}

func (s *Session) releaseCamera() {
	if s.runCancel != nil {
		s.runCancel()
		s.runCtx, s.runCancel = nil, nil
	}
	if err := s.camera.Release(); err != nil {
		log.Warn().Err(err).Str("stationId", s.stationID).Msg("camera release failed")
	}
}

func (s *Session) transition(next Snapshot) {
	next.StationID = s.stationID
	next.UpdatedAt = time.Now()
	s.state = next

	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()

	log.Info().
		Str("stationId", s.stationID).
		Str("sessionId", next.ID).
		Str("status", string(next.Status)).
		Msg("scan session transition")

	s.observer.SessionChanged(next)
}

func (s *Session) audit(eventType audit.EventType, details map[string]interface{}) {
	audit.Log(s.ctx, audit.Event{
		Type:      eventType,
		StationID: s.stationID,
		SessionID: s.state.ID,
		Details:   details,
	})
}
