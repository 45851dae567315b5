package camera

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const pushBufferSize = 8

// PushDevice is fed frames by the kiosk display over HTTP. It has at most
// one open stream: a second Open fails with ErrBusy until the first is
// closed, and frames pushed while nothing is open are rejected.
type PushDevice struct {
	mu     sync.Mutex
	active *pushStream
}

func NewPushDevice() *PushDevice {
	return &PushDevice{}
}

func (d *PushDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		return nil, ErrBusy
	}

	s := &pushStream{
		device: d,
		frames: make(chan Frame, pushBufferSize),
	}
	d.active = s
	return s, nil
}

// Push hands a frame to the open stream. A full buffer drops the frame,
// as a real camera would skip samples the consumer did not keep up with.
func (d *PushDevice) Push(frame Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return ErrNoStream
	}

	select {
	case d.active.frames <- frame:
	default:
		log.Debug().Msg("push buffer full, dropping frame")
	}
	return nil
}

func (d *PushDevice) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

type pushStream struct {
	device *PushDevice
	frames chan Frame
	closed bool
}

func (s *pushStream) Frames() <-chan Frame {
	return s.frames
}

func (s *pushStream) Close() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	s.closeLocked()
	return nil
}

// closeLocked requires device.mu.
func (s *pushStream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.frames)
	if s.device.active == s {
		s.device.active = nil
	}
}
