package camera

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Manager holds at most one open stream. Every Release starts a new
// generation; an open that started in an earlier generation closes its own
// stream and never becomes the held one.
type Manager struct {
	device Device

	mu         sync.Mutex
	stream     Stream
	generation uint64
}

func NewManager(device Device) *Manager {
	return &Manager{device: device}
}

// Acquire returns the held stream if there is one, otherwise opens the
// device. Device errors are classified with Classify.
func (m *Manager) Acquire(ctx context.Context) (Stream, error) {
	m.mu.Lock()
	if m.stream != nil {
		stream := m.stream
		m.mu.Unlock()
		log.Debug().Msg("camera stream reused")
		return stream, nil
	}
	generation := m.generation
	m.mu.Unlock()

	stream, err := m.device.Open(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if generation != m.generation {
		if err == nil {
			closeStream(stream, "late camera stream")
		}
		log.Debug().Uint64("generation", generation).Msg("camera open finished after release")
		return nil, ErrReleased
	}
	if err != nil {
		return nil, Classify(err)
	}

	// Another Acquire of this generation won while we were waiting.
	if m.stream != nil {
		closeStream(stream, "surplus camera stream")
		return m.stream, nil
	}

	m.stream = stream
	log.Info().Msg("camera stream acquired")
	return stream, nil
}

// Release closes the held stream and invalidates opens still in progress.
// Safe to call when nothing is held.
func (m *Manager) Release() error {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.generation++
	m.mu.Unlock()

	if stream == nil {
		return nil
	}

	log.Info().Msg("camera stream released")
	return stream.Close()
}

func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// Holds reports whether stream is the one currently held.
func (m *Manager) Holds(stream Stream) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stream != nil && m.stream == stream
}

func closeStream(stream Stream, what string) {
	if err := stream.Close(); err != nil {
		log.Warn().Err(err).Msgf("failed to close %s", what)
	}
}
