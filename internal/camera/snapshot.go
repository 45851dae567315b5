package camera

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SnapshotDevice samples an image file that an external capture process
// keeps overwriting, e.g. `ffmpeg -f v4l2 -i /dev/video0 -update 1 frame.jpg`.
type SnapshotDevice struct {
	path     string
	interval time.Duration
}

func NewSnapshotDevice(path string, interval time.Duration) *SnapshotDevice {
	return &SnapshotDevice{path: path, interval: interval}
}

func (d *SnapshotDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(d.path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot %s: %w", d.path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrUnsupported, d.path)
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", d.path, err)
	}
	f.Close()

	s := &snapshotStream{
		path:     d.path,
		interval: d.interval,
		frames:   make(chan Frame),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()

	log.Info().Str("path", d.path).Dur("interval", d.interval).Msg("snapshot camera opened")
	return s, nil
}

type snapshotStream struct {
	path     string
	interval time.Duration
	frames   chan Frame
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	lastMod  time.Time
	lastSize int64
}

func (s *snapshotStream) Frames() <-chan Frame {
	return s.frames
}

func (s *snapshotStream) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

func (s *snapshotStream) run() {
	defer s.wg.Done()
	defer close(s.frames)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			frame, ok := s.sample()
			if !ok {
				continue
			}
			select {
			case s.frames <- frame:
			case <-s.done:
				return
			}
		}
	}
}

// sample reads the snapshot if it changed since the last read. Half-written
// files fail to decode and are retried on the next tick.
func (s *snapshotStream) sample() (Frame, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("snapshot unavailable")
		return Frame{}, false
	}
	if info.ModTime().Equal(s.lastMod) && info.Size() == s.lastSize {
		return Frame{}, false
	}

	f, err := os.Open(s.path)
	if err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("snapshot unreadable")
		return Frame{}, false
	}
	defer f.Close()

	img, err := DecodeImage(f)
	if err != nil {
		return Frame{}, false
	}

	s.lastMod = info.ModTime()
	s.lastSize = info.Size()
	return Frame{Image: img, CapturedAt: info.ModTime()}, true
}
