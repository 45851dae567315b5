// Package camera owns the video source of a check-in station.
//
// A Device opens a Stream of Frames. The Manager is the only holder of the
// open Stream: it hands it out on Acquire, reuses it while held, and closes
// it on Release. Nothing else may close a Stream it did not open.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"time"

	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoCamera         = errors.New("no camera found")
	ErrUnsupported      = errors.New("camera unsupported")
	ErrNoStream         = errors.New("no active camera stream")
	ErrBusy             = errors.New("camera already in use")
	// ErrReleased is returned by an Acquire whose open finished after a Release.
	ErrReleased = errors.New("camera released while opening")
)

// Frame is one sample of the camera. Text is set instead of Image when the
// source already decoded the code on its side.
type Frame struct {
	Image      image.Image
	Text       string
	CapturedAt time.Time
}

type Stream interface {
	// Frames is closed when the stream ends.
	Frames() <-chan Frame
	Close() error
}

type Device interface {
	// Open may block until the environment grants access.
	Open(ctx context.Context) (Stream, error)
}

// Classify maps an acquisition failure onto the camera error taxonomy.
func Classify(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return apperrors.PermissionDenied(err)
	case errors.Is(err, ErrNoCamera), errors.Is(err, fs.ErrNotExist):
		return apperrors.NoCameraFound(err)
	case errors.Is(err, ErrUnsupported):
		return apperrors.UnsupportedEnvironment(err)
	default:
		return apperrors.Unknown(err)
	}
}

// DecodeImage reads a JPEG or PNG frame.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

type unsupportedDevice struct {
	source string
}

// Unsupported returns a Device that always fails with ErrUnsupported.
func Unsupported(source string) Device {
	return unsupportedDevice{source: source}
}

func (d unsupportedDevice) Open(ctx context.Context) (Stream, error) {
	return nil, fmt.Errorf("%w: camera source %q", ErrUnsupported, d.source)
}
