// Package decoder turns camera frames into decoded QR text.
package decoder

import (
	"context"
	"errors"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/camera"
)

// ErrNoCode is returned when a frame holds no readable code. It is the
// normal outcome for most frames.
var ErrNoCode = errors.New("no code in frame")

type ImageDecoder interface {
	Decode(img image.Image) (string, error)
}

// QRDecoder reads QR codes with gozxing. Not safe for concurrent use.
type QRDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *QRDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", ErrNoCode
	}

	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}

// Run samples stream until ctx is done or the stream ends, calling emit
// with every successfully decoded text, in frame order. Frames that fail to
// decode are skipped.
func Run(ctx context.Context, stream camera.Stream, dec ImageDecoder, emit func(text string)) {
	frames := stream.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				log.Debug().Msg("camera stream ended")
				return
			}

			text, err := decodeFrame(dec, frame)
			if err != nil {
				continue
			}
			emit(text)
		}
	}
}

func decodeFrame(dec ImageDecoder, frame camera.Frame) (string, error) {
	if frame.Text != "" {
		return frame.Text, nil
	}
	if frame.Image == nil {
		return "", ErrNoCode
	}
	return dec.Decode(frame.Image)
}
