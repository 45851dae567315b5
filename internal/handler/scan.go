package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/camera"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/guard"
	"github.com/exp-solution/checkin-scanner/internal/httputil"
	"github.com/exp-solution/checkin-scanner/internal/middleware"
	"github.com/exp-solution/checkin-scanner/internal/presenter"
	"github.com/exp-solution/checkin-scanner/internal/scan"
)

const maxDecodedTextLength = 4096

type ScanHandler struct {
	session       *scan.Session
	presenter     *presenter.Presenter
	push          *camera.PushDevice
	maxFrameBytes int64
	trustProxy    bool
}

// NewScanHandler builds the control API. push is nil when the camera source
// does not accept frames over HTTP.
func NewScanHandler(session *scan.Session, p *presenter.Presenter, push *camera.PushDevice, maxFrameBytes int64, trustProxy bool) *ScanHandler {
	return &ScanHandler{
		session:       session,
		presenter:     p,
		push:          push,
		maxFrameBytes: maxFrameBytes,
		trustProxy:    trustProxy,
	}
}

func (h *ScanHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBodyLimitMiddleware(middleware.DefaultMaxBodySize).Handler)

		r.Get("/", h.GetView)
		r.Get("/session", h.GetSession)
		r.Post("/start", h.Start)
		r.Post("/stop", h.Stop)
		r.Post("/reset", h.Reset)
		r.Post("/decoded", h.PushDecoded)
	})

	r.With(middleware.NewBodyLimitMiddleware(h.maxFrameBytes).Handler).
		Post("/frames", h.PushFrame)

	return r
}

// GET /v1/scan
func (h *ScanHandler) GetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presenter.Present(h.session.Snapshot()))
}

// GET /v1/scan/session
func (h *ScanHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// POST /v1/scan/start
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	origin := h.requestOrigin(r)
	if err := h.session.Start(origin); err != nil {
		writeError(w, err)
		return
	}

	snap := h.session.Snapshot()
	status := http.StatusOK
	if snap.Status == scan.StatusError && snap.LastError != nil {
		status = httputil.StatusFromCode(snap.LastError.Kind)
	}
	writeJSON(w, status, h.presenter.Present(snap))
}

// POST /v1/scan/stop
func (h *ScanHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.presenter.Present(h.session.Snapshot()))
}

// POST /v1/scan/reset
func (h *ScanHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reset(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.presenter.Present(h.session.Snapshot()))
}

// POST /v1/scan/frames
func (h *ScanHandler) PushFrame(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, apperrors.UnsupportedEnvironment(errors.New("camera source does not accept pushed frames")))
		return
	}

	img, err := camera.DecodeImage(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
				apperrors.ValidationError("Frame too large").WithDetails(map[string]int64{"maxBytes": h.maxFrameBytes}))
			return
		}
		log.Debug().Err(err).Msg("rejected undecodable frame")
		writeError(w, apperrors.ValidationError("Frame must be a JPEG or PNG image"))
		return
	}

	h.pushFrame(w, camera.Frame{Image: img, CapturedAt: time.Now()})
}

type decodedRequest struct {
	Text string `json:"text"`
}

// POST /v1/scan/decoded
//
// Accepts text a client already decoded, for stations whose display runs
// its own QR reader.
func (h *ScanHandler) PushDecoded(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, apperrors.UnsupportedEnvironment(errors.New("camera source does not accept pushed frames")))
		return
	}

	var req decodedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, apperrors.ValidationError("text is required"))
		return
	}
	if len(req.Text) > maxDecodedTextLength {
		writeError(w, apperrors.ValidationError("text is too long"))
		return
	}

	h.pushFrame(w, camera.Frame{Text: req.Text, CapturedAt: time.Now()})
}

func (h *ScanHandler) pushFrame(w http.ResponseWriter, frame camera.Frame) {
	if err := h.push.Push(frame); err != nil {
		if errors.Is(err, camera.ErrNoStream) {
			writeError(w, apperrors.NoActiveStream())
			return
		}
		log.Error().Err(err).Msg("failed to push frame")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"state":    h.session.Snapshot().Status,
	})
}

// requestOrigin reports how the client reached us. X-Forwarded-Proto is
// only honoured behind a trusted TLS-terminating proxy. Without one, a
// plain-HTTP Host naming a local address only counts when the connection
// really arrived on such an address.
func (h *ScanHandler) requestOrigin(r *http.Request) scan.Origin {
	protocol := "http"
	if r.TLS != nil {
		protocol = "https"
	} else if h.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
			protocol = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
		}
	}

	host := r.Host
	if protocol != "https" && !h.trustProxy && guard.IsLocal(host) {
		if local, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
			host = local.String()
		}
	}

	return scan.Origin{Host: host, Protocol: protocol}
}
