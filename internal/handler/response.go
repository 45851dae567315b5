package handler

import (
	"errors"
	"net/http"

	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/httputil"
	"github.com/exp-solution/checkin-scanner/internal/scan"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, scan.ErrClosed) {
		httputil.WriteErrorWithStatus(w, http.StatusServiceUnavailable, apperrors.Internal("Scanner is shutting down"))
		return
	}
	httputil.WriteError(w, err)
}
