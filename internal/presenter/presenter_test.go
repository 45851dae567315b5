package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exp-solution/checkin-scanner/internal/checkin"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/payload"
	"github.com/exp-solution/checkin-scanner/internal/scan"
)

func TestPresenter_Actions(t *testing.T) {
	p := New(LocaleEN, time.UTC)

	tests := []struct {
		status scan.Status
		want   []Action
	}{
		{scan.StatusIdle, []Action{ActionStart}},
		{scan.StatusAcquiringCamera, []Action{ActionStop}},
		{scan.StatusScanning, []Action{ActionStop}},
		{scan.StatusDetected, []Action{ActionStop}},
		{scan.StatusSubmitting, []Action{ActionStop}},
		{scan.StatusResult, []Action{ActionReset}},
		{scan.StatusError, []Action{ActionReset}},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			v := p.Present(scan.Snapshot{Status: tc.status})
			assert.Equal(t, tc.want, v.Actions)
			assert.Equal(t, tc.status, v.State)
			assert.NotEmpty(t, v.Title)
		})
	}
}

func TestPresenter_NewCheckin(t *testing.T) {
	at := time.Date(2024, 12, 15, 18, 5, 0, 0, time.UTC)
	snap := scan.Snapshot{
		ID:     "s-1",
		Status: scan.StatusResult,
		Result: &checkin.Outcome{
			Guest:       checkin.GuestSnapshot{Name: "Trần Thị B", Organization: "EXP"},
			CheckedInAt: &at,
			Location:    "QR Scanner",
		},
	}

	v := New(LocaleVI, time.UTC).Present(snap)

	assert.Equal(t, ToneSuccess, v.Tone)
	assert.Equal(t, "Check-in thành công!", v.Title)
	assert.Equal(t, "Trần Thị B", v.Message)
	require.NotNil(t, v.Guest)
	assert.Equal(t, "EXP", v.Guest.Organization)
	require.NotNil(t, v.CheckedInAt)
	assert.Equal(t, "18:05 15/12/2024", v.CheckedInAtText)
	assert.Equal(t, "QR Scanner", v.Location)
	assert.Equal(t, "s-1", v.SessionID)
}

func TestPresenter_AlreadyCheckedIn(t *testing.T) {
	snap := scan.Snapshot{
		Status: scan.StatusResult,
		Result: &checkin.Outcome{
			AlreadyCheckedIn: true,
			Guest:            checkin.GuestSnapshot{Name: "A"},
		},
	}

	v := New(LocaleEN, time.UTC).Present(snap)

	assert.Equal(t, ToneInfo, v.Tone)
	assert.Equal(t, "Already checked in", v.Title)
	assert.Equal(t, "A has already checked in", v.Message)
	assert.Equal(t, "A", v.Guest.Name)
	assert.Nil(t, v.CheckedInAt)
	assert.Empty(t, v.CheckedInAtText)
	assert.Equal(t, []Action{ActionReset}, v.Actions)
}

func TestPresenter_Errors(t *testing.T) {
	tests := []struct {
		locale string
		kind   apperrors.ErrorCode
		want   string
	}{
		{LocaleEN, apperrors.ErrCodePermissionDenied, "Camera permission was denied"},
		{LocaleEN, apperrors.ErrCodeNetwork, "Check-in failed. Please try again."},
		{LocaleVI, apperrors.ErrCodeNoCameraFound, "Không tìm thấy camera"},
		{LocaleVI, apperrors.ErrCodeUnknown, "Không thể khởi tạo camera. Vui lòng thử lại."},
		{LocaleEN, apperrors.ErrorCode("SOMETHING_NEW"), "Could not start the camera. Please try again."},
	}

	for _, tc := range tests {
		t.Run(tc.locale+"/"+string(tc.kind), func(t *testing.T) {
			v := New(tc.locale, time.UTC).Present(scan.Snapshot{
				Status:    scan.StatusError,
				LastError: &scan.SessionError{Kind: tc.kind, Message: "raw detail"},
			})

			assert.Equal(t, ToneError, v.Tone)
			assert.Equal(t, tc.kind, v.ErrorCode)
			assert.Equal(t, tc.want, v.Message)
			assert.Equal(t, "raw detail", v.ErrorDetail)
			assert.Nil(t, v.Guest)
		})
	}
}

func TestPresenter_Submitting(t *testing.T) {
	p := New("fr", nil)

	v := p.Present(scan.Snapshot{
		Status:    scan.StatusSubmitting,
		Submitted: &payload.Payload{GuestID: 42},
	})
	assert.Equal(t, "Checking in guest #42", v.Message)
	assert.Equal(t, ToneNeutral, v.Tone)

	v = p.Present(scan.Snapshot{
		Status:         scan.StatusDetected,
		PendingPayload: &payload.Payload{GuestID: 7},
	})
	assert.Equal(t, "Checking in guest #7", v.Message)
}
