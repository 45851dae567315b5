package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/config"
	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
)

// GuestSnapshot is the guest as the backend returned it at submission time.
// It is not refreshed afterwards.
type GuestSnapshot struct {
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type Outcome struct {
	AlreadyCheckedIn bool          `json:"alreadyCheckedIn"`
	Guest            GuestSnapshot `json:"guest"`
	// CheckedInAt and Location are only set for a new check-in.
	CheckedInAt *time.Time `json:"checkinTimestamp,omitempty"`
	Location    string     `json:"location,omitempty"`
}

type Request struct {
	GuestID  int64
	Location string
	QRID     string
}

type requestBody struct {
	CheckInLocation string `json:"check_in_location,omitempty"`
	QRID            string `json:"qr_id,omitempty"`
}

type guestBody struct {
	Name            string     `json:"name"`
	Organization    string     `json:"organization"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	CheckInTime     *timestamp `json:"check_in_time"`
	CheckinTime     *timestamp `json:"checkin_time"`
	CheckInLocation string     `json:"check_in_location"`
}

// responseBody covers the envelope {already_checked_in, guest} and the bare
// guest record some backend versions return instead.
type responseBody struct {
	AlreadyCheckedIn *bool      `json:"already_checked_in"`
	Guest            *guestBody `json:"guest"`
	ID               *int64     `json:"id"`
	guestBody
}

// guest returns the envelope's guest, or the body itself when it is a bare
// guest record.
func (rb *responseBody) guest() *guestBody {
	if rb.Guest != nil {
		return rb.Guest
	}
	if rb.ID != nil || rb.Name != "" {
		return &rb.guestBody
	}
	return nil
}

type errorBody struct {
	Detail string `json:"detail"`
}

// alreadyCheckedInDetails are the 400 details meaning the guest was checked
// in before.
var alreadyCheckedInDetails = []string{
	"đã check-in",
	"already checked in",
	"already checked-in",
}

// Client calls the event backend's guest check-in endpoint.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient builds a client for baseURL (e.g. https://host/api). A zero
// timeout leaves requests unbounded.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) CheckIn(ctx context.Context, req Request) (*Outcome, error) {
	body, err := json.Marshal(requestBody{
		CheckInLocation: req.Location,
		QRID:            req.QRID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/guests/%d/checkin", c.baseURL, req.GuestID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Int64("guestId", req.GuestID).
			Dur("elapsed", elapsed).
			Msg("check-in request error")
		return nil, apperrors.Network(fmt.Errorf("check-in request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxCheckinResponseBytes+1))
	if err != nil {
		return nil, apperrors.Network(fmt.Errorf("read response: %w", err))
	}
	if len(raw) > config.MaxCheckinResponseBytes {
		return nil, apperrors.Network(fmt.Errorf("response exceeds %d bytes", config.MaxCheckinResponseBytes))
	}

	duplicate := resp.StatusCode == http.StatusConflict ||
		(resp.StatusCode == http.StatusBadRequest && isAlreadyCheckedIn(raw))

	logEvent := log.Info()
	if resp.StatusCode >= 300 && !duplicate {
		logEvent = log.Error()
	}
	logEvent.
		Int64("guestId", req.GuestID).
		Int("status", resp.StatusCode).
		Bool("duplicate", duplicate).
		Dur("elapsed", elapsed).
		Msg("check-in response")

	switch {
	case duplicate:
		return decodeConflict(raw), nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return decodeSuccess(raw)
	default:
		return nil, apperrors.Network(fmt.Errorf("check-in failed with status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
}

func decodeSuccess(raw []byte) (*Outcome, error) {
	var rb responseBody
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, apperrors.Network(fmt.Errorf("malformed response: %w", err))
	}
	guest := rb.guest()
	if guest == nil {
		return nil, apperrors.Network(fmt.Errorf("malformed response: missing guest"))
	}

	outcome := &Outcome{
		AlreadyCheckedIn: rb.AlreadyCheckedIn != nil && *rb.AlreadyCheckedIn,
		Guest:            guest.snapshot(),
	}
	if !outcome.AlreadyCheckedIn {
		outcome.CheckedInAt = guest.checkedInAt()
		outcome.Location = guest.CheckInLocation
	}
	return outcome, nil
}

// decodeConflict reads a duplicate check-in answer: a 409, or a 400 whose
// detail says so. The body is optional.
func decodeConflict(raw []byte) *Outcome {
	outcome := &Outcome{AlreadyCheckedIn: true}

	var rb responseBody
	if err := json.Unmarshal(raw, &rb); err == nil {
		if guest := rb.guest(); guest != nil {
			outcome.Guest = guest.snapshot()
		}
	}
	return outcome
}

func isAlreadyCheckedIn(raw []byte) bool {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return false
	}
	detail := strings.ToLower(eb.Detail)
	for _, marker := range alreadyCheckedInDetails {
		if strings.Contains(detail, marker) {
			return true
		}
	}
	return false
}

func (g *guestBody) snapshot() GuestSnapshot {
	return GuestSnapshot{
		Name:         g.Name,
		Organization: g.Organization,
		Email:        g.Email,
		Phone:        g.Phone,
	}
}

func (g *guestBody) checkedInAt() *time.Time {
	switch {
	case g.CheckInTime != nil:
		t := time.Time(*g.CheckInTime)
		return &t
	case g.CheckinTime != nil:
		t := time.Time(*g.CheckinTime)
		return &t
	default:
		return nil
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// timestamp accepts RFC 3339 and the zone-less ISO 8601 form that Python
// backends emit for naive datetimes. Zone-less values are read as local time.
type timestamp time.Time

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*ts = timestamp(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
