// Package payload parses the text read from a guest's QR code.
//
// Two encodings are accepted:
//
//	{"type":"guest_checkin","guest_id":42,"event_id":1,"qr_id":"..."}
//	https://host/checkin?guest_id=42&event_id=1&qr_id=...
//
// Anything else fails with a DECODE_INVALID error.
package payload

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
)

const guestCheckinType = "guest_checkin"

type Encoding string

const (
	EncodingStructured Encoding = "structured"
	EncodingURL        Encoding = "url"
)

// Payload is a check-in request decoded from a QR code. GuestID is always
// positive; a Payload is never built without one.
type Payload struct {
	GuestID int64  `json:"guestId"`
	EventID *int64 `json:"eventId,omitempty"`
	QRID    string `json:"qrId,omitempty"`
	// Encoding is diagnostic metadata; submission must not depend on it.
	Encoding Encoding `json:"sourceEncoding"`
}

type structuredPayload struct {
	Type    string          `json:"type"`
	GuestID json.Number     `json:"guest_id"`
	EventID json.Number     `json:"event_id"`
	QRID    json.RawMessage `json:"qr_id"`
}

// Parse tries the structured encoding first, then the URL encoding.
func Parse(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.DecodeInvalid("empty")
	}

	if strings.HasPrefix(raw, "{") {
		return parseStructured(raw)
	}
	return parseURL(raw)
}

func parseStructured(raw string) (*Payload, error) {
	var sp structuredPayload
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&sp); err != nil {
		return nil, apperrors.DecodeInvalid("malformed JSON").WithCause(err)
	}

	if sp.Type != guestCheckinType {
		return nil, apperrors.DecodeInvalid("not a guest check-in code")
	}

	guestID, ok := positiveID(string(sp.GuestID))
	if !ok {
		return nil, apperrors.DecodeInvalid("guest_id must be a positive integer")
	}

	p := &Payload{
		GuestID:  guestID,
		Encoding: EncodingStructured,
	}
	if eventID, ok := positiveID(string(sp.EventID)); ok {
		p.EventID = &eventID
	}

	var qrID string
	if len(sp.QRID) > 0 && json.Unmarshal(sp.QRID, &qrID) == nil {
		p.QRID = qrID
	}
	return p, nil
}

func parseURL(raw string) (*Payload, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || (u.Host == "" && u.Opaque == "") {
		return nil, apperrors.DecodeInvalid("not a URL")
	}

	query := u.Query()
	guestID, ok := positiveID(query.Get("guest_id"))
	if !ok {
		return nil, apperrors.DecodeInvalid("URL has no valid guest_id")
	}

	p := &Payload{
		GuestID:  guestID,
		QRID:     query.Get("qr_id"),
		Encoding: EncodingURL,
	}
	if eventID, ok := positiveID(query.Get("event_id")); ok {
		p.EventID = &eventID
	}
	return p, nil
}

func positiveID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
