// Package checkin submits decoded guest codes to the event backend.
package checkin

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/payload"
)

// ErrInFlight is returned by Submit while another submission holds the slot.
var ErrInFlight = errors.New("check-in already in flight")

type Submitter interface {
	CheckIn(ctx context.Context, req Request) (*Outcome, error)
}

// Coordinator allows a single submission at a time. Callers that lose the
// claim get ErrInFlight immediately; nothing is queued.
type Coordinator struct {
	submitter Submitter
	location  string
	inFlight  atomic.Bool
}

func NewCoordinator(submitter Submitter, location string) *Coordinator {
	return &Coordinator{
		submitter: submitter,
		location:  location,
	}
}

func (c *Coordinator) Submit(ctx context.Context, p *payload.Payload) (*Outcome, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		log.Debug().Int64("guestId", p.GuestID).Msg("check-in dropped, submission in flight")
		return nil, ErrInFlight
	}
	defer c.inFlight.Store(false)

	outcome, err := c.submitter.CheckIn(ctx, Request{
		GuestID:  p.GuestID,
		Location: c.location,
		QRID:     p.QRID,
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.ErrCodeNetwork) {
			err = apperrors.Network(err)
		}
		return nil, err
	}

	if outcome.AlreadyCheckedIn {
		outcome.CheckedInAt = nil
		outcome.Location = ""
	}
	return outcome, nil
}

func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}
