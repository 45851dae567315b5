package checkin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/exp-solution/checkin-scanner/internal/errors"
	"github.com/exp-solution/checkin-scanner/internal/payload"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) CheckIn(ctx context.Context, req Request) (*Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}

// blockingSubmitter holds every call until release is closed.
type blockingSubmitter struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newBlockingSubmitter() *blockingSubmitter {
	return &blockingSubmitter{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *blockingSubmitter) CheckIn(ctx context.Context, req Request) (*Outcome, error) {
	s.calls.Add(1)
	s.entered <- struct{}{}
	<-s.release
	return &Outcome{Guest: GuestSnapshot{Name: "A"}}, nil
}

func TestCoordinator_Submit(t *testing.T) {
	t.Run("forwards guest, location and qr id", func(t *testing.T) {
		sub := &mockSubmitter{}
		now := time.Now()
		sub.On("CheckIn", mock.Anything, Request{GuestID: 42, Location: "Gate 1", QRID: "q"}).
			Return(&Outcome{Guest: GuestSnapshot{Name: "A"}, CheckedInAt: &now}, nil).Once()

		c := NewCoordinator(sub, "Gate 1")
		outcome, err := c.Submit(context.Background(), &payload.Payload{GuestID: 42, QRID: "q", Encoding: payload.EncodingStructured})

		require.NoError(t, err)
		assert.Equal(t, "A", outcome.Guest.Name)
		assert.False(t, c.InFlight())
		sub.AssertExpectations(t)
	})

	t.Run("structured and url payloads submit identically", func(t *testing.T) {
		sub := &mockSubmitter{}
		sub.On("CheckIn", mock.Anything, Request{GuestID: 42, Location: "QR Scanner"}).
			Return(&Outcome{}, nil).Twice()

		c := NewCoordinator(sub, "QR Scanner")
		structured, err := payload.Parse(`{"type":"guest_checkin","guest_id":42}`)
		require.NoError(t, err)
		fromURL, err := payload.Parse("https://host/c?guest_id=42")
		require.NoError(t, err)

		_, err = c.Submit(context.Background(), structured)
		require.NoError(t, err)
		_, err = c.Submit(context.Background(), fromURL)
		require.NoError(t, err)

		sub.AssertExpectations(t)
	})

	t.Run("already checked in never carries a timestamp", func(t *testing.T) {
		sub := &mockSubmitter{}
		now := time.Now()
		sub.On("CheckIn", mock.Anything, mock.Anything).
			Return(&Outcome{AlreadyCheckedIn: true, CheckedInAt: &now, Location: "x"}, nil)

		outcome, err := NewCoordinator(sub, "").Submit(context.Background(), &payload.Payload{GuestID: 1})

		require.NoError(t, err)
		assert.True(t, outcome.AlreadyCheckedIn)
		assert.Nil(t, outcome.CheckedInAt)
		assert.Empty(t, outcome.Location)
	})

	t.Run("failures are network errors and clear the flag", func(t *testing.T) {
		sub := &mockSubmitter{}
		sub.On("CheckIn", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset")).Once()
		sub.On("CheckIn", mock.Anything, mock.Anything).Return(&Outcome{}, nil).Once()

		c := NewCoordinator(sub, "")
		_, err := c.Submit(context.Background(), &payload.Payload{GuestID: 1})

		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNetwork))
		assert.False(t, c.InFlight())

		_, err = c.Submit(context.Background(), &payload.Payload{GuestID: 1})
		assert.NoError(t, err)
	})
}

func TestCoordinator_SingleFlight(t *testing.T) {
	sub := newBlockingSubmitter()
	c := NewCoordinator(sub, "")
	p := &payload.Payload{GuestID: 42}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.Submit(context.Background(), p)
		assert.NoError(t, err)
	}()
	<-sub.entered
	assert.True(t, c.InFlight())

	var rejected atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(context.Background(), p); errors.Is(err, ErrInFlight) {
				rejected.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return rejected.Load() == 10 }, time.Second, 5*time.Millisecond)

	close(sub.release)
	wg.Wait()

	assert.Equal(t, int32(1), sub.calls.Load())
	assert.False(t, c.InFlight())
}
