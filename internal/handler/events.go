package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/exp-solution/checkin-scanner/internal/config"
	"github.com/exp-solution/checkin-scanner/internal/presenter"
	"github.com/exp-solution/checkin-scanner/internal/scan"
	"github.com/exp-solution/checkin-scanner/internal/sse"
)

const scanEventType = "scan"

// Publisher is the part of the SSE broker the live feed needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event sse.Event) error
}

const liveFeedQueueSize = 64

// LiveFeed publishes every session transition, as a presenter view, to
// the station's topic. Views are queued and published in order by a single
// goroutine so a slow broker never holds up the session loop.
type LiveFeed struct {
	publisher Publisher
	presenter *presenter.Presenter
	topic     string

	mu     sync.Mutex
	closed bool
	queue  chan sse.Event
	done   chan struct{}
}

func NewLiveFeed(publisher Publisher, p *presenter.Presenter, topic string) *LiveFeed {
	f := &LiveFeed{
		publisher: publisher,
		presenter: p,
		topic:     topic,
		queue:     make(chan sse.Event, liveFeedQueueSize),
		done:      make(chan struct{}),
	}
	go f.run()
	return f
}

// SessionChanged never blocks. When the queue is full the view is dropped;
// the next transition carries the full state again.
func (f *LiveFeed) SessionChanged(snapshot scan.Snapshot) {
	data, err := json.Marshal(f.presenter.Present(snapshot))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal scan view")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	select {
	case f.queue <- sse.Event{Type: scanEventType, Data: data}:
	default:
		log.Warn().
			Str("topic", f.topic).
			Str("status", string(snapshot.Status)).
			Msg("scan update queue full, dropping update")
	}
}

// Close stops accepting views and waits for the queued ones to be published.
func (f *LiveFeed) Close() {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
}

func (f *LiveFeed) run() {
	defer close(f.done)
	for event := range f.queue {
		f.publish(event)
	}
}

func (f *LiveFeed) publish(event sse.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), config.PublishTimeout)
	defer cancel()

	if err := f.publisher.Publish(ctx, f.topic, event); err != nil {
		log.Warn().
			Err(err).
			Str("topic", f.topic).
			Msg("failed to publish scan update")
	}
}

type EventsHandler struct {
	broker    *sse.Broker
	session   *scan.Session
	presenter *presenter.Presenter
	topic     string
}

func NewEventsHandler(broker *sse.Broker, session *scan.Session, p *presenter.Presenter, topic string) *EventsHandler {
	return &EventsHandler{
		broker:    broker,
		session:   session,
		presenter: p,
		topic:     topic,
	}
}

// GET /v1/scan/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(h.topic)
	defer h.broker.Unsubscribe(client)

	log.Info().
		Str("topic", h.topic).
		Str("remoteAddr", r.RemoteAddr).
		Msg("sse connection established")

	// The display renders the current state before the first transition.
	if err := h.sendEvent(w, flusher, scanEventType, h.presenter.Present(h.session.Snapshot())); err != nil {
		log.Debug().Err(err).Msg("failed to send initial scan view")
		return
	}

	ctx := r.Context()

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("topic", h.topic).
				Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().
				Str("topic", h.topic).
				Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := h.sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("topic", h.topic).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return h.sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func (h *EventsHandler) sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
