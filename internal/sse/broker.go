// Package sse pushes note changes and cache invalidations to browsers as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	uatomic "go.uber.org/atomic"
)

// Event types.
const (
	TypeNoteCreated      = "note.created"
	TypeNoteUpdated      = "note.updated"
	TypeNoteDeleted      = "note.deleted"
	TypeCacheInvalidated = "cache.invalidated"
	TypeIndexChanged     = "index.changed"
)

var noteEventTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteChange is the payload of note.* events.
type NoteChange struct {
	Path string `json:"path"`
}

// IndexChanged is the payload of the throttled index.changed event.
type IndexChanged struct {
	At time.Time `json:"at"`
}

// CacheInvalidation is the payload of cache.invalidated events.
type CacheInvalidation struct {
	Entities []string `json:"entities"`
	Removed  int      `json:"removed"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithThrottle sets the minimum interval between index.changed events.
func WithThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.changedMin = d
		}
	}
}

// WithHeartbeat sets how often idle streams receive a keepalive comment.
// Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithClientBuffer sets the per-client frame buffer.
func WithClientBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.clientBuffer = n
		}
	}
}

// WithLogger sets the logger for client lifecycle and encoding failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) { b.logger = l }
}

// WithClock overrides time.Now for index.changed throttling.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set, the event sequence and
// the index.changed throttle timestamp; public methods talk to it over
// channels.
type Broker struct {
	changedMin   time.Duration
	heartbeat    time.Duration
	clientBuffer int
	now          func() time.Time
	logger       *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	dropped uatomic.Int64

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. By default index.changed is emitted at most
// every two seconds and idle streams get a heartbeat every 30 seconds.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		changedMin:    2 * time.Second,
		heartbeat:     30 * time.Second,
		clientBuffer:  64,
		now:           time.Now,
		logger:        slog.New(slog.DiscardHandler),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// frame renders one SSE frame.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastChanged time.Time
	)

	broadcast := func(event Event) {
		seq++
		raw, err := frame(seq, event)
		if err != nil {
			b.logger.Warn("sse: encode event", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; never block the loop.
				b.dropped.Inc()
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			b.logger.Debug("sse: client connected", slog.Int("clients", len(clients)))

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
				b.logger.Debug("sse: client disconnected", slog.Int("clients", len(clients)))
			}

		case event := <-b.publishCh:
			broadcast(event)
			if _, isNote := event.Data.(NoteChange); !isNote {
				continue
			}
			now := b.now()
			if now.Sub(lastChanged) >= b.changedMin {
				lastChanged = now
				broadcast(Event{Type: TypeIndexChanged, Data: IndexChanged{At: now.UTC()}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Dropped returns how many frames were skipped because a client's buffer
// was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change ("created", "updated" or
// "deleted") followed by a throttled index.changed event. Other kinds are
// ignored.
func (b *Broker) PublishNoteEvent(kind, path string) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Data: NoteChange{Path: path}})
}

// PublishCacheInvalidated announces that cached reads of entities were
// dropped.
func (b *Broker) PublishCacheInvalidated(entities []string, removed int) {
	b.Publish(Event{Type: TypeCacheInvalidated, Data: CacheInvalidation{Entities: entities, Removed: removed}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		beat = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
