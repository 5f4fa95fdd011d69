// Package sse streams workspace and assistant events to browsers.
//
// Every frame carries a monotonically increasing id so a client can tell
// whether it missed anything after a reconnect. Workspace edits are followed
// by a throttled summary.invalidated event; dashboards re-fetch /api/summary
// when they see it instead of recomputing on every file write.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/wunjo/internal/storage"
)

// Event types emitted by the broker.
const (
	TypeSummaryInvalidated = "summary.invalidated"
	TypeChatReply          = "chat.reply"
	TypeHistoryCleared     = "chat.cleared"
)

const (
	defaultSummaryThrottle = 2 * time.Second
	defaultClientBuffer    = 64
)

// Event is a named payload delivered to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithSummaryThrottle sets the minimum gap between summary.invalidated events.
func WithSummaryThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.summaryMin = d
		}
	}
}

// WithKeepAlive makes the broker send a comment frame to idle clients every d.
// Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithClientBuffer sets how many frames a slow client may lag behind before
// frames are dropped for it.
func WithClientBuffer(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

type request struct {
	subscribe   chan []byte
	unsubscribe chan []byte
	count       chan int
	event       *Event
	fileKind    string
	filePath    string
}

// Broker fans events out to SSE clients. One goroutine owns the client set,
// the sequence counter and the summary throttle; the exported methods only
// send it requests.
type Broker struct {
	summaryMin time.Duration
	keepAlive  time.Duration
	buffer     int

	requests chan request
	stopCh   chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool
}

// NewBroker starts a broker.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		summaryMin: defaultSummaryThrottle,
		buffer:     defaultClientBuffer,
		requests:   make(chan request, 256),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq         uint64
		lastSummary time.Time
	)

	send := func(frame []byte) {
		for ch := range clients {
			select {
			case ch <- frame:
			default:
				// slow client; drop rather than stall the loop
			}
		}
	}
	emit := func(e Event) {
		seq++
		if frame, err := encode(seq, e); err == nil {
			send(frame)
		}
	}

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case <-tick:
			send([]byte(": ping\n\n"))

		case req := <-b.requests:
			switch {
			case req.subscribe != nil:
				clients[req.subscribe] = struct{}{}
			case req.unsubscribe != nil:
				if _, ok := clients[req.unsubscribe]; ok {
					delete(clients, req.unsubscribe)
					close(req.unsubscribe)
				}
			case req.count != nil:
				req.count <- len(clients)
			case req.event != nil:
				emit(*req.event)
			default:
				typ, ok := fileEventType(req.fileKind, req.filePath)
				if !ok {
					continue
				}
				emit(Event{Type: typ, Data: map[string]string{"path": req.filePath}})
				if now := time.Now(); now.Sub(lastSummary) >= b.summaryMin {
					lastSummary = now
					emit(Event{Type: TypeSummaryInvalidated, Data: map[string]string{}})
				}
			}
		}
	}
}

// fileEventType names the event for a workspace change, e.g. note.created.
func fileEventType(kind, path string) (string, bool) {
	switch kind {
	case "created", "updated", "deleted":
	default:
		return "", false
	}
	switch storage.KindOf(path) {
	case storage.KindNote:
		return "note." + kind, true
	case storage.KindBoard:
		return "board." + kind, true
	default:
		return "file." + kind, true
	}
}

func encode(id uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("id: ")
	buf.WriteString(strconv.FormatUint(id, 10))
	buf.WriteString("\nevent: ")
	buf.WriteString(e.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// submit hands req to the loop; it reports false once the broker is closed.
func (b *Broker) submit(req request) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.requests <- req:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.buffer)
	if !b.submit(request{subscribe: ch}) {
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.submit(request{unsubscribe: ch})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.submit(request{count: resp}) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts event to all clients.
func (b *Broker) Publish(event Event) {
	b.submit(request{event: &event})
}

// PublishFileEvent broadcasts a workspace change as note.*, board.* or
// file.*, followed by a throttled summary.invalidated. Unknown kinds are
// ignored. The signature matches index.EventCallback.
func (b *Broker) PublishFileEvent(kind, path string) {
	b.submit(request{fileKind: kind, filePath: path})
}

// ServeHTTP is the GET /api/events handler.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
