// Package sse implements a Server-Sent Events broker for publish progress and
// content change notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	TypeProgress       = "publish.progress"
	TypeCompleted      = "publish.completed"
	TypeFailed         = "publish.failed"
	TypeContentChanged = "content.changed"
)

// Progress is the payload of a publish.progress event.
type Progress struct {
	RunID  string `json:"run_id,omitempty"`
	Target string `json:"target"`
	Line   string `json:"line"`
}

// Failure is the payload of a publish.failed event.
type Failure struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// ContentChanged is the payload of a content.changed event.
type ContentChanged struct {
	Paths []string `json:"paths"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set, the event sequence and
// the pending content paths. Public methods talk to it through channels.
// content.changed events are coalesced: paths reported within one throttle
// interval are merged into a single event.
type Broker struct {
	changeMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan []string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given content.changed throttle interval.
func NewBroker(changeThrottle time.Duration) *Broker {
	if changeThrottle <= 0 {
		changeThrottle = 2 * time.Second
	}

	b := &Broker{
		changeMin:     changeThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan []string, 64),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	pending := make(map[string]struct{})
	var lastChange time.Time
	flush := time.NewTimer(b.changeMin)
	flush.Stop()
	defer flush.Stop()

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	emitChanged := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
			delete(pending, p)
		}
		sort.Strings(paths)
		lastChange = time.Now()
		broadcast(Event{Type: TypeContentChanged, Data: ContentChanged{Paths: paths}})
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

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case paths := <-b.changeCh:
			wasIdle := len(pending) == 0
			for _, p := range paths {
				pending[p] = struct{}{}
			}
			if !wasIdle {
				continue
			}
			if wait := b.changeMin - time.Since(lastChange); wait > 0 {
				flush.Reset(wait)
			} else {
				emitChanged()
			}

		case <-flush.C:
			if len(pending) > 0 {
				emitChanged()
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
	ch := make(chan []byte, 64)
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

// PublishProgress broadcasts one progress line of a run.
func (b *Broker) PublishProgress(runID, target, line string) {
	b.Publish(Event{Type: TypeProgress, Data: Progress{RunID: runID, Target: target, Line: line}})
}

// PublishCompleted broadcasts the result of a finished run.
func (b *Broker) PublishCompleted(result any) {
	b.Publish(Event{Type: TypeCompleted, Data: result})
}

// PublishFailed broadcasts a failed run.
func (b *Broker) PublishFailed(target, kind string, err error) {
	b.Publish(Event{Type: TypeFailed, Data: Failure{Target: target, Kind: kind, Error: err.Error()}})
}

// PublishContentChanged reports changed content paths. Reports arriving
// within the throttle interval are merged into one content.changed event.
func (b *Broker) PublishContentChanged(paths ...string) {
	if b.closed.Load() || len(paths) == 0 {
		return
	}
	select {
	case b.changeCh <- paths:
	case <-b.stopped:
	}
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
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
