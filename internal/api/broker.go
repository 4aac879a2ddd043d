package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/google/uuid"

	"github.com/plexmcp/plexmcp/internal/jsonrpc"
)

// DefaultKeepaliveInterval is how long a stream sits idle before a
// keepalive frame is emitted.
const DefaultKeepaliveInterval = 30 * time.Second

var initializedNotification = mustMarshal(map[string]any{
	"jsonrpc": jsonrpc.Version,
	"method":  "notifications/initialized",
	"params":  map[string]any{},
})

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Broker owns one outbound event stream per connected client, each with its
// own unbounded message queue. It decouples response production from
// delivery: handlers enqueue, the stream goroutine emits.
type Broker struct {
	logger lager.Logger

	// KeepaliveInterval may be shortened by tests before any stream opens.
	KeepaliveInterval time.Duration

	conns sync.Map // client id -> *conn
}

func NewBroker(logger lager.Logger) *Broker {
	return &Broker{
		logger:            logger.Session("broker"),
		KeepaliveInterval: DefaultKeepaliveInterval,
	}
}

// conn is one client's queue. Queues are unbounded; a channel would impose a
// bound, so pending messages live in a slice guarded by a mutex with a
// single-token signal channel for wakeups.
type conn struct {
	mu     sync.Mutex
	queue  [][]byte
	closed bool
	signal chan struct{}
}

func newConn() *conn {
	return &conn{signal: make(chan struct{}, 1)}
}

// enqueue appends a message unless the connection was already torn down.
func (c *conn) enqueue(msg []byte) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
	return true
}

func (c *conn) dequeue() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, true
}

func (c *conn) close() {
	c.mu.Lock()
	c.closed = true
	c.queue = nil
	c.mu.Unlock()
}

// Broadcast enqueues a response for every currently open stream. Responses
// are not correlated to the requesting client; see DESIGN.md.
func (b *Broker) Broadcast(resp jsonrpc.Response) {
	msg, err := json.Marshal(resp)
	if err != nil {
		b.logger.Error("marshal-broadcast", err)
		return
	}
	b.conns.Range(func(key, value any) bool {
		if !value.(*conn).enqueue(msg) {
			b.logger.Debug("skipped-closed-connection", lager.Data{"client_id": key})
		}
		return true
	})
}

// ServeSSE runs one client's event stream until the client disconnects,
// which is the only teardown path.
func (b *Broker) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()
	logger := b.logger.Session("stream", lager.Data{"client_id": clientID})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	c := newConn()
	b.conns.Store(clientID, c)
	defer func() {
		b.conns.Delete(clientID)
		c.close()
		logger.Info("closed")
	}()

	logger.Info("opened")

	if err := b.emit(w, flusher, initializedNotification); err != nil {
		return
	}

	timer := time.NewTimer(b.KeepaliveInterval)
	defer timer.Stop()

	for {
		for {
			msg, ok := c.dequeue()
			if !ok {
				break
			}
			if err := b.emit(w, flusher, msg); err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-c.signal:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(b.KeepaliveInterval)
		case <-timer.C:
			if err := b.emit(w, flusher, []byte("keepalive")); err != nil {
				return
			}
			timer.Reset(b.KeepaliveInterval)
		}
	}
}

// emit writes one bare data frame. Clients expect `data: <JSON>` with no
// event name or id field.
func (b *Broker) emit(w http.ResponseWriter, flusher http.Flusher, data []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
