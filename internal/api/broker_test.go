package api

import (
	"encoding/json"
	"testing"

	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexmcp/plexmcp/internal/jsonrpc"
)

func TestConnQueueIsFIFO(t *testing.T) {
	c := newConn()

	require.True(t, c.enqueue([]byte("one")))
	require.True(t, c.enqueue([]byte("two")))
	require.True(t, c.enqueue([]byte("three")))

	for _, want := range []string{"one", "two", "three"} {
		msg, ok := c.dequeue()
		require.True(t, ok)
		assert.Equal(t, want, string(msg))
	}

	_, ok := c.dequeue()
	assert.False(t, ok)
}

func TestConnEnqueueSignalsOnce(t *testing.T) {
	c := newConn()

	c.enqueue([]byte("a"))
	c.enqueue([]byte("b"))

	// The signal channel holds a single token no matter how many messages
	// were queued; the drain loop picks up the rest.
	select {
	case <-c.signal:
	default:
		t.Fatal("expected a wakeup token")
	}
	select {
	case <-c.signal:
		t.Fatal("expected at most one wakeup token")
	default:
	}
}

func TestClosedConnRejectsEnqueue(t *testing.T) {
	c := newConn()
	c.close()

	assert.False(t, c.enqueue([]byte("late")))
	_, ok := c.dequeue()
	assert.False(t, ok)
}

func TestBroadcastReachesEveryOpenConn(t *testing.T) {
	broker := NewBroker(lagertest.NewTestLogger("test"))

	first := newConn()
	second := newConn()
	closed := newConn()
	closed.close()
	broker.conns.Store("first", first)
	broker.conns.Store("second", second)
	broker.conns.Store("closed", closed)

	broker.Broadcast(jsonrpc.NewResult(json.RawMessage(`1`), "ok"))

	for name, c := range map[string]*conn{"first": first, "second": second} {
		msg, ok := c.dequeue()
		require.True(t, ok, name)
		var resp jsonrpc.Response
		require.NoError(t, json.Unmarshal(msg, &resp))
		assert.Equal(t, `1`, string(resp.ID), name)
	}

	_, ok := closed.dequeue()
	assert.False(t, ok)
}
