package jsonrpc_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexmcp/plexmcp/internal/jsonrpc"
)

func TestResultResponseOmitsError(t *testing.T) {
	resp := jsonrpc.NewResult(json.RawMessage(`1`), map[string]string{"ok": "yes"})

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "result")
	assert.NotContains(t, decoded, "error")
	assert.Equal(t, `1`, string(decoded["id"]))
	assert.Equal(t, `"2.0"`, string(decoded["jsonrpc"]))
}

func TestErrorResponseOmitsResult(t *testing.T) {
	resp := jsonrpc.NewError(json.RawMessage(`"abc"`), jsonrpc.CodeMethodNotFound, "Unknown method: nope")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Contains(t, decoded, "error")
	assert.NotContains(t, decoded, "result")
	assert.Equal(t, `"abc"`, string(decoded["id"]))
}

func TestNilIDMarshalsAsNull(t *testing.T) {
	resp := jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "null", string(decoded["id"]))
}

func TestRequestIDRoundTrips(t *testing.T) {
	for _, raw := range []string{`42`, `"token-7"`, `null`} {
		var req jsonrpc.Request
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":`+raw+`,"method":"x"}`), &req))
		assert.Equal(t, raw, string(req.ID))
	}
}
