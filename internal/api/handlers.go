package api

import (
	"encoding/json"
	"io"
	"net/http"

	"code.cloudfoundry.org/lager/v3"

	"github.com/plexmcp/plexmcp/internal/jsonrpc"
	"github.com/plexmcp/plexmcp/internal/mcp"
)

// ServerNamer reports the backing media server's friendly name.
type ServerNamer interface {
	ServerName() string
}

// API serves the HTTP surface: service metadata, health, and the MCP
// message/stream endpoints.
type API struct {
	logger  lager.Logger
	handler *mcp.Handler
	broker  *Broker
	server  ServerNamer
}

func NewAPI(logger lager.Logger, handler *mcp.Handler, broker *Broker, server ServerNamer) *API {
	return &API{
		logger:  logger.Session("api"),
		handler: handler,
		broker:  broker,
		server:  server,
	}
}

// Root handles GET /.
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"message": "Plex MCP Server",
		"server":  a.server.ServerName(),
		"version": mcp.ServerVersion,
	})
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "healthy",
		"server": a.server.ServerName(),
	})
}

// SSE handles GET /sse: the per-client event stream.
func (a *API) SSE(w http.ResponseWriter, r *http.Request) {
	a.broker.ServeSSE(w, r)
}

// SSEMessage handles POST /sse: the response is returned synchronously and
// also broadcast to every open stream (mcp-remote compatibility).
func (a *API) SSEMessage(w http.ResponseWriter, r *http.Request) {
	resp := a.handleBody(r)
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeParseError {
		a.broker.Broadcast(resp)
	}
	writeJSON(w, resp)
}

// HandleMessage handles POST /messages.
func (a *API) HandleMessage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.handleBody(r))
}

func (a *API) handleBody(r *http.Request) jsonrpc.Response {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logger.Error("read-body", err)
		return jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")
	}
	return a.handler.HandleRaw(body)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
	}
}
