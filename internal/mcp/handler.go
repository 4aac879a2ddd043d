package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"code.cloudfoundry.org/lager/v3"

	"github.com/plexmcp/plexmcp/internal/jsonrpc"
)

const (
	protocolVersion = "2024-11-05"

	// ServerName and ServerVersion identify this server to clients in
	// the initialize handshake and on the HTTP surface.
	ServerName    = "plex-mcp-server"
	ServerVersion = "1.0.0"
)

type initializeResult struct {
	ProtocolVersion string           `json:"protocolVersion"`
	Capabilities    serverCapability `json:"capabilities"`
	ServerInfo      serverInfo       `json:"serverInfo"`
}

type serverCapability struct {
	Tools struct{} `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolsListResult struct {
	Tools []Descriptor `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Handler routes inbound JSON-RPC messages to lifecycle methods or the tool
// registry. It keeps no state between calls.
type Handler struct {
	logger   lager.Logger
	registry *Registry
}

func NewHandler(logger lager.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger.Session("mcp"), registry: registry}
}

// HandleRaw parses a request body at the transport boundary. Bodies that do
// not parse as a JSON-RPC message get a parse error with a null id.
func (h *Handler) HandleRaw(body []byte) jsonrpc.Response {
	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Error("parse-request", err)
		return jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")
	}
	return h.Handle(req)
}

// Handle dispatches one request and always produces a well-formed response;
// a panicking tool handler is converted to an internal error rather than
// taking down the process.
func (h *Handler) Handle(req jsonrpc.Request) (resp jsonrpc.Response) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("dispatch-panic", fmt.Errorf("%v", r), lager.Data{"method": req.Method})
			resp = jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, fmt.Sprintf("%v", r))
		}
	}()

	h.logger.Debug("handling-message", lager.Data{"method": req.Method})

	switch req.Method {
	case "initialize":
		return jsonrpc.NewResult(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: ServerName, Version: ServerVersion},
		})
	case "tools/list":
		return jsonrpc.NewResult(req.ID, toolsListResult{Tools: h.registry.Descriptors()})
	case "tools/call":
		return h.handleToolsCall(req)
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound,
			fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (h *Handler) handleToolsCall(req jsonrpc.Request) jsonrpc.Response {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError,
				fmt.Sprintf("invalid tools/call params: %s", err))
		}
	}

	h.logger.Info("calling-tool", lager.Data{"tool": params.Name})

	result, err := h.registry.Dispatch(params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound,
				fmt.Sprintf("Unknown tool: %s", params.Name))
		}
		h.logger.Error("tool-failed", err, lager.Data{"tool": params.Name})
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, err.Error())
	}

	text, err := json.Marshal(result)
	if err != nil {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError,
			fmt.Sprintf("marshaling result: %s", err))
	}

	return jsonrpc.NewResult(req.ID, callToolResult{
		Content: []contentBlock{{Type: "text", Text: string(text)}},
	})
}
