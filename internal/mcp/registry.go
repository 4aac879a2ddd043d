package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by Dispatch for names never registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolHandler handles one tool call. Operational failures (catalog
// unreachable, entity not found) are data: the handler returns an
// error-shaped payload and a nil error. A non-nil error means the call
// itself could not be carried out and becomes a protocol-level failure.
type ToolHandler func(args json.RawMessage) (any, error)

// Tool is a named, schema-described operation: the registry stores these
// values and invocation goes through the handler, not a raw name lookup at
// the call site.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Descriptor is the wire form of a tool advertised by tools/list.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry holds tools in registration order. Names are globally unique
// across all tool groups.
type Registry struct {
	tools  []Tool
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a tool. A name collision is a programming error and is
// surfaced so startup can abort.
func (r *Registry) Register(tool Tool) error {
	if _, exists := r.byName[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	r.byName[tool.Name] = len(r.tools)
	r.tools = append(r.tools, tool)
	return nil
}

// Descriptors returns every registered tool in registration order, used
// verbatim for tools/list.
func (r *Registry) Descriptors() []Descriptor {
	descriptors := make([]Descriptor, len(r.tools))
	for i, tool := range r.tools {
		descriptors[i] = Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}
	return descriptors
}

// Dispatch invokes the named tool with the given arguments.
func (r *Registry) Dispatch(name string, args json.RawMessage) (any, error) {
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return r.tools[i].Handler(args)
}
