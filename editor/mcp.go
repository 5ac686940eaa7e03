package editor

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/weaver/bridge"
	"github.com/hazyhaar/weaver/kit"
)

// RegisterMCP registers the visual edit tools on an MCP server.
func (s *Session) RegisterMCP(srv *mcp.Server) {
	s.registerControlTool(srv, "visual_edit_enable",
		"Turn visual edit mode on in the preview. The peer script is injected if needed; clicks then select elements.",
		func() { s.Enable() })
	s.registerControlTool(srv, "visual_edit_disable",
		"Turn visual edit mode off and clear every highlight in the preview.",
		func() { s.Disable() })
	s.registerControlTool(srv, "visual_edit_toggle",
		"Flip visual edit mode.",
		func() { s.Toggle() })
	s.registerControlTool(srv, "visual_edit_clear_selection",
		"Drop the current element selection, keeping edit mode on.",
		func() { s.ClearSelection() })
	s.registerStatusTool(srv)
	s.registerSelectionsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// logged records each tool call at debug level.
func (s *Session) logged(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			s.logger.Debug("editor: tool", "tool", name, "transport", kit.GetTransport(ctx),
				"duration", time.Since(start), "error", err)
			return resp, err
		}
	}
}

func (s *Session) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	sessionCtx := func(ctx context.Context) context.Context { return kit.WithSessionID(ctx, s.id) }
	wrapped := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		r, err := decode(req)
		if err != nil {
			return nil, err
		}
		r.EnrichCtx = sessionCtx
		return r, nil
	}
	kit.RegisterMCPTool(srv, tool, kit.Chain(s.logged(tool.Name))(endpoint), wrapped)
}

// --- enable / disable / toggle / clear_selection ---

type emptyRequest struct{}

func (s *Session) registerControlTool(srv *mcp.Server, name, desc string, action func()) {
	tool := &mcp.Tool{
		Name:        name,
		Description: desc + " Returns the session status.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		action()
		return s.Status(ctx), nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[emptyRequest]())
}

// --- status ---

func (s *Session) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "visual_edit_status",
		Description: "Report whether edit mode is on, the peer injection state, and the selected element.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Status(ctx), nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[emptyRequest]())
}

// --- selections ---

type selectionsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type selectionsResponse struct {
	SessionID  string          `json:"session_id"`
	Selections []bridge.Record `json:"selections"`
}

func (s *Session) registerSelectionsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "visual_edit_selections",
		Description: "List the elements selected in this session, newest first. Each entry carries tag, id, classes, text, selector, page path and geometry.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max results (default 20)"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*selectionsRequest)
		recs, err := s.Selections(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []bridge.Record{}
		}
		return selectionsResponse{SessionID: kit.GetSessionID(ctx), Selections: recs}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[selectionsRequest]())
}
