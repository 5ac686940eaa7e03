package editor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImpl = &mcp.Implementation{Name: "weaver-test", Version: "0.1.0"}

// mcpSession registers the tools of s and returns a connected client session.
func mcpSession(t *testing.T, s *Session) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testImpl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

// callTool invokes a tool and decodes the JSON text of its first content.
func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any, out any) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
		t.Fatalf("CallTool(%s): decode %q: %v", name, tc.Text, err)
	}
}

func TestMCPListTools(t *testing.T) {
	s, _, _, _ := sandboxSession(t, SessionConfig{})
	cs := mcpSession(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"visual_edit_enable", "visual_edit_disable", "visual_edit_toggle",
		"visual_edit_clear_selection", "visual_edit_status", "visual_edit_selections",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestMCPEnableSelectDisable(t *testing.T) {
	s, sb, clk, _ := sandboxSession(t, SessionConfig{})
	cs := mcpSession(t, s)

	var st Status
	callTool(t, cs, "visual_edit_enable", nil, &st)
	assert.True(t, st.Active)
	assert.Equal(t, "sess-test", st.SessionID)

	clk.Advance(DefaultEnableDelay)
	require.NoError(t, sb.Click(heading))

	callTool(t, cs, "visual_edit_status", nil, &st)
	assert.Equal(t, InjectionInjected, st.Injection)
	require.NotNil(t, st.Selected)
	assert.Equal(t, "H1", st.Selected.TagName)

	var sel selectionsResponse
	callTool(t, cs, "visual_edit_selections", map[string]any{"limit": 5}, &sel)
	assert.Equal(t, "sess-test", sel.SessionID)
	require.Len(t, sel.Selections, 1)
	assert.Equal(t, heading, sel.Selections[0].Element.Selector)

	st = Status{}
	callTool(t, cs, "visual_edit_clear_selection", nil, &st)
	assert.True(t, st.Active)
	assert.Nil(t, st.Selected)

	callTool(t, cs, "visual_edit_disable", nil, &st)
	assert.False(t, st.Active)
	assert.False(t, sb.Peer().Active())
}

func TestMCPToggle(t *testing.T) {
	s, _, _, _ := sandboxSession(t, SessionConfig{})
	cs := mcpSession(t, s)

	var st Status
	callTool(t, cs, "visual_edit_toggle", nil, &st)
	assert.True(t, st.Active)
	callTool(t, cs, "visual_edit_toggle", nil, &st)
	assert.False(t, st.Active)
}

func TestMCPSelectionsEmpty(t *testing.T) {
	s, _, _, _ := sandboxSession(t, SessionConfig{})
	cs := mcpSession(t, s)

	var sel selectionsResponse
	callTool(t, cs, "visual_edit_selections", nil, &sel)
	assert.NotNil(t, sel.Selections)
	assert.Empty(t, sel.Selections)
}

func TestMCPBadArguments(t *testing.T) {
	s, _, _, _ := sandboxSession(t, SessionConfig{})
	cs := mcpSession(t, s)

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "visual_edit_selections",
		Arguments: map[string]any{"limit": "many"},
	})
	if err != nil {
		// The SDK may reject arguments that violate the input schema.
		return
	}
	assert.True(t, result.IsError)
}
