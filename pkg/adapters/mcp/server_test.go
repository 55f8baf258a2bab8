package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/rowflow"
	"github.com/aretw0/rowflow/pkg/domain"
	"github.com/aretw0/rowflow/pkg/dsl"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := dsl.New("work")
	b.Add("age").Numeric().Range(0, 120)
	b.Add("employed").Option("1", "").Option("2", "comments")
	b.Add("hours").Numeric().Min(0)
	b.Add("comments").Optional()
	return NewServer(rowflow.New(), b.MustBuild(), nil)
}

func TestHandleValidate_DefaultSchema(t *testing.T) {
	s := newTestServer(t)

	out, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, ValidateArgs{
		Row: map[string]any{"age": 30.0, "employed": 2.0},
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.SummaryOK), out.Summary)
	assert.Empty(t, out.Current)
	assert.Equal(t, "comments", out.Next["employed"])
	assert.Equal(t, string(domain.StateSkipped), out.States["hours"])
	assert.Empty(t, out.Problems)
}

func TestHandleValidate_ReportsProblems(t *testing.T) {
	s := newTestServer(t)

	out, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, ValidateArgs{
		Row: map[string]any{"age": 300.0, "employed": 7.0},
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.SummaryProblems), out.Summary)
	assert.Equal(t, []string{"age", "employed"}, out.Problems)
	assert.Equal(t, "age", out.FirstFailure)
}

func TestHandleValidate_InlineSchema(t *testing.T) {
	s := NewServer(rowflow.New(), nil, nil)

	out, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, ValidateArgs{
		Schema: "variables:\n  q1: {type: text}\n",
		Row:    map[string]any{"q1": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.SummaryOK), out.Summary)

	_, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, ValidateArgs{Row: map[string]any{}})
	assert.ErrorIs(t, err, errNoSchema)

	_, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, ValidateArgs{
		Schema: "variables:\n  q1: {type: text, enabling: missing}\n",
		Row:    map[string]any{},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownFunction)
}

func TestHandleMermaid(t *testing.T) {
	s := newTestServer(t)

	chart, err := s.handleMermaid(context.Background(), MermaidArgs{})
	require.NoError(t, err)
	assert.Contains(t, chart, "graph TD")
	assert.NotContains(t, chart, "classDef")

	chart, err = s.handleMermaid(context.Background(), MermaidArgs{Row: map[string]any{"age": 30.0}})
	require.NoError(t, err)
	assert.Contains(t, chart, "class employed current;")
}

func TestDescribeSchema(t *testing.T) {
	s := newTestServer(t)

	text, err := s.describeSchema()
	require.NoError(t, err)

	var doc struct {
		Name      string           `json:"name"`
		Variables []schemaVariable `json:"variables"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Equal(t, "work", doc.Name)
	require.Len(t, doc.Variables, 4)
	assert.Equal(t, "employed", doc.Variables[1].Name)
	assert.True(t, doc.Variables[3].Optional)

	_, err = NewServer(rowflow.New(), nil, nil).describeSchema()
	assert.ErrorIs(t, err, errNoSchema)
}
