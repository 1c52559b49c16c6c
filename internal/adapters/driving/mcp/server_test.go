package mcp

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil analysis service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("nil ports returns error", func(t *testing.T) {
		_, err := NewServer(nil)
		assert.ErrorIs(t, err, ErrMissingAnalysisService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

// connect starts the server on an in-memory transport and returns a client session.
func connect(t *testing.T, svc *mockAnalysisService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(&Ports{Analysis: svc})
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return cs
}

func TestServer_ListsToolsAndResources(t *testing.T) {
	cs := connect(t, &mockAnalysisService{})
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"analyze_document", "recent_analyses"}, names)

	resources, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	uris := make([]string, 0, len(resources.Resources))
	for _, r := range resources.Resources {
		uris = append(uris, r.URI)
	}
	assert.ElementsMatch(t, []string{"finsight://stats", "finsight://analyses"}, uris)
}

func TestServer_CallAnalyzeOverTransport(t *testing.T) {
	svc := &mockAnalysisService{record: testRecord()}
	cs := connect(t, svc)

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "analyze_document",
		Arguments: map[string]any{
			"type":  "url",
			"input": "https://example.com/q3",
		},
	})

	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.NotNil(t, result.StructuredContent)
	assert.Equal(t, "https://example.com/q3", svc.lastRequest.Input)
}

func TestServer_ReadStatsOverTransport(t *testing.T) {
	svc := &mockAnalysisService{}
	svc.stats.LLMModel = "gpt-4o-mini"
	cs := connect(t, svc)

	result, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "finsight://stats"})

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, `"llm_model": "gpt-4o-mini"`)
}

func TestServer_HandlerServesStreamableHTTP(t *testing.T) {
	svc := &mockAnalysisService{}
	svc.stats.EmbeddingModel = "nomic-embed-text"
	server, err := NewServer(&Ports{Analysis: svc})
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	result, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "finsight://stats"})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, `"embedding_model": "nomic-embed-text"`)
}

func TestServer_RunHTTPStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestServer_RunHTTPAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
	require.NoError(t, err)

	err = server.RunHTTP(context.Background(), ln.Addr().String())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp server")
}
