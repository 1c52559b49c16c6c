package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/finsight/internal/logger"
)

// Version is the MCP server version.
const Version = "0.2.0"

// Server is the MCP server for finsight.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "finsight",
		Version: Version,
	}

	opts := &mcp.ServerOptions{
		Instructions: "Analyse financial documents (PDF, web page or pasted text) and " +
			"return a structured summary with sentiment, risks, opportunities and key metrics.",
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, opts),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// shutdownTimeout bounds the HTTP drain after the context is cancelled.
const shutdownTimeout = 5 * time.Second

// Run serves MCP over stdio until ctx is cancelled or the client goes away.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("MCP server %s on stdio", Version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler. The serve command mounts it
// next to the REST API so one process answers both.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves MCP over streamable HTTP on addr until ctx is cancelled.
// In-flight requests get shutdownTimeout to finish.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MCP server %s listening on %s", Version, addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mcp server shutdown: %w", err)
	}
	return nil
}
