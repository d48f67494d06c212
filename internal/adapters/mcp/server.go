// Package mcp exposes retrieval over the Model Context Protocol so AI
// assistants can ground answers in a clinic's documents.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

const (
	serverName = "clinic-rag"
	Version    = "1.0.0"
)

var ErrMissingSearchService = errors.New("mcp: search service is required")

type Ports struct {
	Search    ports.SemanticSearcher
	Documents ports.DocumentManager
	// DefaultTenant is used when a tool call names no tenant.
	DefaultTenant string
}

type Server struct {
	ports  Ports
	server *server.MCPServer
}

func NewServer(p Ports) (*Server, error) {
	if p.Search == nil {
		return nil, ErrMissingSearchService
	}
	s := &Server{
		ports:  p,
		server: server.NewMCPServer(serverName, Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

// Run serves JSON-RPC over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s.server).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.WithoutCancel(ctx))
	}()
	if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
