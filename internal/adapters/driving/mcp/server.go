package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inorbit222/Trinity-News-Indexer/internal/logger"
)

// Version is reported to MCP clients during initialisation.
const Version = "0.1.0"

// shutdownGrace bounds how long open streams may drain once the context ends.
const shutdownGrace = 5 * time.Second

const instructions = `Trinity indexes a regional newspaper archive.
Call "query" with a place, person or event; results come in separate ranked lists:
semantic neighbours, exact entity matches, documents near the named place,
and the sentiment of the matched mentions.
Read trinity://documents/{id} for one article with its entities, topics and sentiment.`

// Server exposes federated queries and document resources over MCP.
type Server struct {
	ports *Ports
	mcp   *mcp.Server
}

// NewServer registers the tools and resources the given ports support.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: "trinity", Title: "Trinity News Indexer", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Serve speaks MCP on stdio when addr is empty and over streamable HTTP on
// addr otherwise. It returns once ctx is cancelled or the transport fails.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		logger.Debug("MCP server on stdio")
		return s.mcp.Run(ctx, &mcp.StdioTransport{})
	}
	return s.serveHTTP(ctx, addr)
}

// Handler mounts the streamable HTTP transport at / and /mcp, next to a
// liveness probe at /healthz.
func (s *Server) Handler() http.Handler {
	stream := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/", stream)
	r.Handle("/mcp", stream)
	return r
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	logger.Info("MCP server listening on %s", ln.Addr())

	select {
	case err := <-served:
		return fmt.Errorf("mcp: serve: %w", err)
	case <-ctx.Done():
	}

	drain, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(drain); err != nil {
		// Event streams stay open until the client leaves.
		logger.Debug("MCP shutdown: %v, closing open streams", err)
		_ = srv.Close()
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}
