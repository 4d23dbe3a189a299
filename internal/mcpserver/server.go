// Package mcpserver exposes the gateway registry as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samvad-hq/data-api-gateway/internal/config"
	"github.com/samvad-hq/data-api-gateway/internal/gateway"
	"github.com/samvad-hq/data-api-gateway/internal/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	httpEndpoint    = "/mcp"
)

// Server binds a gateway registry to an MCP server.
type Server struct {
	mcp *server.MCPServer
	reg *gateway.Registry
	log logger.Logger
}

// New registers every tool in reg with a fresh MCP server.
func New(name, version string, reg *gateway.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		reg: reg,
		log: log,
	}
	for _, t := range reg.All() {
		s.mcp.AddTool(buildTool(t), s.handler(t.Name))
	}
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve runs the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	switch transport {
	case config.TransportStdio, "":
		return s.serveStdio(ctx, os.Stdin, os.Stdout)
	case config.TransportSSE, config.TransportHTTP:
		return s.serveNetwork(ctx, transport, addr, s.networkTransport(transport))
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func (s *Server) serveStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.log.InfoObj("mcp stdio transport listening", "transport", config.TransportStdio)
	err := server.NewStdioServer(s.mcp).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

type networkTransport interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// networkTransport hands the transport a pre-built http.Server so Shutdown
// always has something to stop, even when it runs before Start.
func (s *Server) networkTransport(transport string) networkTransport {
	srv := &http.Server{ReadHeaderTimeout: 10 * time.Second}
	if transport == config.TransportSSE {
		sse := server.NewSSEServer(s.mcp, server.WithHTTPServer(srv))
		srv.Handler = sse
		return sse
	}
	httpSrv := server.NewStreamableHTTPServer(s.mcp, server.WithStreamableHTTPServer(srv))
	mux := http.NewServeMux()
	mux.Handle(httpEndpoint, httpSrv)
	srv.Handler = mux
	return httpSrv
}

func (s *Server) serveNetwork(ctx context.Context, name, addr string, t networkTransport) error {
	errCh := make(chan error, 1)
	go func() { errCh <- t.Start(addr) }()

	s.log.InfoObj("mcp network transport listening", "transport_meta", map[string]any{
		"transport": name,
		"addr":      addr,
	})

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s transport: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := t.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s transport shutdown: %w", name, err)
	}
	return nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.reg.Invoke(ctx, name, gateway.Args(req.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func buildTool(t gateway.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Kind {
		case gateway.KindInteger:
			opts = append(opts, mcp.WithNumber(p.Name, append(props, integerType)...))
		case gateway.KindNumber:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// integerType narrows a number property to JSON Schema "integer".
func integerType(schema map[string]any) {
	schema["type"] = "integer"
}
