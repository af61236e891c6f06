// Package server exposes the signed-in Trackit session to local tools over
// plain JSON and MCP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
	"github.com/evanschultz/trackit/internal/adapters/server/httpapi"
	"github.com/evanschultz/trackit/internal/adapters/server/mcpapi"
)

const (
	// Loopback only; the server acts with the local user's API token.
	defaultBindAddress = "127.0.0.1:8090"
	shutdownGrace      = 5 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// Config names the listen address, mount points and MCP server identity.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies are what the transports call into.
type Dependencies struct {
	Services common.Services
	Logger   Logger
}

// Logger receives serve lifecycle events.
type Logger interface {
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// NewHandler mounts the health checks, the JSON API and the MCP endpoint on one mux.
// The returned Config carries the defaults that were applied.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	resolved, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Services == nil {
		return nil, Config{}, errors.New("server needs task and habit services")
	}

	mcp, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    resolved.ServerName,
		ServerVersion: resolved.ServerVersion,
		EndpointPath:  resolved.MCPEndpoint,
	}, deps.Services)
	if err != nil {
		return nil, Config{}, fmt.Errorf("mount mcp at %s: %w", resolved.MCPEndpoint, err)
	}
	api := http.StripPrefix(resolved.APIEndpoint, httpapi.NewHandler(deps.Services))

	mux := http.NewServeMux()
	for _, path := range []string{"/healthz", "/readyz"} {
		mux.HandleFunc(path, writeHealthStatus)
	}
	mux.Handle(resolved.APIEndpoint, api)
	mux.Handle(resolved.APIEndpoint+"/", api)
	mux.Handle(resolved.MCPEndpoint, mcp)
	return mux, resolved, nil
}

// Run serves the Trackit read/write surface on cfg.HTTPBind until ctx ends.
// A bind failure is returned before anything is served.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, resolved, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}

	ln, err := net.Listen("tcp", resolved.HTTPBind)
	if err != nil {
		return fmt.Errorf("bind %s: %w", resolved.HTTPBind, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}
	logInfo(deps.Logger, "serve listening", "addr", ln.Addr().String(), "api", resolved.APIEndpoint, "mcp", resolved.MCPEndpoint)

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ln)
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logInfo(deps.Logger, "serve stopping", "addr", ln.Addr().String())
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	stopErr := srv.Shutdown(drainCtx)
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("drain open requests: %w", stopErr)
	}
	return nil
}

func logInfo(l Logger, msg string, keyvals ...any) {
	if l != nil {
		l.Info(msg, keyvals...)
	}
}

// normalizeConfig fills blank fields and rejects an API path equal to the MCP path.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = strings.TrimSpace(cfg.HTTPBind)
	if cfg.HTTPBind == "" {
		cfg.HTTPBind = defaultBindAddress
	}

	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, "/api/v1")
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, "/mcp")
	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("api and mcp endpoints must differ")
	}

	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "trackit"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	return cfg, nil
}

// normalizeEndpoint returns path as "/a/b", or fallback when path is blank or root.
func normalizeEndpoint(path string, fallback string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = fallback
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		return fallback
	}
	return path
}

// writeHealthStatus answers both health checks; serving at all means ready.
func writeHealthStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
