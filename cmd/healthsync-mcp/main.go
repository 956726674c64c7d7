// healthsync-mcp runs the MCP server over stdio, backed by a remote
// healthsync REST API. Point it at the sync server (directly or over
// Tailscale) and register it with an MCP-capable client.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/claude/healthsync/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the healthsync REST API")
	flag.Parse()

	// stderr: stdout carries the MCP protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds := mcp.NewHTTPClient(*baseURL)
	s := mcp.New(ds, Version, log)

	log.Info("MCP server starting", "transport", "stdio", "upstream", *baseURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
