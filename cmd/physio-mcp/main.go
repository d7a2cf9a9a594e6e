// Command physio-mcp serves the Physio MCP tools over stdio, reading data
// from a running Physio server's REST API.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/shravan/physio/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	url := flag.String("url", envOr("PHYSIO_URL", "http://physio"), "base URL of the Physio server")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("physio-mcp starting", "version", Version, "url", *url)

	s := mcp.New(mcp.NewHTTPClient(*url), Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
