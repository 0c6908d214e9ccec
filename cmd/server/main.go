package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/drivescope/internal/api"
	"github.com/dgallion1/drivescope/internal/cache"
	"github.com/dgallion1/drivescope/internal/config"
	"github.com/dgallion1/drivescope/internal/drive"
	"github.com/dgallion1/drivescope/internal/extract"
	"github.com/dgallion1/drivescope/internal/scope"
	"github.com/dgallion1/drivescope/internal/stream"
	"github.com/dgallion1/drivescope/internal/tools"
)

const version = "0.3.0"

func main() {
	// Stdout belongs to the stdio transport; logs go to stderr.
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize clients and core components.
	client := drive.NewClient(cfg.DriveAPIBase, cfg.DriveAccessToken, log, drive.Options{
		MaxRetries: cfg.RetryMax,
		RetryDelay: cfg.RetryDelay,
	})
	resolver := scope.NewResolver(client, cfg.RootFolderID, cfg.ScopeMaxDepth, cfg.ScopeMaxNodes, log)
	results := cache.New[*extract.Result](cfg.CacheMaxBytes, cfg.CacheTTL, log)
	extractor := extract.New(client, results, extract.Config{MaxDocumentBytes: cfg.MaxDocumentBytes}, log)
	reader := stream.NewReader(client, cfg.ChunkMaxBytes, log)

	mcpServer := tools.NewServer(resolver, extractor, reader, client, cfg.RootFolderID, version, log).MCP()

	// Sweep expired cache entries in the background.
	go func() {
		ticker := time.NewTicker(cfg.CacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := results.Cleanup(); n > 0 {
					log.Debug("cache cleanup", "expired", n)
				}
			}
		}
	}()

	log.Info("starting drivescope",
		"version", version,
		"transport", cfg.Transport,
		"root", cfg.RootFolderID,
	)

	switch cfg.Transport {
	case "http":
		runHTTP(ctx, mcpServer, cfg, log)
	default:
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	client.Close()
	log.Info("shutdown complete")
}

func runHTTP(ctx context.Context, mcpServer *mcp.Server, cfg config.Config, log *slog.Logger) {
	srv := api.NewServer(mcpServer, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
