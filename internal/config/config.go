package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Transport selects how the MCP server is exposed: "stdio" or "http".
	Transport string
	Port      string

	// Remote store connection
	DriveAPIBase     string
	DriveAccessToken string
	RootFolderID     string

	// Authorization scope
	ScopeMaxDepth int
	ScopeMaxNodes int

	// Extraction limits
	MaxDocumentBytes int64

	// Result cache
	CacheMaxBytes int64
	CacheTTL      time.Duration

	// Chunked reads
	ChunkMaxBytes int64

	// Retry policy for store calls
	RetryMax   int
	RetryDelay time.Duration
}

func Load() Config {
	cfg := Config{
		Transport: envOr("TRANSPORT", "stdio"),
		Port:      envOr("PORT", "8090"),

		DriveAPIBase:     envOr("DRIVE_API_BASE", "https://www.googleapis.com/drive/v3"),
		DriveAccessToken: os.Getenv("DRIVE_ACCESS_TOKEN"),
		RootFolderID:     os.Getenv("DRIVE_ROOT_FOLDER_ID"),

		ScopeMaxDepth: envInt("SCOPE_MAX_DEPTH", 3),
		ScopeMaxNodes: envInt("SCOPE_MAX_NODES", 100),

		MaxDocumentBytes: envInt64("MAX_DOCUMENT_BYTES", 20<<20),

		CacheMaxBytes: envInt64("CACHE_MAX_BYTES", 100<<20),
		CacheTTL:      envDuration("CACHE_TTL", 30*time.Minute),

		ChunkMaxBytes: envInt64("CHUNK_MAX_BYTES", 10<<20),

		RetryMax:   envInt("RETRY_MAX", 3),
		RetryDelay: envDuration("RETRY_DELAY", time.Second),
	}

	if cfg.ScopeMaxDepth <= 0 {
		cfg.ScopeMaxDepth = 3
	}
	if cfg.ScopeMaxNodes <= 0 {
		cfg.ScopeMaxNodes = 100
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = 20 << 20
	}
	if cfg.CacheMaxBytes <= 0 {
		cfg.CacheMaxBytes = 100 << 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.ChunkMaxBytes <= 0 {
		cfg.ChunkMaxBytes = 10 << 20
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.RootFolderID == "" {
		return fmt.Errorf("DRIVE_ROOT_FOLDER_ID is required")
	}
	if c.DriveAccessToken == "" {
		return fmt.Errorf("DRIVE_ACCESS_TOKEN is required")
	}
	if c.Transport != "stdio" && c.Transport != "http" {
		return fmt.Errorf("TRANSPORT must be stdio or http, got %q", c.Transport)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
