// Package app assembles the registry, scanner and MCP surface from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ganot/forge-registry/internal/config"
	"github.com/ganot/forge-registry/internal/domain/activity"
	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/feed"
	"github.com/ganot/forge-registry/internal/github"
	"github.com/ganot/forge-registry/internal/identity"
	"github.com/ganot/forge-registry/internal/mcp"
	"github.com/ganot/forge-registry/internal/registry"
	"github.com/ganot/forge-registry/internal/repository"
	"github.com/ganot/forge-registry/internal/s3store"
	"github.com/ganot/forge-registry/internal/scan"
	"github.com/ganot/forge-registry/internal/sqlite"
)

// App holds every long-lived component of a process.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *prometheus.Registry
	DB       *sqlite.DB
	KV       *sqlite.KVStore
	Registry *registry.Store
	Projects *project.Service
	Activity *activity.Service
	Verifier identity.Verifier
	Scanner  *scan.Orchestrator
}

// New opens storage and wires the services. Close releases the database.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	kv := sqlite.NewKVStore(db)

	blobs, err := blobStore(ctx, cfg.Storage, kv)
	if err != nil {
		db.Close()
		return nil, err
	}

	retry := registry.WithRetryPolicy(registry.RetryPolicy{
		MaxAttempts: cfg.Scan.Retry.Attempts,
		BaseDelay:   cfg.Scan.Retry.BaseDelay,
		MaxDelay:    cfg.Scan.Retry.MaxDelay,
	})
	regStore := registry.NewStore(blobs, logger, retry)
	stateStore := registry.NewStateStore(blobs, logger, retry)
	archiveStore := registry.NewArchiveStore(blobs, cfg.Scan.ArchiveCap, logger, retry)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), logger)
	projectSvc := project.NewService(regStore, activitySvc, logger)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := scan.Deps{
		Registry: regStore,
		State:    stateStore,
		Archive:  archiveStore,
		Repos: github.NewClient(github.Config{
			BaseURL: cfg.GitHub.APIBase,
			Token:   cfg.GitHub.Token,
			RPS:     cfg.GitHub.RPS,
			Burst:   cfg.GitHub.Burst,
			Timeout: cfg.GitHub.Timeout,
		}, logger),
		Audit:   activitySvc,
		Metrics: scan.NewMetrics(metrics),
		Logger:  logger,
	}
	// A nil *feed.Client must not reach the interface field.
	if cfg.Feed.URL != "" {
		deps.Feed = feed.NewClient(feed.Config{
			URL:   cfg.Feed.URL,
			Token: cfg.Feed.Token,
			Limit: cfg.Feed.Limit,
		}, logger)
	} else {
		logger.Info("feed url not set, mention counting disabled")
	}

	var verifier identity.Verifier
	if cfg.Auth.IdentityURL != "" {
		verifier = identity.NewCachedVerifier(
			identity.NewHTTPVerifier(cfg.Auth.IdentityURL, cfg.Auth.Timeout),
			kv, cfg.Auth.CacheTTL, logger,
		)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		DB:       db,
		KV:       kv,
		Registry: regStore,
		Projects: projectSvc,
		Activity: activitySvc,
		Verifier: verifier,
		Scanner:  scan.New(ScanConfig(cfg.Scan), deps),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// ScanConfig converts the scan section into orchestrator settings.
func ScanConfig(c config.ScanConfig) scan.Config {
	policy := func(cc config.CooldownConfig) scan.Policy {
		return scan.Policy{Interval: cc.Interval, BackoffAfter: cc.BackoffAfter, BackoffInterval: cc.BackoffInterval}
	}
	return scan.Config{
		Contributors:      policy(c.Contributors),
		Events:            policy(c.Events),
		Website:           policy(c.Website),
		NotFoundThreshold: c.NotFoundThreshold,
		ProcessedLimit:    c.ProcessedCap,
		BackfillLimit:     c.BackfillLimit,
		SelfDomain:        c.SelfDomain,
		Reserve:           c.Reserve,
	}
}

// MCPServer builds the interactive tool surface.
func (a *App) MCPServer(version string) *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Projects: a.Projects,
			Activity: a.Activity,
		},
		Verifier:      a.Verifier,
		AuthEnabled:   a.Config.Auth.Enabled,
		TransportMode: a.Config.Transport.Mode,
		Version:       version,
		Logger:        a.Logger,
	})
}

// MigrateRegistry rewrites the stored registry at the current schema version.
func (a *App) MigrateRegistry(ctx context.Context) (int, registry.SaveResult) {
	reg, res := a.Registry.Update(ctx, "migrate", nil, func(*project.Registry) bool { return true })
	if reg == nil {
		return 0, res
	}
	return reg.SchemaVersion, res
}

func blobStore(ctx context.Context, cfg config.StorageConfig, kv *sqlite.KVStore) (repository.BlobStore, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return kv, nil
	case "s3":
		client, err := s3store.NewClient(ctx, s3store.Config{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		return s3store.New(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewLogger builds the text logger used by every entry point.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLogLevel(level),
	}))
}

// ParseLogLevel maps a config level name to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeCache drops expired identity cache rows.
func (a *App) PurgeCache(ctx context.Context) {
	n, err := a.KV.PurgeExpired(ctx)
	if err != nil {
		a.Logger.Warn("purging expired cache rows", "error", err)
		return
	}
	if n > 0 {
		a.Logger.Debug("purged expired cache rows", "rows", n)
	}
}
