package registry

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Blob keys of the documents kept in the blob store.
const (
	RegistryKey  = "registry"
	ScanStateKey = "scan-state"
	ArchiveKey   = "message-archive"
)

const tracerName = "github.com/ganot/forge-registry/internal/registry"

// Option configures a store.
type Option func(*options)

type options struct {
	key    string
	retry  RetryPolicy
	now    func() time.Time
	tracer trace.Tracer
}

// WithRetryPolicy overrides the retrying save policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithClock overrides the clock used by migrations.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(defaultKey string, opts []Option) options {
	o := options{
		key:    defaultKey,
		retry:  DefaultRetryPolicy(),
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func discardIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

// Store is the versioned store for the project registry.
type Store struct {
	doc    document[project.Registry]
	opts   options
	logger *slog.Logger
}

// NewStore creates a registry store on top of a blob store.
func NewStore(blobs repository.BlobStore, logger *slog.Logger, opts ...Option) *Store {
	o := buildOptions(RegistryKey, opts)
	return &Store{
		doc:    document[project.Registry]{blobs: blobs, key: o.key},
		opts:   o,
		logger: discardIfNil(logger),
	}
}

// Load reads the registry, upgrading it to the current schema version.
func (s *Store) Load(ctx context.Context) (*project.Registry, error) {
	reg, version, err := s.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	if reg.Projects == nil {
		reg.Projects = []*project.Project{}
	}
	if applied := Migrate(reg, s.opts.now()); applied > 0 && version > 0 {
		s.logger.Debug("migrated registry", "steps", applied, "schema_version", reg.SchemaVersion)
	}
	reg.Version = version
	return reg, nil
}

// Save persists reg if nothing was written since it was loaded. It returns
// an error wrapping ErrConcurrencyConflict otherwise.
func (s *Store) Save(ctx context.Context, reg *project.Registry) error {
	ctx, span := s.opts.tracer.Start(ctx, "registry.save",
		trace.WithAttributes(attribute.String("registry.key", s.doc.key), attribute.Int64("registry.version", reg.Version)))
	defer span.End()

	if reg.SchemaVersion < CurrentSchemaVersion() {
		Migrate(reg, s.opts.now())
	}
	next, err := s.doc.save(ctx, reg, reg.Version)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return err
	}
	reg.Version = next
	return nil
}

// Update applies delta to base and saves it, re-loading and re-applying on
// conflicts. A nil base is loaded first. The returned registry is the one
// the final attempt operated on.
func (s *Store) Update(ctx context.Context, task string, base *project.Registry, delta func(*project.Registry) bool) (*project.Registry, SaveResult) {
	return retrySave(ctx, s.logger, s.opts.retry, task, base, s.Load, s.Save, delta)
}
