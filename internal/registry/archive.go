package registry

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ganot/forge-registry/internal/repository"
)

// DefaultArchiveLimit caps the message archive when no limit is configured.
const DefaultArchiveLimit = 5000

// ArchivedMessage is a feed entry kept for full rescans.
type ArchivedMessage struct {
	Timestamp  int64  `json:"ts"`
	Text       string `json:"text,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
}

// Archive holds previously observed feed entries, newest first.
type Archive struct {
	Messages []ArchivedMessage `json:"messages"`
	Version  int64             `json:"-"`
}

// Add merges msgs into the archive, skipping known timestamps, and trims it
// to limit entries. It returns the number of messages added.
func (a *Archive) Add(msgs []ArchivedMessage, limit int) int {
	if limit <= 0 {
		limit = DefaultArchiveLimit
	}
	seen := make(map[int64]struct{}, len(a.Messages))
	for _, m := range a.Messages {
		seen[m.Timestamp] = struct{}{}
	}
	added := 0
	for _, m := range msgs {
		if _, ok := seen[m.Timestamp]; ok {
			continue
		}
		seen[m.Timestamp] = struct{}{}
		a.Messages = append(a.Messages, m)
		added++
	}
	if added == 0 && len(a.Messages) <= limit {
		return 0
	}
	sort.SliceStable(a.Messages, func(i, j int) bool { return a.Messages[i].Timestamp > a.Messages[j].Timestamp })
	if len(a.Messages) > limit {
		a.Messages = a.Messages[:limit]
	}
	return added
}

// ArchiveStore is the versioned store for the message archive.
type ArchiveStore struct {
	doc    document[Archive]
	opts   options
	logger *slog.Logger
	limit  int
}

// NewArchiveStore creates an archive store capped at limit messages.
func NewArchiveStore(blobs repository.BlobStore, limit int, logger *slog.Logger, opts ...Option) *ArchiveStore {
	o := buildOptions(ArchiveKey, opts)
	return &ArchiveStore{
		doc:    document[Archive]{blobs: blobs, key: o.key},
		opts:   o,
		logger: discardIfNil(logger),
		limit:  limit,
	}
}

// Load reads the archive.
func (s *ArchiveStore) Load(ctx context.Context) (*Archive, error) {
	a, version, err := s.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	a.Version = version
	return a, nil
}

// Save persists a if unchanged since load.
func (s *ArchiveStore) Save(ctx context.Context, a *Archive) error {
	next, err := s.doc.save(ctx, a, a.Version)
	if err != nil {
		return err
	}
	a.Version = next
	return nil
}

// Append adds msgs with the retrying save.
func (s *ArchiveStore) Append(ctx context.Context, msgs []ArchivedMessage) (*Archive, SaveResult) {
	return retrySave(ctx, s.logger, s.opts.retry, "archive", (*Archive)(nil), s.Load, s.Save, func(a *Archive) bool {
		return a.Add(msgs, s.limit) > 0
	})
}
