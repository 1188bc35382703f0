// Package archive persists finished analyses so the UI and the digest CLI
// can serve them without re-running the pipeline. Disk is the primary
// backend; S3 and Postgres attach as best-effort mirrors when configured.
package archive

import (
	"context"
	"errors"
	"log"
	"time"

	"threadlens/internal/config"
	"threadlens/internal/hn"
	"threadlens/internal/types"
)

var ErrNotFound = errors.New("archive: not found")

// StoredSummary is the dump format for one story: the analysis result plus
// provenance metadata, matching what the static UI reads.
type StoredSummary struct {
	GeneratedAt string `json:"generated_at"`
	Source      string `json:"source,omitempty"`
	StoryID     string `json:"story_id"`

	Story *types.Story `json:"story,omitempty"`
	types.AnalysisResult
}

// StoredTopStories is the dump format for the front-page listing.
type StoredTopStories struct {
	GeneratedAt string        `json:"generated_at"`
	Source      string        `json:"source,omitempty"`
	Data        []hn.TopStory `json:"data"`
}

// Store is the persistence surface for dumps. Load methods return
// ErrNotFound when nothing has been stored for the story.
type Store interface {
	SaveSummary(ctx context.Context, s *StoredSummary) error
	LoadSummary(ctx context.Context, storyID string) (*StoredSummary, error)
	SaveTopStories(ctx context.Context, ts *StoredTopStories) error
	LoadTopStories(ctx context.Context) (*StoredTopStories, error)
	ListStoryIDs(ctx context.Context) ([]string, error)
	DeleteStory(ctx context.Context, storyID string) error
}

// NewFromEnv assembles the configured store stack: disk always, S3 and
// Postgres when their settings are present. Mirror setup failures are logged
// and skipped so a missing bucket never takes the service down.
func NewFromEnv(cfg config.ArchiveConfig, logger *log.Logger) (Store, error) {
	disk, err := NewDiskStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	multi := &Multi{primary: disk, logger: logger}

	if cfg.S3Endpoint != "" {
		s3, err := NewS3Store(S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			if logger != nil {
				logger.Printf("archive: s3 mirror disabled: %v", err)
			}
		} else {
			multi.mirrors = append(multi.mirrors, s3)
		}
	}

	if cfg.PostgresDSN != "" {
		pg, err := NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			if logger != nil {
				logger.Printf("archive: postgres mirror disabled: %v", err)
			}
		} else {
			multi.mirrors = append(multi.mirrors, pg)
		}
	}

	if len(multi.mirrors) == 0 {
		return disk, nil
	}
	return multi, nil
}

// Multi fans writes out to every backend and reads from the primary first.
type Multi struct {
	primary Store
	mirrors []Store
	logger  *log.Logger
}

func (m *Multi) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func (m *Multi) SaveSummary(ctx context.Context, s *StoredSummary) error {
	if err := m.primary.SaveSummary(ctx, s); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.SaveSummary(ctx, s); err != nil {
			m.logf("archive: mirror save summary %s: %v", s.StoryID, err)
		}
	}
	return nil
}

func (m *Multi) LoadSummary(ctx context.Context, storyID string) (*StoredSummary, error) {
	s, err := m.primary.LoadSummary(ctx, storyID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, mirror := range m.mirrors {
		if s, merr := mirror.LoadSummary(ctx, storyID); merr == nil {
			return s, nil
		}
	}
	return nil, err
}

func (m *Multi) SaveTopStories(ctx context.Context, ts *StoredTopStories) error {
	if err := m.primary.SaveTopStories(ctx, ts); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.SaveTopStories(ctx, ts); err != nil {
			m.logf("archive: mirror save top stories: %v", err)
		}
	}
	return nil
}

func (m *Multi) LoadTopStories(ctx context.Context) (*StoredTopStories, error) {
	ts, err := m.primary.LoadTopStories(ctx)
	if err == nil {
		return ts, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, mirror := range m.mirrors {
		if ts, merr := mirror.LoadTopStories(ctx); merr == nil {
			return ts, nil
		}
	}
	return nil, err
}

func (m *Multi) ListStoryIDs(ctx context.Context) ([]string, error) {
	return m.primary.ListStoryIDs(ctx)
}

func (m *Multi) DeleteStory(ctx context.Context, storyID string) error {
	err := m.primary.DeleteStory(ctx, storyID)
	for _, mirror := range m.mirrors {
		if merr := mirror.DeleteStory(ctx, storyID); merr != nil && !errors.Is(merr, ErrNotFound) {
			m.logf("archive: mirror delete %s: %v", storyID, merr)
		}
	}
	return err
}

// CleanupStale removes archived stories that are absent from the current
// front page.
func CleanupStale(ctx context.Context, store Store, currentIDs []string, logger *log.Logger) ([]string, error) {
	keep := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		keep[id] = struct{}{}
	}
	existing, err := store.ListStoryIDs(ctx)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0)
	for _, id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if err := store.DeleteStory(ctx, id); err != nil {
			if logger != nil {
				logger.Printf("archive: cleanup %s: %v", id, err)
			}
			continue
		}
		removed = append(removed, id)
	}
	return removed, nil
}

// CleanupExpired removes archived stories whose dump is older than ttl.
// Dumps that cannot be loaded or carry an unparseable timestamp are left in
// place rather than silently destroyed.
func CleanupExpired(ctx context.Context, store Store, ttl time.Duration, now time.Time, logger *log.Logger) ([]string, error) {
	if ttl <= 0 {
		return nil, nil
	}
	existing, err := store.ListStoryIDs(ctx)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0)
	for _, id := range existing {
		s, err := store.LoadSummary(ctx, id)
		if err != nil {
			continue
		}
		generated, err := time.Parse(time.RFC3339, s.GeneratedAt)
		if err != nil {
			continue
		}
		if now.Sub(generated) <= ttl {
			continue
		}
		if err := store.DeleteStory(ctx, id); err != nil {
			if logger != nil {
				logger.Printf("archive: expire %s: %v", id, err)
			}
			continue
		}
		removed = append(removed, id)
	}
	return removed, nil
}
