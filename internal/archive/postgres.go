package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"threadlens/internal/util/jsonutil"
)

const pgReadCacheSize = 128

// PostgresStore keeps dumps in two small tables with the JSON payload stored
// whole. A read-through LRU absorbs repeated loads of the same story.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
	readCache  *lru.Cache[string, *StoredSummary]
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	cache, err := lru.New[string, *StoredSummary](pgReadCacheSize)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, readCache: cache}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) ensureSchema(ctx context.Context) error {
	p.schemaOnce.Do(func() {
		_, p.schemaErr = p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS story_summaries (
  story_id TEXT PRIMARY KEY,
  payload JSONB NOT NULL,
  generated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS top_stories (
  id INT PRIMARY KEY DEFAULT 1,
  payload JSONB NOT NULL,
  generated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  CHECK (id = 1)
);
`)
	})
	return p.schemaErr
}

func (p *PostgresStore) SaveSummary(ctx context.Context, s *StoredSummary) error {
	if err := validateStoryID(s.StoryID); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	payload, err := jsonutil.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO story_summaries (story_id, payload, generated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (story_id)
DO UPDATE SET payload = EXCLUDED.payload, generated_at = NOW()`,
		s.StoryID, payload)
	if err == nil {
		p.readCache.Add(s.StoryID, s)
	}
	return err
}

func (p *PostgresStore) LoadSummary(ctx context.Context, storyID string) (*StoredSummary, error) {
	if err := validateStoryID(storyID); err != nil {
		return nil, err
	}
	if s, ok := p.readCache.Get(storyID); ok {
		return s, nil
	}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM story_summaries WHERE story_id = $1`, storyID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s StoredSummary
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("archive: decode summary %s: %w", storyID, err)
	}
	p.readCache.Add(storyID, &s)
	return &s, nil
}

func (p *PostgresStore) SaveTopStories(ctx context.Context, ts *StoredTopStories) error {
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	payload, err := jsonutil.MarshalNoEscape(ts)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO top_stories (id, payload, generated_at)
VALUES (1, $1, NOW())
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, generated_at = NOW()`, payload)
	return err
}

func (p *PostgresStore) LoadTopStories(ctx context.Context) (*StoredTopStories, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM top_stories WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ts StoredTopStories
	if err := json.Unmarshal(payload, &ts); err != nil {
		return nil, fmt.Errorf("archive: decode top stories: %w", err)
	}
	return &ts, nil
}

func (p *PostgresStore) ListStoryIDs(ctx context.Context) ([]string, error) {
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `SELECT story_id FROM story_summaries ORDER BY story_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresStore) DeleteStory(ctx context.Context, storyID string) error {
	if err := validateStoryID(storyID); err != nil {
		return err
	}
	if err := p.ensureSchema(ctx); err != nil {
		return err
	}
	p.readCache.Remove(storyID)
	_, err := p.db.ExecContext(ctx, `DELETE FROM story_summaries WHERE story_id = $1`, storyID)
	return err
}
