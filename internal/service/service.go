// Package service is the application layer: it drives scrape, analyze,
// cache and archive for both the API server and the digest CLI.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"threadlens/internal/analysis"
	"threadlens/internal/archive"
	"threadlens/internal/cache/result"
	"threadlens/internal/hn"
	"threadlens/internal/llm"
	"threadlens/internal/types"
)

// Scraper is the slice of the HN client the service needs; tests substitute
// a fake.
type Scraper interface {
	TopStories(ctx context.Context) ([]hn.TopStory, error)
	StoryDetails(ctx context.Context, storyID string) (*types.Story, error)
	StoryComments(ctx context.Context, storyID string, opts hn.CommentOptions) ([]types.Comment, error)
}

type Service struct {
	HN         Scraper
	Embedder   llm.Embedder
	Completer  llm.Completer
	BaseConfig analysis.Config
	Cache      *result.Cache
	Archive    archive.Store
	Logger     *log.Logger

	// Source is recorded in dump provenance, e.g. the public API base URL.
	Source string

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// StoryRequest shapes one story analysis. Zero values fall back to the
// service defaults; explicit request values win over environment config.
type StoryRequest struct {
	StoryID  string
	MaxDepth *int
	Limit    *int

	TopK               *int
	MMRLambda          *float64
	MaxSummaryComments *int
	Weights            *analysis.Weights
	IncludeAll         bool
	Refresh            bool

	StageFunc func(analysis.Stage)
}

func (s *Service) resolveConfig(req StoryRequest) analysis.Config {
	cfg := s.BaseConfig
	if req.TopK != nil {
		cfg.TopK = *req.TopK
	}
	if req.MMRLambda != nil {
		cfg.MMRLambda = *req.MMRLambda
	}
	if req.MaxSummaryComments != nil {
		cfg.MaxSummaryComments = *req.MaxSummaryComments
	}
	if req.Weights != nil {
		cfg.Weights = *req.Weights
	}
	cfg.IncludeAll = req.IncludeAll
	return cfg
}

func (s *Service) commentOptions(req StoryRequest) hn.CommentOptions {
	opts := hn.DefaultCommentOptions()
	if req.MaxDepth != nil {
		opts.MaxDepth = *req.MaxDepth
	}
	if req.Limit != nil {
		opts.Limit = *req.Limit
	}
	return opts
}

// AnalyzeThread runs the pipeline over comments the caller already has, with
// no scraping, caching or archiving. This backs the raw analyze endpoint.
func (s *Service) AnalyzeThread(ctx context.Context, story *types.Story, comments []types.Comment, req StoryRequest) (*types.AnalysisResult, error) {
	cfg := s.resolveConfig(req)
	eng := analysis.New(s.Embedder, s.Completer, cfg)
	eng.Logger = s.Logger
	eng.StageFunc = req.StageFunc
	return eng.Analyze(ctx, story, comments)
}

// AnalyzeStory scrapes a story, runs the pipeline and archives the dump.
// Concurrent calls for the same story and config share one run; the bool
// reports whether the result came from cache.
func (s *Service) AnalyzeStory(ctx context.Context, req StoryRequest) (*archive.StoredSummary, bool, error) {
	if req.StoryID == "" {
		return nil, false, fmt.Errorf("%w: story id required", analysis.ErrInvalidInput)
	}
	cfg := s.resolveConfig(req)
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	key := result.Key(req.StoryID, cfg)
	if req.Refresh {
		s.Cache.Invalidate(key)
	}

	var story *types.Story
	res, hit, err := s.Cache.Do(ctx, key, func() (*types.AnalysisResult, error) {
		var err error
		story, err = s.HN.StoryDetails(ctx, req.StoryID)
		if err != nil {
			s.logf("story %s: details unavailable: %v", req.StoryID, err)
			story = nil
		}
		comments, err := s.HN.StoryComments(ctx, req.StoryID, s.commentOptions(req))
		if err != nil {
			return nil, err
		}

		eng := analysis.New(s.Embedder, s.Completer, cfg)
		eng.Logger = s.Logger
		eng.StageFunc = req.StageFunc
		return eng.Analyze(ctx, story, comments)
	})
	if err != nil {
		return nil, false, err
	}
	if hit {
		if req.StageFunc != nil {
			req.StageFunc(analysis.StageComplete)
		}
		// the archived dump carries the story header the cache does not
		if s.Archive != nil {
			if stored, err := s.Archive.LoadSummary(ctx, req.StoryID); err == nil {
				return stored, true, nil
			}
		}
	}

	stored := &archive.StoredSummary{
		GeneratedAt:    s.clock().Format(time.RFC3339),
		Source:         s.Source,
		StoryID:        req.StoryID,
		Story:          story,
		AnalysisResult: *res,
	}
	if !hit && s.Archive != nil {
		if err := s.Archive.SaveSummary(ctx, stored); err != nil {
			s.logf("story %s: archive failed: %v", req.StoryID, err)
		}
	}
	return stored, hit, nil
}

// TopStories scrapes the front page and archives the listing.
func (s *Service) TopStories(ctx context.Context) (*archive.StoredTopStories, error) {
	stories, err := s.HN.TopStories(ctx)
	if err != nil {
		return nil, err
	}
	stored := &archive.StoredTopStories{
		GeneratedAt: s.clock().Format(time.RFC3339),
		Source:      s.Source,
		Data:        stories,
	}
	if s.Archive != nil {
		if err := s.Archive.SaveTopStories(ctx, stored); err != nil {
			s.logf("top stories: archive failed: %v", err)
		}
	}
	return stored, nil
}

// LoadArchivedSummary serves a previously dumped analysis.
func (s *Service) LoadArchivedSummary(ctx context.Context, storyID string) (*archive.StoredSummary, error) {
	if s.Archive == nil {
		return nil, archive.ErrNotFound
	}
	return s.Archive.LoadSummary(ctx, storyID)
}
