// Command digest refreshes the archive: it scrapes the front page, runs the
// analysis pipeline for each story and dumps the results, then optionally
// removes stories that dropped off the front page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"threadlens/internal/archive"
	"threadlens/internal/cache/result"
	"threadlens/internal/config"
	"threadlens/internal/hn"
	"threadlens/internal/service"
)

func main() {
	var (
		force    = flag.Bool("force", false, "re-analyze stories that already have a dump")
		limit    = flag.Int("limit", 0, "max number of stories to process (0 = all)")
		ids      = flag.String("ids", "", "comma-separated story ids to process instead of the front page")
		delay    = flag.Duration("delay", 500*time.Millisecond, "pause between stories")
		maxDepth = flag.Int("max-depth", 1, "max comment depth to scrape")
		comments = flag.Int("comments", 40, "max comments per story (0 = all)")
		cleanup  = flag.Bool("cleanup", false, "remove archived stories no longer on the front page")
		dryRun   = flag.Bool("dry-run", false, "with -cleanup, only report what would be removed")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "digest: ", log.LstdFlags)
	if err := run(context.Background(), logger, options{
		force:    *force,
		limit:    *limit,
		ids:      splitIDs(*ids),
		delay:    *delay,
		maxDepth: *maxDepth,
		comments: *comments,
		cleanup:  *cleanup,
		dryRun:   *dryRun,
	}); err != nil {
		logger.Fatal(err)
	}
}

type options struct {
	force    bool
	limit    int
	ids      []string
	delay    time.Duration
	maxDepth int
	comments int
	cleanup  bool
	dryRun   bool
}

func run(ctx context.Context, logger *log.Logger, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	embedder, completer, err := service.BuildClients(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init llm clients: %w", err)
	}
	defer embedder.Close()
	defer completer.Close()

	store, err := archive.NewFromEnv(cfg.Archive, logger)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}

	scraper := hn.NewClient(os.Getenv("HN_BASE_URL"))
	scraper.SetLogger(logger)

	svc := &service.Service{
		HN:         scraper,
		Embedder:   embedder,
		Completer:  completer,
		BaseConfig: cfg.Engine,
		Cache:      result.New(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLMinutes)*time.Minute),
		Archive:    store,
		Logger:     logger,
	}

	storyIDs := opts.ids
	var currentIDs []string
	if len(storyIDs) == 0 {
		top, err := svc.TopStories(ctx)
		if err != nil {
			return fmt.Errorf("fetch top stories: %w", err)
		}
		for _, story := range top.Data {
			storyIDs = append(storyIDs, story.ID)
		}
		currentIDs = storyIDs
		logger.Printf("front page has %d stories", len(storyIDs))
	}
	if opts.limit > 0 && len(storyIDs) > opts.limit {
		storyIDs = storyIDs[:opts.limit]
	}

	var succeeded, failed, skipped int
	for i, id := range storyIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Printf("[%d/%d] story %s", i+1, len(storyIDs), id)

		if !opts.force {
			if _, err := store.LoadSummary(ctx, id); err == nil {
				logger.Printf("  skipped (dump exists, use -force to overwrite)")
				skipped++
				continue
			}
		}

		req := service.StoryRequest{StoryID: id, Refresh: opts.force}
		req.MaxDepth = &opts.maxDepth
		if opts.comments > 0 {
			req.Limit = &opts.comments
		}
		if _, _, err := svc.AnalyzeStory(ctx, req); err != nil {
			logger.Printf("  failed: %v", err)
			failed++
		} else {
			logger.Printf("  done")
			succeeded++
		}

		if i < len(storyIDs)-1 && opts.delay > 0 {
			time.Sleep(opts.delay)
		}
	}
	logger.Printf("summary: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped)

	if opts.cleanup {
		if len(currentIDs) == 0 {
			return errors.New("cleanup requires the front-page listing; drop -ids")
		}
		if opts.dryRun {
			reportStale(ctx, logger, store, currentIDs)
		} else {
			removed, err := archive.CleanupStale(ctx, store, currentIDs, logger)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			logger.Printf("cleanup removed %d stale stories", len(removed))
		}
	}

	if ttl := time.Duration(cfg.Archive.TTLHours) * time.Hour; ttl > 0 && !opts.dryRun {
		expired, err := archive.CleanupExpired(ctx, store, ttl, time.Now().UTC(), logger)
		if err != nil {
			return fmt.Errorf("ttl cleanup: %w", err)
		}
		if len(expired) > 0 {
			logger.Printf("ttl cleanup removed %d expired stories", len(expired))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d stories failed", failed)
	}
	return nil
}

func reportStale(ctx context.Context, logger *log.Logger, store archive.Store, currentIDs []string) {
	keep := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		keep[id] = struct{}{}
	}
	existing, err := store.ListStoryIDs(ctx)
	if err != nil {
		logger.Printf("cleanup dry run: %v", err)
		return
	}
	for _, id := range existing {
		if _, ok := keep[id]; !ok {
			logger.Printf("would remove story %s", id)
		}
	}
}

func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
