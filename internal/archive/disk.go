package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"threadlens/internal/util/jsonutil"
)

// DiskStore lays files out the way the static UI expects:
//
//	<root>/top-stories.json
//	<root>/stories/<id>/comments/summary.json
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("archive: empty data dir")
	}
	if err := os.MkdirAll(filepath.Join(root, "stories"), 0o755); err != nil {
		return nil, fmt.Errorf("archive: create data dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) summaryPath(storyID string) (string, error) {
	if err := validateStoryID(storyID); err != nil {
		return "", err
	}
	return filepath.Join(d.root, "stories", storyID, "comments", "summary.json"), nil
}

func (d *DiskStore) SaveSummary(_ context.Context, s *StoredSummary) error {
	path, err := d.summaryPath(s.StoryID)
	if err != nil {
		return err
	}
	data, err := jsonutil.MarshalNoEscapeIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode summary %s: %w", s.StoryID, err)
	}
	return atomicWrite(path, data)
}

func (d *DiskStore) LoadSummary(_ context.Context, storyID string) (*StoredSummary, error) {
	path, err := d.summaryPath(storyID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var s StoredSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("archive: decode summary %s: %w", storyID, err)
	}
	return &s, nil
}

func (d *DiskStore) SaveTopStories(_ context.Context, ts *StoredTopStories) error {
	data, err := jsonutil.MarshalNoEscapeIndent(ts, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: encode top stories: %w", err)
	}
	return atomicWrite(filepath.Join(d.root, "top-stories.json"), data)
}

func (d *DiskStore) LoadTopStories(_ context.Context) (*StoredTopStories, error) {
	data, err := os.ReadFile(filepath.Join(d.root, "top-stories.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var ts StoredTopStories
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("archive: decode top stories: %w", err)
	}
	return &ts, nil
}

func (d *DiskStore) ListStoryIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, "stories"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && isDigits(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *DiskStore) DeleteStory(_ context.Context, storyID string) error {
	if err := validateStoryID(storyID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(d.root, "stories", storyID))
}

// atomicWrite goes through a temp file and rename so readers never observe a
// partially written dump.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func validateStoryID(storyID string) error {
	if storyID == "" || strings.ContainsAny(storyID, `/\.`) {
		return fmt.Errorf("archive: invalid story id %q", storyID)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
