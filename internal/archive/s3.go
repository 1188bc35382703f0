package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"threadlens/internal/util/jsonutil"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store mirrors dumps into an S3-compatible bucket using the same key
// layout as the disk store.
type S3Store struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func summaryKey(storyID string) string {
	return "stories/" + storyID + "/comments/summary.json"
}

const topStoriesKey = "top-stories.json"

func (s *S3Store) putJSON(ctx context.Context, key string, v any) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	data, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (s *S3Store) getJSON(ctx context.Context, key string, v any) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *S3Store) SaveSummary(ctx context.Context, sum *StoredSummary) error {
	if err := validateStoryID(sum.StoryID); err != nil {
		return err
	}
	return s.putJSON(ctx, summaryKey(sum.StoryID), sum)
}

func (s *S3Store) LoadSummary(ctx context.Context, storyID string) (*StoredSummary, error) {
	if err := validateStoryID(storyID); err != nil {
		return nil, err
	}
	var sum StoredSummary
	if err := s.getJSON(ctx, summaryKey(storyID), &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *S3Store) SaveTopStories(ctx context.Context, ts *StoredTopStories) error {
	return s.putJSON(ctx, topStoriesKey, ts)
}

func (s *S3Store) LoadTopStories(ctx context.Context) (*StoredTopStories, error) {
	var ts StoredTopStories
	if err := s.getJSON(ctx, topStoriesKey, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *S3Store) ListStoryIDs(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	ids := make([]string, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    "stories/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		parts := strings.Split(obj.Key, "/")
		if len(parts) >= 2 && isDigits(parts[1]) {
			ids = append(ids, parts[1])
		}
	}
	sort.Strings(ids)
	return dedupe(ids), nil
}

func (s *S3Store) DeleteStory(ctx context.Context, storyID string) error {
	if err := validateStoryID(storyID); err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := "stories/" + storyID + "/"
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
