// Package hn scrapes Hacker News story pages: front-page listings, item
// details and threaded comments.
package hn

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"threadlens/internal/types"
)

const DefaultBaseURL = "https://news.ycombinator.com"

// TopStory is one front-page entry. Comments is the count shown in the
// subtext line, not the comment bodies.
type TopStory struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Score    int    `json:"score"`
	User     string `json:"user"`
	Comments int    `json:"comments"`
}

// CommentOptions bounds a comment fetch. MaxDepth < 0 means unlimited;
// Limit <= 0 means unlimited.
type CommentOptions struct {
	MaxDepth int
	Limit    int
}

// DefaultCommentOptions matches the depth cap the item pages are usually
// read with.
func DefaultCommentOptions() CommentOptions {
	return CommentOptions{MaxDepth: 2, Limit: 0}
}

type Client struct {
	http    *http.Client
	baseURL string
	logger  *log.Logger
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: 20 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetLogger attaches an optional request logger.
func (c *Client) SetLogger(l *log.Logger) { c.logger = l }

func (c *Client) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Client) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// TopStories scrapes the front page.
func (c *Client) TopStories(ctx context.Context) ([]TopStory, error) {
	doc, err := c.fetch(ctx, c.baseURL+"/")
	if err != nil {
		return nil, err
	}
	stories := parseTopStories(doc)
	c.logf("scraped %d front-page stories", len(stories))
	return stories, nil
}

// StoryDetails scrapes the item page header for one story.
func (c *Client) StoryDetails(ctx context.Context, storyID string) (*types.Story, error) {
	doc, err := c.fetch(ctx, c.itemURL(storyID))
	if err != nil {
		return nil, err
	}
	story := parseStoryDetails(doc, storyID)
	if story.Title == "" {
		return nil, fmt.Errorf("story %s: no title found", storyID)
	}
	return story, nil
}

// StoryComments scrapes the comment rows of an item page in display order.
func (c *Client) StoryComments(ctx context.Context, storyID string, opts CommentOptions) ([]types.Comment, error) {
	doc, err := c.fetch(ctx, c.itemURL(storyID))
	if err != nil {
		return nil, err
	}
	comments := parseComments(doc, opts)
	c.logf("scraped %d comments for story %s", len(comments), storyID)
	return comments, nil
}

func (c *Client) itemURL(storyID string) string {
	return fmt.Sprintf("%s/item?id=%s", c.baseURL, storyID)
}
