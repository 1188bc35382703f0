package hn

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"threadlens/internal/types"
)

// indentPixelsPerLevel is how HN encodes comment depth: the indent cell
// holds a spacer image whose width is depth * 40.
const indentPixelsPerLevel = 40

func parseComments(doc *goquery.Document, opts CommentOptions) []types.Comment {
	comments := make([]types.Comment, 0, 64)
	doc.Find("tr.athing.comtr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		c := parseCommentRow(row)
		if c == nil {
			return true
		}
		if opts.MaxDepth >= 0 && c.Depth > opts.MaxDepth {
			return true
		}
		comments = append(comments, *c)
		return opts.Limit <= 0 || len(comments) < opts.Limit
	})
	return comments
}

func parseCommentRow(row *goquery.Selection) *types.Comment {
	id, ok := row.Attr("id")
	if !ok || id == "" {
		return nil
	}

	c := &types.Comment{
		ID:       id,
		Author:   strings.TrimSpace(row.Find("a.hnuser").First().Text()),
		ParentID: parentID(row),
		Depth:    commentDepth(row),
	}

	age := row.Find("span.age").First()
	c.Age = strings.TrimSpace(age.Text())
	if ts, ok := parseAgeTimestamp(age.AttrOr("title", ""), c.Age); ok {
		c.Timestamp = ts
	}

	// missing commtext means the comment is deleted or dead
	if text := row.Find(".commtext").First(); text.Length() > 0 {
		c.Text = normalizeSpace(text.Text())
	}
	return c
}

func commentDepth(row *goquery.Selection) int {
	width := row.Find("td.ind img").First().AttrOr("width", "0")
	px, err := strconv.Atoi(strings.TrimSpace(width))
	if err != nil || px < 0 {
		return 0
	}
	return px / indentPixelsPerLevel
}

func parentID(row *goquery.Selection) string {
	id := ""
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(a.Text()), "parent") {
			if href, ok := a.Attr("href"); ok {
				if i := strings.LastIndex(href, "item?id="); i >= 0 {
					id = href[i+len("item?id="):]
				}
			}
			return false
		}
		return true
	})
	return id
}

func parseStoryDetails(doc *goquery.Document, storyID string) *types.Story {
	story := &types.Story{ID: storyID}

	link := doc.Find("span.titleline a").First()
	story.Title = strings.TrimSpace(link.Text())
	story.URL = link.AttrOr("href", "")

	subtext := doc.Find("td.subtext").First()
	if scoreText := subtext.Find("span.score").First().Text(); scoreText != "" {
		if fields := strings.Fields(scoreText); len(fields) > 0 {
			story.Score, _ = strconv.Atoi(fields[0])
		}
	}
	story.User = strings.TrimSpace(subtext.Find("a.hnuser").First().Text())

	age := subtext.Find("span.age").First()
	story.Age = strings.TrimSpace(age.Text())
	if ts, ok := parseAgeTimestamp(age.AttrOr("title", ""), story.Age); ok {
		story.Timestamp = ts
	}
	return story
}

func parseTopStories(doc *goquery.Document) []TopStory {
	stories := make([]TopStory, 0, 30)
	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		id, ok := row.Attr("id")
		if !ok || id == "" {
			return
		}
		link := row.Find("span.titleline a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		story := TopStory{
			ID:    id,
			Title: title,
			URL:   link.AttrOr("href", ""),
		}

		// the subtext line lives in the sibling row
		subtext := row.Next().Find("td.subtext").First()
		if scoreText := subtext.Find("span.score").First().Text(); scoreText != "" {
			if fields := strings.Fields(scoreText); len(fields) > 0 {
				story.Score, _ = strconv.Atoi(fields[0])
			}
		}
		story.User = strings.TrimSpace(subtext.Find("a.hnuser").First().Text())
		story.Comments = commentCount(subtext)

		stories = append(stories, story)
	})
	return stories
}

// commentCount reads the trailing "N comments" link; "discuss" means zero.
func commentCount(subtext *goquery.Selection) int {
	count := 0
	subtext.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		if !strings.HasSuffix(text, "comments") && !strings.HasSuffix(text, "comment") {
			return
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return
		}
		if n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", "")); err == nil {
			count = n
		}
	})
	return count
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
