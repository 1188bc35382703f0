package hn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const itemPageHTML = `<html><body><table>
<tr class="athing" id="100">
  <td><span class="titleline"><a href="https://example.com/post">Big Launch</a></span></td>
</tr>
<tr><td class="subtext">
  <span class="score">321 points</span> by <a class="hnuser">poster</a>
  <span class="age" title="2024-06-25T12:00:00 1719316800"><a>3 hours ago</a></span>
  | <a href="item?id=100">42 comments</a>
</td></tr>
<tr class="athing comtr" id="c1">
  <td class="ind"><img src="s.gif" width="0"></td>
  <td>
    <a class="hnuser">alice</a>
    <span class="age" title="2024-06-25T13:00:00 1719320400"><a>2 hours ago</a></span>
    <a href="item?id=100">parent</a>
    <div class="commtext c00">First   take on the   launch.</div>
  </td>
</tr>
<tr class="athing comtr" id="c2">
  <td class="ind"><img src="s.gif" width="40"></td>
  <td>
    <a class="hnuser">bob</a>
    <span class="age"><a>1 hour ago</a></span>
    <a href="item?id=c1">parent</a>
    <div class="commtext c00">A reply.</div>
  </td>
</tr>
<tr class="athing comtr" id="c3">
  <td class="ind"><img src="s.gif" width="120"></td>
  <td>
    <a class="hnuser">carol</a>
    <span class="age"><a>30 minutes ago</a></span>
    <a href="item?id=c2">parent</a>
    <div class="commtext c00">Deep reply.</div>
  </td>
</tr>
<tr class="athing comtr" id="c4">
  <td class="ind"><img src="s.gif" width="0"></td>
  <td>
    <span class="age"><a>10 minutes ago</a></span>
  </td>
</tr>
</table></body></html>`

const frontPageHTML = `<html><body><table>
<tr class="athing" id="200">
  <td><span class="titleline"><a href="https://example.com/a">Story A</a></span></td>
</tr>
<tr><td class="subtext">
  <span class="score">100 points</span> by <a class="hnuser">ua</a>
  | <a href="item?id=200">57 comments</a>
</td></tr>
<tr class="athing" id="201">
  <td><span class="titleline"><a href="https://example.com/b">Story B</a></span></td>
</tr>
<tr><td class="subtext">
  <span class="score">5 points</span> by <a class="hnuser">ub</a>
  | <a href="item?id=201">discuss</a>
</td></tr>
</table></body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestParseComments(t *testing.T) {
	doc := docFrom(t, itemPageHTML)
	comments := parseComments(doc, CommentOptions{MaxDepth: -1})
	if len(comments) != 4 {
		t.Fatalf("len = %d, want 4", len(comments))
	}

	first := comments[0]
	if first.ID != "c1" || first.Author != "alice" || first.Depth != 0 {
		t.Fatalf("first = %+v", first)
	}
	if first.Text != "First take on the launch." {
		t.Fatalf("whitespace not normalized: %q", first.Text)
	}
	if first.ParentID != "100" {
		t.Fatalf("parent = %q", first.ParentID)
	}
	if first.Timestamp != "2024-06-25T13:00:00Z" {
		t.Fatalf("timestamp = %q", first.Timestamp)
	}

	if comments[1].Depth != 1 || comments[2].Depth != 3 {
		t.Fatalf("depths = %d/%d", comments[1].Depth, comments[2].Depth)
	}
	// deleted comment keeps its place with empty text
	if comments[3].ID != "c4" || comments[3].Text != "" {
		t.Fatalf("deleted = %+v", comments[3])
	}
}

func TestParseCommentsDepthAndLimit(t *testing.T) {
	doc := docFrom(t, itemPageHTML)

	shallow := parseComments(doc, CommentOptions{MaxDepth: 1})
	for _, c := range shallow {
		if c.Depth > 1 {
			t.Fatalf("depth %d leaked through cap", c.Depth)
		}
	}
	if len(shallow) != 3 {
		t.Fatalf("capped len = %d, want 3", len(shallow))
	}

	limited := parseComments(doc, CommentOptions{MaxDepth: -1, Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("limited len = %d, want 2", len(limited))
	}
}

func TestParseStoryDetails(t *testing.T) {
	doc := docFrom(t, itemPageHTML)
	story := parseStoryDetails(doc, "100")
	if story.Title != "Big Launch" || story.URL != "https://example.com/post" {
		t.Fatalf("story = %+v", story)
	}
	if story.Score != 321 || story.User != "poster" {
		t.Fatalf("subtext = %+v", story)
	}
	if story.Timestamp != "2024-06-25T12:00:00Z" {
		t.Fatalf("timestamp = %q", story.Timestamp)
	}
}

func TestParseTopStories(t *testing.T) {
	doc := docFrom(t, frontPageHTML)
	stories := parseTopStories(doc)
	if len(stories) != 2 {
		t.Fatalf("len = %d, want 2", len(stories))
	}
	a := stories[0]
	if a.ID != "200" || a.Title != "Story A" || a.Score != 100 || a.User != "ua" || a.Comments != 57 {
		t.Fatalf("story a = %+v", a)
	}
	if stories[1].Comments != 0 {
		t.Fatalf("discuss story comments = %d, want 0", stories[1].Comments)
	}
}

func TestClientStoryComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item" || r.URL.Query().Get("id") != "100" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(itemPageHTML))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	comments, err := client.StoryComments(context.Background(), "100", CommentOptions{MaxDepth: -1})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(comments) != 4 {
		t.Fatalf("len = %d, want 4", len(comments))
	}

	// the default depth cap drops the depth-3 reply
	capped, err := client.StoryComments(context.Background(), "100", DefaultCommentOptions())
	if err != nil {
		t.Fatalf("fetch capped: %v", err)
	}
	if len(capped) != 3 {
		t.Fatalf("capped len = %d, want 3", len(capped))
	}
}

func TestClientFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.TopStories(context.Background()); err == nil {
		t.Fatalf("expected error on 503")
	}
}

func TestParseRelativeAge(t *testing.T) {
	now := time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  string
		want string
	}{
		{"3 hours ago", "2024-06-25T09:00:00Z"},
		{"1 minute ago", "2024-06-25T11:59:00Z"},
		{"2 days ago", "2024-06-23T12:00:00Z"},
	}
	for _, tc := range cases {
		got, ok := parseRelativeAge(tc.age, now)
		if !ok || got != tc.want {
			t.Fatalf("parseRelativeAge(%q) = %q/%v, want %q", tc.age, got, ok, tc.want)
		}
	}
	for _, bad := range []string{"", "yesterday", "soon", "x hours ago"} {
		if _, ok := parseRelativeAge(bad, now); ok {
			t.Fatalf("parseRelativeAge(%q) accepted", bad)
		}
	}
}
