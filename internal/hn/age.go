package hn

import (
	"strconv"
	"strings"
	"time"
)

// parseAgeTimestamp resolves a comment's creation time. The age span's title
// attribute usually carries "2024-06-25T12:00:00 1719316800"; when it is
// missing the relative age text ("3 hours ago") is interpreted against the
// current clock.
func parseAgeTimestamp(title, ageText string) (string, bool) {
	if ts, ok := parseAgeTitle(title); ok {
		return ts, true
	}
	if ts, ok := parseRelativeAge(ageText, time.Now().UTC()); ok {
		return ts, true
	}
	return "", false
}

func parseAgeTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}
	for _, field := range strings.Fields(title) {
		if unix, err := strconv.ParseInt(field, 10, 64); err == nil && unix > 0 {
			return time.Unix(unix, 0).UTC().Format(time.RFC3339), true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", field); err == nil {
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return "", false
}

// parseRelativeAge turns "N unit(s) ago" into an absolute RFC 3339 time.
func parseRelativeAge(age string, now time.Time) (string, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(age)))
	if len(fields) < 3 || fields[len(fields)-1] != "ago" {
		return "", false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return "", false
	}

	var d time.Duration
	switch strings.TrimSuffix(fields[1], "s") {
	case "minute":
		d = time.Duration(n) * time.Minute
	case "hour":
		d = time.Duration(n) * time.Hour
	case "day":
		d = time.Duration(n) * 24 * time.Hour
	case "month":
		d = time.Duration(n) * 30 * 24 * time.Hour
	case "year":
		d = time.Duration(n) * 365 * 24 * time.Hour
	default:
		return "", false
	}
	return now.Add(-d).Format(time.RFC3339), true
}
