package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"threadlens/internal/analysis"
	"threadlens/internal/archive"
	"threadlens/internal/hn"
	"threadlens/internal/service"
	"threadlens/internal/types"
	"threadlens/internal/util/jsonutil"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleTopStories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stored, err := s.svc.TopStories(r.Context())
	if err != nil {
		s.log.Printf("top stories: %v", err)
		http.Error(w, "failed to fetch top stories", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handleStory serves /api/stories/{id}/comments and
// /api/stories/{id}/comments/summary.
func (s *server) handleStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/stories/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] != "comments" {
		http.NotFound(w, r)
		return
	}
	storyID := parts[0]

	switch {
	case len(parts) == 2:
		s.serveComments(w, r, storyID)
	case len(parts) == 3 && parts[2] == "summary":
		s.serveSummary(w, r, storyID)
	default:
		http.NotFound(w, r)
	}
}

func (s *server) serveComments(w http.ResponseWriter, r *http.Request, storyID string) {
	comments, err := s.svc.HN.StoryComments(r.Context(), storyID, commentOptionsFromQuery(r))
	if err != nil {
		s.log.Printf("comments %s: %v", storyID, err)
		http.Error(w, "failed to fetch comments", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *server) serveSummary(w http.ResponseWriter, r *http.Request, storyID string) {
	req := storyRequestFromQuery(r)
	req.StoryID = storyID

	stored, _, err := s.svc.AnalyzeStory(r.Context(), req)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// analyzeRequest is the raw-thread analysis payload: the caller supplies the
// comments directly instead of naming a story to scrape.
type analyzeRequest struct {
	Story       *types.Story      `json:"story,omitempty"`
	Comments    []types.Comment   `json:"comments"`
	TopK        *int              `json:"topk,omitempty"`
	Lambda      *float64          `json:"mmr_lambda,omitempty"`
	MaxComments *int              `json:"max_summary_comments,omitempty"`
	Weights     *analysis.Weights `json:"weights,omitempty"`
	All         bool              `json:"include_all,omitempty"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	res, err := s.svc.AnalyzeThread(r.Context(), in.Story, in.Comments, service.StoryRequest{
		TopK:               in.TopK,
		MMRLambda:          in.Lambda,
		MaxSummaryComments: in.MaxComments,
		Weights:            in.Weights,
		IncludeAll:         in.All,
	})
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput), errors.Is(err, analysis.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, analysis.ErrCancelled):
		http.Error(w, err.Error(), http.StatusRequestTimeout)
	case errors.Is(err, archive.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Printf("analysis failed: %v", err)
		http.Error(w, "analysis failed", http.StatusBadGateway)
	}
}

func storyRequestFromQuery(r *http.Request) service.StoryRequest {
	q := r.URL.Query()
	req := service.StoryRequest{
		IncludeAll: queryBool(q.Get("include_all")),
		Refresh:    queryBool(q.Get("refresh")),
	}
	if v, ok := queryInt(q.Get("max_depth")); ok {
		req.MaxDepth = &v
	}
	if v, ok := queryInt(q.Get("limit")); ok {
		req.Limit = &v
	}
	if v, ok := queryInt(q.Get("topk")); ok {
		req.TopK = &v
	}
	if v, ok := queryFloat(q.Get("mmr_lambda")); ok {
		req.MMRLambda = &v
	}
	return req
}

func commentOptionsFromQuery(r *http.Request) hn.CommentOptions {
	opts := hn.DefaultCommentOptions()
	q := r.URL.Query()
	if v, ok := queryInt(q.Get("max_depth")); ok {
		opts.MaxDepth = v
	}
	if v, ok := queryInt(q.Get("limit")); ok {
		opts.Limit = v
	}
	return opts
}

func queryInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryBool(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
