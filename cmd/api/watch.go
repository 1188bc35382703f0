package main

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"threadlens/internal/analysis"
	"threadlens/internal/archive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is handled at the HTTP layer; the socket accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// watchEvent is one progress frame. The final frame carries the dump.
type watchEvent struct {
	Stage  string                 `json:"stage"`
	Error  string                 `json:"error,omitempty"`
	Result *archive.StoredSummary `json:"result,omitempty"`
}

// handleWatch streams pipeline stage events for one story over a websocket:
// GET /api/watch/{story_id}. The connection closes after the terminal frame.
func (s *server) handleWatch(w http.ResponseWriter, r *http.Request) {
	storyID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/watch/"), "/")
	if storyID == "" {
		http.Error(w, "story id required", http.StatusBadRequest)
		return
	}
	req := storyRequestFromQuery(r)
	req.StoryID = storyID

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("watch %s: upgrade: %v", storyID, err)
		return
	}
	defer conn.Close()

	// stage callbacks run on the pipeline goroutine; this handler is the
	// only writer, so forward through a channel
	events := make(chan watchEvent, 16)
	req.StageFunc = func(stage analysis.Stage) {
		select {
		case events <- watchEvent{Stage: string(stage)}:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		stored, _, err := s.svc.AnalyzeStory(r.Context(), req)
		if err != nil {
			events <- watchEvent{Stage: "error", Error: err.Error()}
			return
		}
		events <- watchEvent{Stage: string(analysis.StageComplete), Result: stored}
	}()

	for {
		select {
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Printf("watch %s: write: %v", storyID, err)
				return
			}
			if ev.Error != "" || ev.Result != nil {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		case <-done:
			// drain any remaining frames before exiting
			for {
				select {
				case ev := <-events:
					if err := conn.WriteJSON(ev); err != nil {
						return
					}
					if ev.Error != "" || ev.Result != nil {
						_ = conn.WriteMessage(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
						return
					}
				default:
					return
				}
			}
		}
	}
}
