// Package sse bridges a run's event stream onto Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"deepagent/agent"
)

// Writer sends Server-Sent Events to an http.ResponseWriter.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new SSE writer. Returns nil if the ResponseWriter
// doesn't support http.Flusher.
func NewWriter(w http.ResponseWriter) *Writer {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}
}

// Send writes one run event as a named SSE event. The event kind becomes
// the SSE event name; the full event is the JSON payload, so consumers keep
// the sequence number and can detect gaps.
func (s *Writer) Send(ev agent.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal SSE event: %w", err)
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	s.flusher.Flush()
	return nil
}

// Stream drains eventCh to the client until the channel closes or the
// client disconnects, whichever comes first. Returns the last write error.
func (s *Writer) Stream(done <-chan struct{}, eventCh <-chan agent.Event) error {
	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			if err := s.Send(ev); err != nil {
				return err
			}
		case <-done:
			return nil
		}
	}
}

// SendComment writes an SSE comment (for keep-alive pings).
func (s *Writer) SendComment(text string) {
	fmt.Fprintf(s.w, ": %s\n\n", text)
	s.flusher.Flush()
}
