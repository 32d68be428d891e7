package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
)

// sseWriter frames answer events as server-sent events. Headers are sent
// with the first event so that a request rejected before streaming can
// still get a JSON error.
type sseWriter struct {
	w       gin.ResponseWriter
	started bool
}

func newSSEWriter(w gin.ResponseWriter) *sseWriter {
	return &sseWriter{w: w}
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// Emit writes one event and flushes it.
func (s *sseWriter) Emit(e domain.Event) error {
	name, data, err := domain.EncodeEvent(e)
	if err != nil {
		return err
	}
	s.start()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("writing %s event: %w", name, err)
	}
	s.w.Flush()
	return nil
}
