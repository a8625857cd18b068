package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/postq/internal/headers"
	"github.com/foxzi/postq/internal/queue"
)

// HealthResponse is the response for GET /healthz
type HealthResponse struct {
	Status   string    `json:"status"`
	Uptime   string    `json:"uptime"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// QueueResponse is the response for GET /api/v1/queue
type QueueResponse struct {
	Summary  *queue.Summary    `json:"summary"`
	Messages []*MessageSummary `json:"messages,omitempty"`
}

// MessageSummary is the listing view of one queued message
type MessageSummary struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Size       int64     `json:"size"`
	Arrived    time.Time `json:"arrived"`
	Sender     string    `json:"sender"`
	Recipients []string  `json:"recipients"`
	LastError  string    `json:"last_error,omitempty"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleQueue handles GET /api/v1/queue. Optional query parameters
// narrow the selection: status, sender, rcpt, limit.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Summary(r.Context())
	if err != nil {
		s.logger.Error("failed to summarize queue", "error", err)
		s.sendError(w, http.StatusServiceUnavailable, "Failed to read queue snapshot")
		return
	}

	var sels []queue.Selector
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		sels = append(sels, queue.MatchStatus(queue.Status(v)))
	}
	if v := q.Get("sender"); v != "" {
		sels = append(sels, queue.MatchSender(v))
	}
	if v := q.Get("rcpt"); v != "" {
		sels = append(sels, queue.MatchRecipient(v))
	}

	msgs, err := s.store.Select(r.Context(), queue.And(sels...))
	if err != nil {
		s.logger.Error("failed to select messages", "error", err)
		s.sendError(w, http.StatusServiceUnavailable, "Failed to read queue snapshot")
		return
	}

	limit := 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	summaries := make([]*MessageSummary, len(msgs))
	for i, m := range msgs {
		summaries[i] = &MessageSummary{
			ID:         m.ID,
			Status:     string(m.Status),
			Size:       m.Size,
			Arrived:    m.Arrived,
			Sender:     m.Sender,
			Recipients: m.Recipients,
			LastError:  m.LastError(),
		}
	}

	s.sendJSON(w, http.StatusOK, QueueResponse{
		Summary:  sum,
		Messages: summaries,
	})
}

// handleMessage handles GET /api/v1/queue/{id}. With ?headers=1 the
// full header set is fetched and included.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			s.sendError(w, http.StatusNotFound, "Message not found")
			return
		}
		s.logger.Error("failed to get message", "id", id, "error", err)
		s.sendError(w, http.StatusServiceUnavailable, "Failed to read queue snapshot")
		return
	}

	if r.URL.Query().Get("headers") == "1" && s.loader != nil {
		if _, err := s.loader.Load(r.Context(), msg); err != nil {
			if errors.Is(err, headers.ErrMessageGone) {
				s.sendError(w, http.StatusGone, "Message left the queue")
				return
			}
			s.logger.Error("failed to load headers", "id", id, "error", err)
			s.sendError(w, http.StatusBadGateway, "Failed to load headers")
			return
		}
	}

	s.sendJSON(w, http.StatusOK, msg)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(s.startTime).String(),
		Source:   s.store.Source(),
		LoadedAt: s.store.LoadedAt(),
	})
}

// sendJSON writes a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, status int, msg string) {
	s.sendJSON(w, status, ErrorResponse{Error: msg})
}
