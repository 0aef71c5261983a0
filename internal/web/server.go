// Package web serves a small read-only dashboard over the message store:
// an HTML overview page plus JSON endpoints for stats and recent messages.
package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teledigest/teledigest/internal/database"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	shutdownTimeout    = 5 * time.Second
)

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>Teledigest</title></head>
<body>
<h1>Teledigest</h1>
<p>Messages stored: {{.TotalMessages}}</p>
<p>Summarized: {{.SummarizedMessages}}</p>
<p>Pending: {{.Pending}}</p>
<p>Last summarized message: {{.LastSummary}}</p>
</body>
</html>`

// Server exposes the dashboard over HTTP.
type Server struct {
	store      database.Store
	logger     *slog.Logger
	listenAddr string
	engine     *gin.Engine
}

// NewServer builds the dashboard with its routes registered.
func NewServer(store database.Store, listenAddr string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:      store,
		logger:     logger.With("component", "web"),
		listenAddr: listenAddr,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("index").Parse(indexTemplate)))

	r.GET("/", s.handleIndex)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/messages", s.handleMessages)

	s.engine = r
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Dashboard listening", "addr", s.listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Dashboard shutdown failed", "error", err)
		return err
	}

	s.logger.Info("Dashboard stopped.")
	return <-errCh
}

func (s *Server) handleIndex(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Failed to load statistics", "error", err)
		c.String(http.StatusInternalServerError, "failed to load statistics")
		return
	}

	lastSummary := "never"
	if !stats.LastSummaryDate.IsZero() {
		lastSummary = stats.LastSummaryDate.Format("2006-01-02 15:04:05")
	}

	c.HTML(http.StatusOK, "index", gin.H{
		"TotalMessages":      stats.TotalMessages,
		"SummarizedMessages": stats.SummarizedMessages,
		"Pending":            stats.TotalMessages - stats.SummarizedMessages,
		"LastSummary":        lastSummary,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Failed to load statistics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}

	resp := gin.H{
		"total_messages":      stats.TotalMessages,
		"summarized_messages": stats.SummarizedMessages,
		"pending_messages":    stats.TotalMessages - stats.SummarizedMessages,
	}
	if !stats.LastSummaryDate.IsZero() {
		resp["last_summary_date"] = stats.LastSummaryDate
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMessages(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	messages, err := s.store.RecentMessages(c.Request.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Failed to load messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	type messageJSON struct {
		MessageID  int64     `json:"message_id"`
		ChatID     int64     `json:"chat_id"`
		Sender     string    `json:"sender"`
		SenderID   int64     `json:"sender_id"`
		Text       string    `json:"text"`
		Date       time.Time `json:"date"`
		Summarized bool      `json:"summarized"`
	}

	out := make([]messageJSON, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageJSON{
			MessageID:  m.MessageID,
			ChatID:     m.ChatID,
			Sender:     m.Sender,
			SenderID:   m.SenderID,
			Text:       m.Text,
			Date:       m.Date,
			Summarized: m.Summarized,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}
