// Package admin exposes the read-side HTTP surface: current status,
// recent activity, the posting schedule and quote/joke curation.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/database"
	"github.com/DITreneris/btcbuzzbot/internal/scheduler"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// Rescheduler is the slice of the scheduler the admin surface needs:
// applying a changed schedule and reporting the next posting time.
type Rescheduler interface {
	Reschedule(ctx context.Context) error
	NextTweetRun() *time.Time
}

// Server provides the admin HTTP endpoints
type Server struct {
	server    *http.Server
	db        *database.DB
	store     *store.Store
	scheduler Rescheduler
	startTime time.Time
}

// NewServer creates the admin server listening on the given port
func NewServer(port string, db *database.DB, st *store.Store, sched Rescheduler) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		db:        db,
		store:     st,
		scheduler: sched,
		startTime: time.Now(),
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/posts", s.handlePosts)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("PUT /api/schedule", s.handlePutSchedule)
	mux.HandleFunc("GET /api/price/latest", s.handleLatestPrice)

	mux.HandleFunc("GET /api/quotes", s.handleListQuotes)
	mux.HandleFunc("POST /api/quotes", s.handleAddQuote)
	mux.HandleFunc("DELETE /api/quotes/{id}", s.handleDeleteQuote)
	mux.HandleFunc("GET /api/jokes", s.handleListJokes)
	mux.HandleFunc("POST /api/jokes", s.handleAddJoke)
	mux.HandleFunc("DELETE /api/jokes/{id}", s.handleDeleteJoke)

	return s
}

// Start starts the admin server and blocks until shutdown
func (s *Server) Start() error {
	logger.Info("admin server starting", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping admin server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the route table, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Database  string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Database:  "healthy",
	}

	code := http.StatusOK
	if err := s.db.Health(); err != nil {
		resp.Status = "degraded"
		resp.Database = "unhealthy: " + err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.GetLatestStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no status recorded")
		return
	}

	writeJSON(w, http.StatusOK, latest)
}

type postsResponse struct {
	Count int           `json:"count"`
	Posts []models.Post `json:"posts"`
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 100)

	posts, err := s.store.GetRecentPosts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, postsResponse{Count: len(posts), Posts: posts})
}

type newsResponse struct {
	Count int                `json:"count"`
	News  []models.NewsTweet `json:"news"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 1, 168)

	items, err := s.store.GetRecentAnalyzedNews(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, newsResponse{Count: len(items), News: items})
}

type scheduleResponse struct {
	Schedule string     `json:"schedule"`
	Times    []string   `json:"times,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.store.GetScheduleConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := scheduleResponse{Schedule: schedule}
	if times, err := scheduler.ParseTimes(schedule); err == nil {
		resp.Times = times
	}
	if s.scheduler != nil {
		resp.NextRun = s.scheduler.NextTweetRun()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Schedule string `json:"schedule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	labels, err := scheduler.ParseTimes(req.Schedule)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule: "+err.Error())
		return
	}
	normalized := strings.Join(labels, ",")

	if err := s.store.SetScheduleConfig(r.Context(), normalized); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.scheduler != nil {
		if err := s.scheduler.Reschedule(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "schedule saved but not applied: "+err.Error())
			return
		}
	}

	resp := scheduleResponse{Schedule: normalized, Times: labels}
	if s.scheduler != nil {
		resp.NextRun = s.scheduler.NextTweetRun()
	}
	logger.Info("schedule updated via admin", zap.Strings("times", labels))

	writeJSON(w, http.StatusOK, resp)
}

type priceResponse struct {
	Price        float64   `json:"price"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
	Price24hAgo  *float64  `json:"price_24h_ago,omitempty"`
	Change24hPct *float64  `json:"change_24h_pct,omitempty"`
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.GetLatestPrice(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "no price recorded")
		return
	}

	resp := priceResponse{
		Price:     latest.Price,
		Source:    latest.Source,
		Timestamp: latest.Timestamp,
	}

	prev, err := s.store.GetPriceAt24hAgo(r.Context())
	if err != nil {
		logger.Warn("failed to load 24h-ago price", zap.Error(err))
	} else if prev != nil {
		resp.Price24hAgo = prev
		if *prev > 0 {
			pct := 100 * (latest.Price - *prev) / *prev
			resp.Change24hPct = &pct
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type contentResponse struct {
	Count int                  `json:"count"`
	Items []models.ContentItem `json:"items"`
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, s.store.ListQuotes)
}

func (s *Server) handleListJokes(w http.ResponseWriter, r *http.Request) {
	s.listContent(w, r, s.store.ListJokes)
}

func (s *Server) handleAddQuote(w http.ResponseWriter, r *http.Request) {
	s.addContent(w, r, s.store.AddQuote)
}

func (s *Server) handleAddJoke(w http.ResponseWriter, r *http.Request) {
	s.addContent(w, r, s.store.AddJoke)
}

func (s *Server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	s.deleteContent(w, r, s.store.DeleteQuote)
}

func (s *Server) handleDeleteJoke(w http.ResponseWriter, r *http.Request) {
	s.deleteContent(w, r, s.store.DeleteJoke)
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]models.ContentItem, error)) {
	items, err := list(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, contentResponse{Count: len(items), Items: items})
}

func (s *Server) addContent(w http.ResponseWriter, r *http.Request, add func(context.Context, string, string) (int64, error)) {
	var req struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	id, err := add(r.Context(), text, req.Category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request, del func(context.Context, int64) (bool, error)) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := del(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return def
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode admin response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
