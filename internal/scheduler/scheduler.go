// Package scheduler owns the cron engine that drives every recurring
// cycle: per-time publish jobs, the news fetch/analyze intervals and a
// periodic re-read of the posting schedule.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/status"
	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
	"github.com/DITreneris/btcbuzzbot/pkg/models"
)

// DefaultSchedule is the builtin posting schedule used when neither the
// database nor the environment provides one.
const DefaultSchedule = "08:00,12:00,16:00,20:00"

// tweetJobPrefix namespaces the per-time publish jobs so a reschedule
// can remove them without touching interval jobs
const tweetJobPrefix = "scheduled_tweet_"

// Interval job ids
const (
	jobNewsFetch     = "news_fetch"
	jobNewsAnalyze   = "news_analyze"
	jobEngagement    = "engagement_refresh"
	jobScheduleWatch = "schedule_watch"
)

// PublishRunner runs one publish cycle for a scheduled wall-clock label
type PublishRunner interface {
	RunCycle(ctx context.Context, jobLabel string) error
}

// CycleFunc is a maintenance cycle invoked on a fixed interval
type CycleFunc func(ctx context.Context) error

// Config wires the scheduler's jobs and cadences. Zero durations fall
// back to the production defaults.
type Config struct {
	Store   *store.Store
	Status  *status.Logger
	Publish PublishRunner
	Fetch   CycleFunc
	Analyze CycleFunc
	// Engagement is optional; leave nil to disable the refresh job
	Engagement CycleFunc

	// DefaultSchedule replaces the builtin schedule when the database
	// holds none (POST_TIMES)
	DefaultSchedule    string
	FetchInterval      time.Duration
	AnalyzeInterval    time.Duration
	EngagementInterval time.Duration
	WatchInterval      time.Duration
	JobTimeout         time.Duration
}

// Scheduler owns the cron engine and its job table. Tweet jobs are
// rebuilt on every reschedule; interval jobs live for the process
// lifetime. All times are UTC.
type Scheduler struct {
	store  *store.Store
	status *status.Logger

	publish    PublishRunner
	fetch      CycleFunc
	analyze    CycleFunc
	engagement CycleFunc

	defaultSchedule    string
	fetchInterval      time.Duration
	analyzeInterval    time.Duration
	engagementInterval time.Duration
	watchInterval      time.Duration
	jobTimeout         time.Duration

	cron *cron.Cron
	root context.Context

	mu       sync.Mutex
	jobs     map[string]cron.EntryID
	labels   []string
	schedule string
}

// New creates a scheduler around an existing store and job set
func New(cfg Config) *Scheduler {
	if cfg.DefaultSchedule == "" {
		cfg.DefaultSchedule = DefaultSchedule
	}
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = 720 * time.Minute
	}
	if cfg.AnalyzeInterval <= 0 {
		cfg.AnalyzeInterval = 30 * time.Minute
	}
	if cfg.EngagementInterval <= 0 {
		cfg.EngagementInterval = 360 * time.Minute
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 5 * time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog{}),
		cron.WithChain(cron.SkipIfStillRunning(skipLog{}), cron.Recover(cronLog{})),
	)

	return &Scheduler{
		store:              cfg.Store,
		status:             cfg.Status,
		publish:            cfg.Publish,
		fetch:              cfg.Fetch,
		analyze:            cfg.Analyze,
		engagement:         cfg.Engagement,
		defaultSchedule:    cfg.DefaultSchedule,
		fetchInterval:      cfg.FetchInterval,
		analyzeInterval:    cfg.AnalyzeInterval,
		engagementInterval: cfg.EngagementInterval,
		watchInterval:      cfg.WatchInterval,
		jobTimeout:         cfg.JobTimeout,
		cron:               c,
		root:               context.Background(),
		jobs:               make(map[string]cron.EntryID),
	}
}

// Start resolves the posting schedule, registers all jobs and starts
// the cron loop. The given context becomes the parent of every job run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.root = ctx

	schedule, err := s.resolveSchedule(ctx)
	if err != nil {
		return err
	}
	if err := s.applySchedule(schedule); err != nil {
		return err
	}
	s.addIntervalJobs()

	s.cron.Start()

	next := s.NextTweetRun()
	s.status.Log(ctx, models.StatusRunning, "Bot started", next)
	logger.Info("scheduler started",
		zap.String("schedule", schedule),
		zap.Int("tweet_jobs", len(s.Labels())),
		zap.Timep("next_run", next))

	return nil
}

// Stop halts new triggers and waits for in-flight jobs until the given
// context expires. The final status row is written on a fresh context
// so an expired shutdown deadline cannot lose it.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logger.Info("scheduler stopped, in-flight jobs finished")
	case <-ctx.Done():
		logger.Warn("scheduler stop deadline reached with jobs still running")
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.status.Log(logCtx, models.StatusStopped, "Bot stopped", nil)
}

// Reschedule re-reads the stored schedule and rebuilds the tweet jobs.
// The admin surface calls this after updating the schedule row; the
// watch job calls it when it notices a change.
func (s *Scheduler) Reschedule(ctx context.Context) error {
	schedule, err := s.store.GetScheduleConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load schedule config: %w", err)
	}
	if schedule == "" {
		schedule = s.defaultSchedule
	}

	if err := s.applySchedule(schedule); err != nil {
		return err
	}

	next := s.NextTweetRun()
	labels := s.Labels()
	s.status.Log(ctx, models.StatusScheduled,
		fmt.Sprintf("Schedule updated: %s", strings.Join(labels, ", ")), next)
	logger.Info("reschedule applied",
		zap.Strings("times", labels),
		zap.Timep("next_run", next))

	return nil
}

// Labels returns the currently applied posting times
func (s *Scheduler) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// JobIDs returns all registered job ids, sorted
func (s *Scheduler) JobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NextTweetRun returns the next UTC instant at which any tweet job
// fires, or nil when no tweet jobs exist
func (s *Scheduler) NextTweetRun() *time.Time {
	labels := s.Labels()
	if len(labels) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var next *time.Time
	for _, label := range labels {
		t, err := time.Parse("15:04", label)
		if err != nil {
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		if !candidate.After(now) {
			candidate = candidate.Add(24 * time.Hour)
		}
		if next == nil || candidate.Before(*next) {
			c := candidate
			next = &c
		}
	}

	return next
}

// resolveSchedule returns the schedule to apply at startup: the stored
// row when present and valid, otherwise the configured default. A
// missing row is seeded with the default so the admin surface always
// has something to show.
func (s *Scheduler) resolveSchedule(ctx context.Context) (string, error) {
	stored, err := s.store.GetScheduleConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load schedule config: %w", err)
	}

	if stored == "" {
		if err := s.store.SetScheduleConfig(ctx, s.defaultSchedule); err != nil {
			logger.Warn("failed to seed default schedule", zap.Error(err))
		}
		logger.Info("no stored schedule, using default", zap.String("schedule", s.defaultSchedule))
		return s.defaultSchedule, nil
	}

	if _, err := ParseTimes(stored); err != nil {
		logger.Warn("stored schedule is invalid, using default",
			zap.String("schedule", stored),
			zap.Error(err))
		return s.defaultSchedule, nil
	}

	return stored, nil
}

// applySchedule replaces all tweet jobs with one per configured time.
// Interval jobs are left alone.
func (s *Scheduler) applySchedule(schedule string) error {
	labels, err := ParseTimes(schedule)
	if err != nil {
		return fmt.Errorf("failed to parse schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entryID := range s.jobs {
		if strings.HasPrefix(id, tweetJobPrefix) {
			s.cron.Remove(entryID)
			delete(s.jobs, id)
		}
	}

	for _, label := range labels {
		id := tweetJobID(label)
		entryID, err := s.cron.AddJob(cronSpec(label), s.publishJob(label))
		if err != nil {
			return fmt.Errorf("failed to add tweet job %s: %w", id, err)
		}
		s.jobs[id] = entryID
	}

	s.labels = labels
	s.schedule = schedule
	logger.Info("tweet jobs scheduled", zap.Strings("times", labels))

	return nil
}

func (s *Scheduler) addIntervalJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetch != nil {
		s.jobs[jobNewsFetch] = s.cron.Schedule(
			cron.Every(s.fetchInterval), s.intervalJob(jobNewsFetch, s.fetch))
	}
	if s.analyze != nil {
		s.jobs[jobNewsAnalyze] = s.cron.Schedule(
			cron.Every(s.analyzeInterval), s.intervalJob(jobNewsAnalyze, s.analyze))
	}
	if s.engagement != nil {
		s.jobs[jobEngagement] = s.cron.Schedule(
			cron.Every(s.engagementInterval), s.intervalJob(jobEngagement, s.engagement))
	}
	s.jobs[jobScheduleWatch] = s.cron.Schedule(cron.Every(s.watchInterval), s.watchJob())
}

func (s *Scheduler) publishJob(label string) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.root, s.jobTimeout)
		defer cancel()

		if err := s.publish.RunCycle(ctx, label); err != nil {
			logger.Error("scheduled publish failed",
				zap.String("job", tweetJobID(label)),
				zap.Error(err))
		}
	})
}

func (s *Scheduler) intervalJob(name string, fn CycleFunc) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.root, s.jobTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Error("scheduled job failed",
				zap.String("job", name),
				zap.Error(err))
		}
	})
}

func (s *Scheduler) watchJob() cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.root, s.jobTimeout)
		defer cancel()
		s.checkSchedule(ctx)
	})
}

// checkSchedule reschedules when the stored schedule string no longer
// matches what is applied
func (s *Scheduler) checkSchedule(ctx context.Context) {
	stored, err := s.store.GetScheduleConfig(ctx)
	if err != nil {
		logger.Warn("schedule check failed", zap.Error(err))
		return
	}
	if stored == "" || stored == s.currentSchedule() {
		return
	}

	logger.Info("schedule change detected", zap.String("schedule", stored))
	if err := s.Reschedule(ctx); err != nil {
		logger.Warn("failed to apply changed schedule", zap.Error(err))
	}
}

func (s *Scheduler) currentSchedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

// ParseTimes validates a comma-separated "HH:MM" schedule string and
// returns the normalized, zero-padded labels sorted ascending with
// duplicates removed. Admin handlers use it to validate input before
// persisting.
func ParseTimes(schedule string) ([]string, error) {
	parts := strings.Split(schedule, ",")
	labels := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, part := range parts {
		raw := strings.TrimSpace(part)
		if raw == "" {
			continue
		}
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule time %q: %w", raw, err)
		}
		label := t.Format("15:04")
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("schedule contains no times")
	}

	sort.Strings(labels)
	return labels, nil
}

// tweetJobID derives the stable job id for a "HH:MM" label, e.g.
// "scheduled_tweet_0800"
func tweetJobID(label string) string {
	return tweetJobPrefix + strings.ReplaceAll(label, ":", "")
}

// cronSpec renders the daily cron expression for a validated "HH:MM"
// label
func cronSpec(label string) string {
	t, _ := time.Parse("15:04", label)
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}

// cronLog adapts the cron engine's logger to zap. Engine chatter goes
// to debug; errors keep their level.
type cronLog struct{}

func (cronLog) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

// skipLog receives only the still-running skip notices, which warrant a
// warning rather than debug chatter
type skipLog struct{}

func (skipLog) Info(_ string, keysAndValues ...interface{}) {
	logger.Warn("cron job skipped, previous run still executing", kvFields(keysAndValues)...)
}

func (skipLog) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(kvFields(keysAndValues), zap.Error(err))...)
}

func kvFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
