// Package scheduler runs periodic cache maintenance and feed checks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"finvestigator/internal/dashboard"
)

// Purger drops cached data.
type Purger interface {
	Purge() int
}

// NewsSource fetches the news page.
type NewsSource interface {
	News(ctx context.Context) (*dashboard.NewsView, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron   *cron.Cron
	purger Purger
	news   NewsSource
	log    *slog.Logger
	ctx    context.Context
}

// NewScheduler creates a new Scheduler. Specs use six fields, seconds
// first.
func NewScheduler(ctx context.Context, purger Purger, news NewsSource, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		purger: purger,
		news:   news,
		log:    log.With("component", "scheduler"),
		ctx:    ctx,
	}
}

// RegisterAll registers the purge and news tasks. An empty spec leaves the
// task out.
func (s *Scheduler) RegisterAll(purgeCron, newsCron string) error {
	if purgeCron != "" && s.purger != nil {
		if _, err := s.cron.AddFunc(purgeCron, s.purgeTask); err != nil {
			return fmt.Errorf("register purge task: %w", err)
		}
	}
	if newsCron != "" && s.news != nil {
		if _, err := s.cron.AddFunc(newsCron, s.newsTask); err != nil {
			return fmt.Errorf("register news task: %w", err)
		}
	}
	return nil
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "tasks", s.Len())
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) purgeTask() {
	n := s.purger.Purge()
	s.log.Info("cache purged", "entries", n)
}

// newsTask fetches the feed so an unreachable or empty feed shows up in the
// logs before a user opens the News page.
func (s *Scheduler) newsTask() {
	view, err := s.news.News(s.ctx)
	if err != nil {
		s.log.Warn("news feed check failed", "error", err)
		return
	}
	if len(view.Entries) == 0 {
		s.log.Warn("news feed is empty", "url", view.FeedURL)
		return
	}
	s.log.Info("news feed checked", "url", view.FeedURL, "entries", len(view.Entries))
}
