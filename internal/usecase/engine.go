package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CampusNotify/internal/domain"
	"CampusNotify/internal/ports"
)

// EngineDeps wires the driven adapters into the run orchestration.
type EngineDeps struct {
	Source     ports.AnnouncementSource
	Detector   *Detector
	Composer   Composer
	Dispatcher *Dispatcher
	SidePoster ports.SidePoster
	Location   *time.Location
	Logger     *slog.Logger
}

// Engine executes one notification batch: fetch listing, detect changes,
// compose per-audience messages, fan out. The phases are sequential and
// data-dependent; dispatch never starts after a detection failure.
type Engine struct {
	source     ports.AnnouncementSource
	detector   *Detector
	composer   Composer
	dispatcher *Dispatcher
	sidePoster ports.SidePoster
	location   *time.Location
	logger     *slog.Logger
}

// NewEngine constructs the orchestration component.
func NewEngine(deps EngineDeps) *Engine {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{
		source:     deps.Source,
		detector:   deps.Detector,
		composer:   deps.Composer,
		dispatcher: deps.Dispatcher,
		sidePoster: deps.SidePoster,
		location:   loc,
		logger:     deps.Logger,
	}
}

// RunRealtime performs one realtime sweep: announcements new or reclassified
// since the start of the day are notified to realtime recipients. With
// broadcast set, the run also publishes per-item posts to the side channel.
func (e *Engine) RunRealtime(ctx context.Context, now time.Time, broadcast bool) error {
	logger := e.runLogger("realtime")
	window := domain.DayOf(now.In(e.location))

	listing, ok := e.fetchListing(ctx, now, window, logger)
	if !ok {
		return nil
	}

	changes, err := e.detector.Detect(ctx, listing, window)
	if err != nil {
		return fmt.Errorf("detect changes: %w", err)
	}
	if changes.Empty() {
		logger.Info("no new or reclassified announcements")
		return nil
	}

	messages := e.composer.Realtime(changes, window)
	stats, err := e.dispatcher.Dispatch(ctx, messages, domain.CadenceRealtime)
	if err != nil {
		return fmt.Errorf("dispatch realtime: %w", err)
	}
	logSweep(logger, stats)

	if broadcast && e.sidePoster != nil {
		for _, post := range e.composer.SidePosts(changes, window) {
			if err := e.sidePoster.Post(ctx, post); err != nil {
				logger.Warn("side channel post failed", "error", err)
			}
		}
	}

	return nil
}

// RunDaily performs the once-a-day sweep: the whole day's listing is composed
// into per-audience digests and delivered to daily recipients, without
// touching the announcement ledger.
func (e *Engine) RunDaily(ctx context.Context, now time.Time) error {
	logger := e.runLogger("daily")
	window := domain.DayOf(now.In(e.location))

	listing, ok := e.fetchListing(ctx, now, window, logger)
	if !ok {
		return nil
	}

	messages := e.composer.Daily(listing, window)
	if len(messages) == 0 {
		logger.Info("nothing published today for any audience")
		return nil
	}

	stats, err := e.dispatcher.Dispatch(ctx, messages, domain.CadenceDaily)
	if err != nil {
		return fmt.Errorf("dispatch daily: %w", err)
	}
	logSweep(logger, stats)

	return nil
}

// fetchListing pulls the current listing restricted to the detection window.
// Source failures and empty listings both end the run early as a logged
// no-op: no ledger or recipient state is touched.
func (e *Engine) fetchListing(ctx context.Context, now time.Time, w domain.Window, logger *slog.Logger) ([]domain.Announcement, bool) {
	listing, err := e.source.FetchListing(ctx, now)
	if err != nil {
		logger.Warn("announcement source unavailable, nothing to do", "error", err)
		return nil, false
	}

	fresh := listing[:0:0]
	for _, item := range listing {
		if !item.PublishedAt.Before(w.Start) {
			fresh = append(fresh, item)
		}
	}
	if len(fresh) == 0 {
		logger.Info("no announcements listed in window")
		return nil, false
	}

	return fresh, true
}

func (e *Engine) runLogger(mode string) *slog.Logger {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("run", uuid.NewString(), "mode", mode)
}

func logSweep(logger *slog.Logger, stats DispatchStats) {
	fields := []any{
		"attempted", stats.Attempted,
		"delivered", stats.Delivered,
		"skipped", stats.Skipped,
		"deleted", stats.Deleted,
		"failed", stats.Failed,
	}
	if stats.Failed > 0 {
		logger.Warn("sweep finished with failures", fields...)
		return
	}
	logger.Info("sweep finished", fields...)
}
