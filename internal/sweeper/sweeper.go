// Package sweeper deletes temporary personalized stickers whose cart hold
// has run out.
//
// A sweep runs once at start and then on a fixed interval. Each expired
// record is removed on its own: the row first, with a conditional delete
// that loses to a concurrent confirm, then its image file. A failure on one
// record is logged and reported without stopping the rest.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/user/avenida-stickers/internal/models"
)

var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avenida_sweeper_runs_total",
		Help: "Total number of expiry sweeps executed",
	})

	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avenida_sweeper_deleted_total",
		Help: "Total number of expired temporary stickers deleted",
	})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avenida_sweeper_errors_total",
		Help: "Total number of records a sweep failed to delete",
	})

	sweepSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "avenida_sweeper_skipped_total",
		Help: "Sweeps skipped because another one was in progress",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avenida_sweeper_duration_seconds",
		Help:    "Duration of expiry sweeps in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

const DefaultInterval = time.Hour

type Store interface {
	ListExpiredTemporary(ctx context.Context, now time.Time) ([]*models.PersonalizedSticker, error)
	// DeleteExpired removes the record only if it is still temporary and
	// expired at now.
	DeleteExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type ImageStore interface {
	Delete(ctx context.Context, imagePath string) error
}

type Settings interface {
	AutoDeleteEnabled(ctx context.Context) bool
}

type Notifier interface {
	Notify(ctx context.Context, event string, payload any)
}

type Sweeper struct {
	store    Store
	images   ImageStore
	settings Settings
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex // held for the duration of a sweep
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store Store, images ImageStore, settings Settings, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{
		store:    store,
		images:   images,
		settings: settings,
		interval: interval,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

func (s *Sweeper) WithNotifier(n Notifier) *Sweeper {
	s.notifier = n
	return s
}

// WithClock replaces the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start launches the background loop. The first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(loopCtx)

	s.logger.Info("sweeper started", slog.String("interval", s.interval.String()))
}

// Stop cancels the loop and waits for it to return.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. When another sweep is already running
// it returns at once with Skipped set.
func (s *Sweeper) RunOnce(ctx context.Context) *models.SweepResult {
	if !s.mu.TryLock() {
		sweepSkippedTotal.Inc()
		s.logger.Warn("sweep already in progress, skipping")
		return &models.SweepResult{Skipped: true, Message: "sweep already in progress"}
	}
	defer s.mu.Unlock()

	start := time.Now()
	result := &models.SweepResult{}

	if !s.settings.AutoDeleteEnabled(ctx) {
		result.Message = "auto-delete disabled"
		s.logger.Info("sweep skipped: auto-delete disabled")
		return result
	}

	now := s.now()
	expired, err := s.store.ListExpiredTemporary(ctx, now)
	if err != nil {
		sweepRunsTotal.Inc()
		result.Errors = append(result.Errors, fmt.Sprintf("list expired stickers: %v", err))
		result.Message = "sweep failed"
		s.logger.Error("failed to list expired stickers", slog.String("error", err.Error()))
		return result
	}

	for _, p := range expired {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("sweep interrupted: %v", ctx.Err()))
			break
		}
		if s.sweepOne(ctx, p, now, result) {
			result.Deleted++
		}
	}

	result.Duration = time.Since(start)
	result.Message = fmt.Sprintf("%d expired temporary stickers deleted", result.Deleted)

	sweepRunsTotal.Inc()
	sweepDeletedTotal.Add(float64(result.Deleted))
	sweepErrorsTotal.Add(float64(len(result.Errors)))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("sweep finished",
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", len(result.Errors)),
		slog.Duration("duration", result.Duration),
	)

	if result.Deleted > 0 && s.notifier != nil {
		s.notifier.Notify(ctx, models.EventPersonalizedExpired, models.PersonalizedExpiredEvent{Deleted: result.Deleted})
	}
	return result
}

func (s *Sweeper) sweepOne(ctx context.Context, p *models.PersonalizedSticker, now time.Time, result *models.SweepResult) bool {
	deleted, err := s.store.DeleteExpired(ctx, p.ID, now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", p.DisplayID, err))
		s.logger.Error("failed to delete expired sticker",
			slog.String("display_id", p.DisplayID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !deleted {
		// confirmed or removed since it was listed
		s.logger.Debug("expired sticker no longer eligible", slog.String("display_id", p.DisplayID))
		return false
	}

	if err := s.images.Delete(ctx, p.ImagePath); err != nil {
		s.logger.Warn("failed to delete expired image",
			slog.String("display_id", p.DisplayID),
			slog.String("image_path", p.ImagePath),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Debug("expired sticker deleted", slog.String("display_id", p.DisplayID))
	return true
}
