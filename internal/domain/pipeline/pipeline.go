package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"mediavault/internal/domain/events"
	"mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/metrics"
	"mediavault/internal/utils/platformerrors"
)

var (
	// ErrTaskActive is returned when a task is already running for the id.
	// Starting a second task per record is a programming error upstream.
	ErrTaskActive = errors.New("analysis task already active for media id")

	// ErrShuttingDown is returned by Start after Shutdown began.
	ErrShuttingDown = errors.New("pipeline runner is shutting down")
)

// maxPersistRetries bounds retry attempts for a single persistence step
// before the task is abandoned.
const maxPersistRetries = 3

// Config tunes the analysis loop.
type Config struct {
	// Interval between progress steps.
	Interval time.Duration
	// Step is the progress increment per tick, in percent.
	Step int
}

// Runner owns one cancellable background task per media id. Each task
// advances the record's progress at a fixed interval, publishes an event per
// persisted step, classifies at 100% and exits. Cancel (driven by record
// deletion) is observed before every persist and publish, so a deleted record
// never sees another write or event.
type Runner struct {
	store       media.Store
	broadcaster events.Broadcaster
	classifier  Classifier
	cfg         Config
	log         zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a pipeline runner.
func NewRunner(store media.Store, broadcaster events.Broadcaster, classifier Classifier, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{
		store:       store,
		broadcaster: broadcaster,
		classifier:  classifier,
		cfg:         cfg,
		log:         log.With().Str("component", "pipeline").Logger(),
		active:      make(map[string]context.CancelFunc),
	}
}

// Start schedules the analysis task for the id and returns immediately.
// Exactly one task may be active per id.
func (r *Runner) Start(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrShuttingDown
	}
	if _, ok := r.active[id]; ok {
		return fmt.Errorf("%w: %s", ErrTaskActive, id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.active[id] = cancel
	metrics.PipelineTasksActive.Inc()

	r.wg.Add(1)
	go r.run(ctx, id)

	return nil
}

// Cancel requests cancellation of the task for the id, if one is active.
// It does not wait for the task goroutine to exit; the task is guaranteed to
// perform no further persistence or publication once cancellation is observed,
// which happens before its next step.
func (r *Runner) Cancel(id string) {
	r.mu.Lock()
	cancel, ok := r.active[id]
	r.mu.Unlock()

	if ok {
		cancel()
	}
}

// Active reports whether a task is currently registered for the id.
func (r *Runner) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]
	return ok
}

// Shutdown cancels all tasks and waits for them to exit or the context to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.active {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) detach(id string) {
	r.mu.Lock()
	if cancel, ok := r.active[id]; ok {
		delete(r.active, id)
		cancel()
	}
	r.mu.Unlock()
	metrics.PipelineTasksActive.Dec()
}

func (r *Runner) run(ctx context.Context, id string) {
	defer r.wg.Done()
	defer r.detach(id)

	log := r.log.With().Str("media_id", id).Logger()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	progress := 0
	for progress < 100 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		next := progress + r.cfg.Step
		if next > 100 {
			next = 100
		}

		if _, err := r.persist(ctx, id, media.UpdateFields{Progress: &next}); err != nil {
			r.report(log, err, "persist progress")
			return
		}
		progress = next

		if ctx.Err() != nil {
			return
		}
		r.broadcaster.Publish(events.ProgressUpdate(id, progress))
	}

	record, err := r.fetch(ctx, id)
	if err != nil {
		r.report(log, err, "load record for classification")
		return
	}

	status, err := r.classifier.Classify(ctx, record)
	if err != nil {
		metrics.PipelineAbandonedTotal.Inc()
		log.Error().Err(err).Msg("classification failed, task abandoned")
		return
	}
	if !status.Terminal() {
		metrics.PipelineAbandonedTotal.Inc()
		log.Error().Str("status", string(status)).Msg("classifier returned non-terminal status, task abandoned")
		return
	}

	// Guarded by the current status so the terminal transition happens at
	// most once even if an operator raced this task.
	if _, err := r.persistIf(ctx, id, media.StatusProcessing, media.UpdateFields{Status: &status}); err != nil {
		r.report(log, err, "persist terminal status")
		return
	}

	metrics.PipelineCompletedTotal.WithLabelValues(string(status)).Inc()

	if ctx.Err() != nil {
		return
	}
	r.broadcaster.Publish(events.ProcessingComplete(id, string(status)))

	log.Info().Str("status", string(status)).Msg("analysis complete")
}

// persist applies the update with bounded exponential-backoff retries.
// Not-found and conflict are permanent: the record was deleted or already
// transitioned, and the task must stop rather than retry.
func (r *Runner) persist(ctx context.Context, id string, fields media.UpdateFields) (*media.MediaRecord, error) {
	return r.retryUpdate(ctx, func() (*media.MediaRecord, error) {
		return r.store.Update(ctx, id, fields)
	})
}

func (r *Runner) persistIf(ctx context.Context, id string, current media.Status, fields media.UpdateFields) (*media.MediaRecord, error) {
	return r.retryUpdate(ctx, func() (*media.MediaRecord, error) {
		return r.store.UpdateIfStatus(ctx, id, current, fields)
	})
}

func (r *Runner) fetch(ctx context.Context, id string) (*media.MediaRecord, error) {
	return r.retryUpdate(ctx, func() (*media.MediaRecord, error) {
		return r.store.Get(ctx, id)
	})
}

func (r *Runner) retryUpdate(ctx context.Context, op func() (*media.MediaRecord, error)) (*media.MediaRecord, error) {
	var record *media.MediaRecord

	attempt := func() error {
		var err error
		record, err = op()
		if err == nil {
			return nil
		}
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) ||
			platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxPersistRetries),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Runner) report(log zerolog.Logger, err error, op string) {
	switch {
	case errors.Is(err, context.Canceled):
		// record deleted while the task was mid-cycle
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound):
		log.Debug().Str("op", op).Msg("record deleted mid-analysis, task stopped")
	case platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict):
		log.Debug().Str("op", op).Msg("record already transitioned, task stopped")
	default:
		metrics.PipelineAbandonedTotal.Inc()
		log.Error().Err(err).Str("op", op).Msg("persistence retries exhausted, task abandoned")
	}
}
