package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"CampusNotify/internal/domain"
	"CampusNotify/internal/ports"
)

const (
	defaultWorkers    = 4
	defaultRatePerSec = 10
)

// Dispatcher fans a composed message set out to every eligible recipient.
// Delivery is parallelized over a bounded worker pool behind a shared rate
// limiter; one recipient's failure or deletion never blocks another's
// delivery, and every recipient in the snapshot reaches a terminal state.
type Dispatcher struct {
	ledger  ports.Ledger
	channel ports.DeliveryChannel
	limiter *rate.Limiter
	workers int
	logger  *slog.Logger
}

// DispatchStats summarizes the terminal states of one fan-out sweep.
type DispatchStats struct {
	Attempted int
	Delivered int
	Skipped   int
	Deleted   int
	Failed    int
}

// NewDispatcher builds a dispatcher with the given pool size and per-second
// send budget; zero or negative values fall back to defaults.
func NewDispatcher(ledger ports.Ledger, channel ports.DeliveryChannel, workers, ratePerSec int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Dispatcher{
		ledger:  ledger,
		channel: channel,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		workers: workers,
		logger:  logger,
	}
}

// Dispatch delivers messages[recipient.Audience] to each recipient whose
// cadence matches the run mode. Recipients whose audience has no message this
// run are skipped; that is not a failure. Only the initial recipient load can
// fail the call.
func (d *Dispatcher) Dispatch(ctx context.Context, messages domain.Messages, cadence domain.Cadence) (DispatchStats, error) {
	recipients, err := d.ledger.FindRecipientsByCadence(ctx, cadence)
	if err != nil {
		return DispatchStats{}, fmt.Errorf("load %s recipients: %w", cadence, err)
	}

	var (
		stats DispatchStats
		mu    sync.Mutex
		wg    sync.WaitGroup
	)
	queue := make(chan domain.Recipient)

	record := func(update func(*DispatchStats)) {
		mu.Lock()
		update(&stats)
		mu.Unlock()
	}

	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipient := range queue {
				d.deliver(ctx, recipient, messages, record)
			}
		}()
	}

	for _, recipient := range recipients {
		queue <- recipient
	}
	close(queue)
	wg.Wait()

	return stats, nil
}

func (d *Dispatcher) deliver(ctx context.Context, r domain.Recipient, messages domain.Messages, record func(func(*DispatchStats))) {
	message, ok := messages[r.Audience]
	if !ok {
		record(func(s *DispatchStats) { s.Skipped++ })
		return
	}

	record(func(s *DispatchStats) { s.Attempted++ })

	if err := d.limiter.Wait(ctx); err != nil {
		d.warn("rate limiter wait interrupted", "recipient", r.ID, "error", err)
		record(func(s *DispatchStats) { s.Failed++ })
		return
	}

	err := d.channel.Send(ctx, r.ChannelToken, message)
	switch {
	case err == nil:
		record(func(s *DispatchStats) { s.Delivered++ })
	case errors.Is(err, ports.ErrInvalidToken):
		d.info("removing recipient with revoked token", "recipient", r.ID)
		d.removeRecipient(ctx, r, record)
	case errors.Is(err, ports.ErrNotJoined):
		d.info("removing recipient whose target group is not joined", "recipient", r.ID)
		d.removeRecipient(ctx, r, record)
	default:
		// Transient by assumption; the next run retries naturally.
		d.warn("delivery failed, recipient retained", "recipient", r.ID, "error", err)
		record(func(s *DispatchStats) { s.Failed++ })
	}
}

func (d *Dispatcher) removeRecipient(ctx context.Context, r domain.Recipient, record func(func(*DispatchStats))) {
	if err := d.ledger.DeleteRecipient(ctx, r.ID); err != nil {
		// The dead token will be rediscovered and re-deleted next run.
		d.warn("recipient cleanup failed", "recipient", r.ID, "error", err)
		record(func(s *DispatchStats) { s.Failed++ })
		return
	}
	record(func(s *DispatchStats) { s.Deleted++ })
}

func (d *Dispatcher) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
