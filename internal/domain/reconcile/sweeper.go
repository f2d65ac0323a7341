package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
)

const batchSize = 100

// Report summarises one sweep.
type Report struct {
	Failed   int `json:"failed"`
	Reversed int `json:"reversed"`
	Flagged  int `json:"flagged"`
	Released int `json:"released"`
	Errors   int `json:"errors"`
}

// Sweeper repairs purchases left pending by a crash or a lost provider
// response, and direct payments that never reached their purchase.
type Sweeper struct {
	machine     *transaction.Machine
	compensator *purchase.Compensator
	pendingAge  time.Duration
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

func NewSweeper(machine *transaction.Machine, compensator *purchase.Compensator, pendingAge, interval time.Duration) *Sweeper {
	if pendingAge <= 0 {
		pendingAge = 10 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		machine:     machine,
		compensator: compensator,
		pendingAge:  pendingAge,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background sweep
func (s *Sweeper) Start() {
	log.Info().Dur("interval", s.interval).Dur("pending_age", s.pendingAge).Msg("Starting reconciliation sweeper...")
	go s.loop()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	log.Info().Msg("Stopping reconciliation sweeper...")
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run()
	for {
		select {
		case <-ticker.C:
			s.run()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := s.SweepOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reconciliation sweep failed")
		return
	}
	if report.Failed+report.Flagged+report.Released+report.Errors > 0 {
		log.Info().
			Int("failed", report.Failed).
			Int("reversed", report.Reversed).
			Int("flagged", report.Flagged).
			Int("released", report.Released).
			Int("errors", report.Errors).
			Msg("Reconciliation sweep finished")
	}
}

// SweepOnce fails purchases pending for longer than the configured age,
// reversing any committed debit, and credits orphaned direct payments.
// Transactions flagged for review are counted but left alone.
func (s *Sweeper) SweepOnce(ctx context.Context) (*Report, error) {
	report := &Report{}
	cutoff := time.Now().Add(-s.pendingAge)

	stale, err := s.machine.ListStalePending(ctx, cutoff, batchSize)
	if err != nil {
		return nil, err
	}
	for i := range stale {
		txn := &stale[i]
		if txn.ReviewReason.Valid {
			report.Flagged++
			metrics.SweptTotal.WithLabelValues("flagged").Inc()
			log.Warn().
				Str("reference", txn.Reference).
				Str("review_reason", txn.ReviewReason.String).
				Msg("pending transaction awaits manual review")
			continue
		}

		reversed, err := s.compensator.Fail(ctx, txn, "expired by reconciliation sweep", nil)
		if err != nil {
			report.Errors++
			metrics.SweptTotal.WithLabelValues("error").Inc()
			continue
		}
		report.Failed++
		if reversed {
			report.Reversed++
		}
		metrics.SweptTotal.WithLabelValues("failed").Inc()
		log.Info().Str("reference", txn.Reference).Bool("reversed", reversed).Msg("stale purchase failed")
	}

	orphans, err := s.machine.ListUnsettledFunding(ctx, cutoff, batchSize)
	if err != nil {
		return report, err
	}
	for i := range orphans {
		funding := &orphans[i]
		credited, err := s.compensator.ReleaseFunding(ctx, funding)
		if err != nil {
			report.Errors++
			metrics.SweptTotal.WithLabelValues("error").Inc()
			continue
		}
		if credited {
			report.Released++
			metrics.SweptTotal.WithLabelValues("released").Inc()
			log.Info().Str("reference", funding.Reference).Str("amount", funding.Amount.String()).
				Msg("orphaned direct payment credited to wallet")
		}
	}

	return report, nil
}
