package service

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/ticker"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/mempool"
)

type SchedulerConfig struct {
	Pool   *mempool.TxMempool
	Proofs *dsproof.Storage
	// Ticker paces the housekeeping rounds.
	Ticker ticker.Ticker
	// Expiry is how long a transaction may sit in the pool.
	Expiry      time.Duration
	MaxPoolSize int64
}

// TickStats reports what one housekeeping round removed.
type TickStats struct {
	ExpiredOrphans int
	ExpiredTxs     int
	TrimmedTxs     int
}

// Scheduler runs the periodic housekeeping of the pool and the proof
// storage until stopped.
type Scheduler struct {
	cfg    SchedulerConfig
	rounds chan TickStats

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Start runs the scheduler in its own goroutine until ctx is done or Stop
// is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.cfg.Ticker.Resume()
	defer s.cfg.Ticker.Stop()

	for {
		select {
		case <-s.cfg.Ticker.Ticks():
			stats := s.Tick()
			if s.rounds != nil {
				select {
				case s.rounds <- stats:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			log.Print("service", "info", "scheduler stopped")
			return
		}
	}
}

// Tick runs one housekeeping round: orphan proofs past their retention go,
// then transactions past the expiry, then the pool is trimmed to size.
func (s *Scheduler) Tick() TickStats {
	var stats TickStats
	if s.cfg.Proofs != nil {
		stats.ExpiredOrphans = s.cfg.Proofs.PeriodicCleanup()
	}
	if s.cfg.Expiry > 0 {
		cutoff := s.cfg.Pool.Clock().Now().Add(-s.cfg.Expiry).Unix()
		stats.ExpiredTxs = s.cfg.Pool.Expire(cutoff)
	}
	if s.cfg.MaxPoolSize > 0 {
		before := s.cfg.Pool.Size()
		s.cfg.Pool.TrimToSize(s.cfg.MaxPoolSize, false)
		stats.TrimmedTxs = before - s.cfg.Pool.Size()
	}
	if stats != (TickStats{}) {
		log.Print("service", "debug", "housekeeping: %d orphan proofs, %d expired txs, %d trimmed txs",
			stats.ExpiredOrphans, stats.ExpiredTxs, stats.TrimmedTxs)
	}
	return stats
}
