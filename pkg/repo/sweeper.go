package repo

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/podcore/pkg/log"
	"github.com/cuemby/podcore/pkg/metrics"
	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/rs/zerolog"
)

// Sweeper runs a ticker-driven remnant sweep: when the backend is
// BackupCapable, each cycle lists every ObjectID and Deletes those for which
// Exists reports no data. It does not compare live metadata with the backup
// copy and does not call RestoreFromBackup.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewSweeper creates a Sweeper over engine, running every interval.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   log.WithComponent("remnant-sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop ends the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Msg("remnant sweeper started")

	for {
		select {
		case <-ticker.C:
			if err := s.sweep(context.Background()); err != nil {
				s.logger.Error().Err(err).Msg("sweep cycle failed")
			}
		case <-s.stopCh:
			s.logger.Info().Msg("remnant sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.RepoOperatorDuration, "sweep")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engine.Backend.(objectstore.BackupCapable); !ok {
		return nil
	}

	ids, err := s.engine.Backend.List(ctx, "")
	if err != nil {
		return err
	}

	for _, id := range ids {
		exists, err := s.engine.Backend.Exists(ctx, id)
		if err != nil || exists {
			continue
		}
		// Backend reports no live data at id, yet List still surfaced it —
		// its metadata/backup bucket entries outlived an interrupted
		// delete. Finish the delete to purge the remnant.
		if err := s.engine.Backend.Delete(ctx, id); err == nil {
			metrics.RemnantsPurgedTotal.Inc()
			s.logger.Debug().Str("object_id", string(id)).Msg("purged orphaned metadata remnant")
		}
	}
	return nil
}
