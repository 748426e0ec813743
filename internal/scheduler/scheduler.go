package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the scan on a cron schedule in daemon mode. A tick that
// fires while the previous scan is still running is skipped, not queued.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	run     func(ctx context.Context) error
	running atomic.Bool
}

// New creates a scheduler around the given scan function.
func New(ctx context.Context, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		ctx:  ctx,
		run:  run,
	}
}

// Register adds the scan task under the given cron expression.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

func (s *Scheduler) tick() {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("previous scan still running, tick skipped")
		return
	}
	defer s.running.Store(false)

	log.Info().Msg("scheduled scan starting")
	if err := s.run(s.ctx); err != nil {
		log.Error().Err(err).Msg("scheduled scan failed")
	}
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron loop; the returned context completes when any
// in-flight task has finished.
func (s *Scheduler) Stop() context.Context {
	log.Info().Msg("scheduler stopping")
	return s.cron.Stop()
}
