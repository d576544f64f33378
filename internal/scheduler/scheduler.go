// Package scheduler is C4 Scheduler (spec §4.4): holds the watchlist, the
// cron table, and the manual-trigger path. Grounded on
// aristath-sentinel/trader-go/internal/scheduler/scheduler.go's Job
// interface and cron.Cron wrapper (AddFunc, Start/Stop, RunNow), using the
// same github.com/robfig/cron/v3 dependency.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/wavepilot/ingest/internal/massiveapi"
	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/internal/newsstore"
	"github.com/wavepilot/ingest/internal/tswriter"
)

// Job is a single named cron entry's action.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler is C4 Scheduler. It is idempotent under repeated Start/Stop
// (spec §4.4).
type Scheduler struct {
	cron      *cron.Cron
	watchlist *model.Watchlist
	log       zerolog.Logger

	mu      sync.Mutex
	running bool
	jobs    map[string]Job
	ctx     context.Context
	deps    Deps
}

// Deps bundles the collaborators every job needs.
type Deps struct {
	Upstream  *massiveapi.Client
	Writer    *tswriter.Writer
	News      *newsstore.Store
	Watchlist *model.Watchlist
	Clock     interface {
		Status(ctx context.Context) model.MarketStatus
	}
	Log zerolog.Logger
}

// New builds a Scheduler and registers the spec's cron table (spec §4.4's
// job table) against the given dependencies.
func New(deps Deps) *Scheduler {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		watchlist: deps.Watchlist,
		log:       deps.Log.With().Str("component", "scheduler").Logger(),
		jobs:      make(map[string]Job),
		deps:      deps,
	}

	s.register("*/5 * * * 1-5", &snapshotJob{deps: deps})
	s.register("*/1 * * * 1-5", &sipMinuteCorrectionJob{deps: deps})
	s.register("30 16 * * 1-5", &eodJob{deps: deps})
	s.register("*/15 * * * *", &newsJob{deps: deps})
	s.register("0 6 * * 1-5", &fundamentalsJob{deps: deps})

	return s
}

func (s *Scheduler) register(schedule string, job Job) {
	s.jobs[job.Name()] = job
	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Str("schedule", schedule).Msg("failed to register job")
	}
}

func (s *Scheduler) runJob(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.log.Debug().Str("job", job.Name()).Msg("running job")
	if err := job.Run(ctx); err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Msg("job failed")
	} else {
		s.log.Debug().Str("job", job.Name()).Msg("job completed")
	}
}

// Start begins the cron schedule. Calling Start while already running is a
// no-op (spec §4.4: "idempotent under repeated start/stop").
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.cron.Start()
	s.running = true
	s.log.Info().Msg("scheduler started")
}

// Stop halts the cron schedule, waiting for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunTask executes the named job immediately, bypassing its market gate
// and cron schedule (spec §4.4: "runTask(name) ... bypassing the market
// gate").
func (s *Scheduler) RunTask(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown task %q", name)
	}
	return job.Run(withBypassGate(ctx))
}

// Status reports the health-endpoint shape (spec §6).
func (s *Scheduler) Status() (running bool, watchlist []string) {
	s.mu.Lock()
	running = s.running
	s.mu.Unlock()
	return running, s.watchlist.Tickers()
}
