package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gestion-optica-api/utils"

	"github.com/go-co-op/gocron"
)

const alertJobTag = "alert-sweep"

// AlertScheduler runs an AlertJob on a cron expression. A panicking job is
// reported through OnPanic; ordinary job errors are only logged.
type AlertScheduler struct {
	scheduler *gocron.Scheduler
	spec      string
	job       AlertJob
	log       *slog.Logger

	// OnPanic receives faults raised by the job. It defaults to logging.
	OnPanic func(cause error)

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

func NewAlertScheduler(spec string, job AlertJob, log *slog.Logger) *AlertScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	as := &AlertScheduler{
		scheduler: s,
		spec:      spec,
		job:       job,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	as.OnPanic = func(cause error) {
		as.log.Error("Alert job panicked", "error", cause)
	}
	return as
}

// Start registers the job and starts the scheduler. It may be called once.
func (s *AlertScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("alert scheduler already started")
	}

	if _, err := s.scheduler.Cron(s.spec).Tag(alertJobTag).Do(s.RunOnce); err != nil {
		return fmt.Errorf("schedule alert job %q: %w", s.spec, err)
	}
	s.scheduler.StartAsync()
	s.started = true

	s.log.Info("Alert scheduler started", "cron", s.spec)
	return nil
}

// RunOnce executes the job immediately with the scheduler's context.
func (s *AlertScheduler) RunOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.OnPanic(fmt.Errorf("alert job panic: %v", r))
		}
	}()

	ctx, cancel := utils.WithJobTimeout(s.ctx)
	defer cancel()

	start := time.Now()
	if err := s.job.Run(ctx); err != nil {
		s.log.Error("Alert job failed", "error", err, "duration", time.Since(start))
		return
	}
	s.log.Debug("Alert job completed", "duration", time.Since(start))
}

// Stop halts scheduling and cancels a running job.
func (s *AlertScheduler) Stop() {
	s.scheduler.Stop()
	s.cancel()
	s.log.Info("Alert scheduler stopped")
}

// Close is the shutdown hook form of Stop.
func (s *AlertScheduler) Close(context.Context) error {
	s.Stop()
	return nil
}
