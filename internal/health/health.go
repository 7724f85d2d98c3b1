// Package health computes the dependency health snapshot served at /health.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/models"
)

// ISO8601 matches the millisecond UTC timestamps clients already parse.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// ProbeFailureMessage is the only failure detail returned to callers.
const ProbeFailureMessage = "database connection failed"

var ErrProbeTimeout = errors.New("health probe timed out")

// Probe checks one dependency.
type Probe interface {
	Name() string
	Ping(ctx context.Context) error
}

type Options struct {
	Environment string
	Version     string
	// Timeout bounds a single probe; a timeout counts as a failure.
	Timeout   time.Duration
	StartedAt time.Time
}

type Service struct {
	opts    Options
	probe   Probe
	log     *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewService builds the aggregator. probe may be nil, in which case the
// database check reports "unknown".
func NewService(opts Options, probe Probe, log *slog.Logger, metrics *telemetry.Metrics) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}
	return &Service{
		opts:    opts,
		probe:   probe,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Check runs the probe and returns the HTTP status with a fresh snapshot.
func (s *Service) Check(ctx context.Context) (int, models.HealthSnapshot) {
	snap := s.base()
	dep := "database"
	if s.probe != nil {
		dep = s.probe.Name()
	}

	if s.probe == nil {
		snap.Checks[dep] = models.CheckUnknown
		return http.StatusOK, snap
	}

	if err := s.ping(ctx); err != nil {
		s.log.Error("Health probe failed", "dependency", dep, "error", err.Error())
		s.metrics.RecordHealthProbe(dep, false)

		snap.Status = models.HealthDegraded
		snap.Checks[dep] = models.CheckError
		snap.Error = ProbeFailureMessage
		return http.StatusServiceUnavailable, snap
	}

	s.metrics.RecordHealthProbe(dep, true)
	snap.Checks[dep] = models.CheckOK
	return http.StatusOK, snap
}

// Info is the zero-dependency liveness payload.
func (s *Service) Info(endpoints map[string]string) models.ServiceInfo {
	return models.ServiceInfo{
		Name:        telemetry.ServiceName,
		Status:      "running",
		Version:     s.opts.Version,
		Environment: s.opts.Environment,
		Timestamp:   s.now().UTC().Format(ISO8601),
		Endpoints:   endpoints,
	}
}

func (s *Service) base() models.HealthSnapshot {
	now := s.now()
	return models.HealthSnapshot{
		Status:      models.HealthOK,
		Timestamp:   now.UTC().Format(ISO8601),
		Uptime:      now.Sub(s.opts.StartedAt).Seconds(),
		Environment: s.opts.Environment,
		Version:     s.opts.Version,
		Checks:      map[string]string{"api": models.CheckOK},
	}
}

// ping bounds the probe even if it ignores its context, and turns a panic
// into an ordinary failure.
func (s *Service) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("health probe panicked: %v", r)
			}
		}()
		done <- s.probe.Ping(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrProbeTimeout
		}
		return ctx.Err()
	}
}
