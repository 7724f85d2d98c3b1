package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AlertJob is one run of the alert sweep.
type AlertJob interface {
	Run(ctx context.Context) error
}

// AlertJobFunc adapts a function to AlertJob.
type AlertJobFunc func(ctx context.Context) error

func (f AlertJobFunc) Run(ctx context.Context) error { return f(ctx) }

// Counter is the slice of *mongo.Collection the due-alert sweep needs.
type Counter interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

const (
	AlertsCollection   = "alertas"
	AlertStatusPending = "pendiente"
)

// DueAlertsJob counts pending alerts whose scheduled date has passed and
// logs the total. Delivery is owned by the alerts module.
type DueAlertsJob struct {
	alerts Counter
	log    *slog.Logger
	now    func() time.Time
}

func NewDueAlertsJob(db *mongo.Database, log *slog.Logger) *DueAlertsJob {
	return newDueAlertsJob(db.Collection(AlertsCollection), log)
}

func newDueAlertsJob(alerts Counter, log *slog.Logger) *DueAlertsJob {
	return &DueAlertsJob{alerts: alerts, log: log, now: time.Now}
}

func (j *DueAlertsJob) Run(ctx context.Context) error {
	filter := bson.M{
		"estado":          AlertStatusPending,
		"fechaProgramada": bson.M{"$lte": j.now()},
	}
	due, err := j.alerts.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("count due alerts: %w", err)
	}
	j.log.Info("Alert sweep finished", "due", due)
	return nil
}
