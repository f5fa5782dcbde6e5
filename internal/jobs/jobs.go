// Package jobs runs periodic housekeeping on a cron schedule: purging
// expired Idempotency-Key records and logging a dashboard snapshot.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

// Snapshotter computes the dashboard counters.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*services.Dashboard, error)
}

// Housekeeper owns the scheduled tasks.
type Housekeeper struct {
	DB      *gorm.DB
	Reports Snapshotter
	Log     zerolog.Logger
	Timeout time.Duration // per run; 0 means one minute

	now func() time.Time
}

// New constructs a Housekeeper.
func New(db *gorm.DB, reports Snapshotter, log zerolog.Logger) *Housekeeper {
	return &Housekeeper{DB: db, Reports: reports, Log: log, Timeout: time.Minute, now: time.Now}
}

// Start schedules RunOnce on schedule (standard five-field cron or a descriptor
// such as "@every 1h") and starts the scheduler. Stop the returned Cron to
// shut it down; its Stop context completes when a running job returns.
func (h *Housekeeper) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { h.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	c.Start()
	h.Log.Info().Str("schedule", schedule).Msg("housekeeping scheduled")
	return c, nil
}

// Result reports what one housekeeping run did.
type Result struct {
	Purged   int64
	Snapshot *services.Dashboard
}

// RunOnce performs every task once. Failures are logged and do not stop the
// remaining tasks.
func (h *Housekeeper) RunOnce(ctx context.Context) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now
	if h.now != nil {
		now = h.now
	}

	var res Result
	n, err := repo.PurgeExpiredIdempotency(ctx, h.DB, now().UTC())
	if err != nil {
		h.Log.Error().Err(err).Msg("purge expired idempotency keys failed")
	} else {
		res.Purged = n
		h.Log.Debug().Int64("purged", n).Msg("expired idempotency keys purged")
	}

	if h.Reports != nil {
		d, err := h.Reports.Snapshot(ctx)
		if err != nil {
			h.Log.Error().Err(err).Msg("dashboard snapshot failed")
		} else {
			res.Snapshot = d
			h.Log.Info().
				Int64("orders", d.TotalOrders).
				Int64("pending", d.PendingOrders).
				Int64("done", d.CompletedOrders).
				Int64("cancelled", d.CancelledOrders).
				Str("revenue", d.Revenue.StringFixed(2)).
				Msg("dashboard snapshot")
		}
	}
	return res
}
