package jobs

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/services"
)

func newJobsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

type stubReports struct {
	d   *services.Dashboard
	err error
}

func (s stubReports) Snapshot(context.Context) (*services.Dashboard, error) { return s.d, s.err }

func TestRunOnce_PurgesExpiredAndLogsSnapshot(t *testing.T) {
	db := newJobsDB(t)
	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		rec := &domain.Idempotency{
			ID: uuid.NewString(), UserID: 1, Scope: "orders", Key: uuid.NewString(),
			ResourceID: "r", Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: exp,
		}
		require.NoError(t, db.Create(rec).Error, "record %d", i)
	}

	var buf bytes.Buffer
	h := New(db, stubReports{d: &services.Dashboard{TotalOrders: 3, Revenue: decimal.NewFromInt(100)}}, zerolog.New(&buf))
	h.now = func() time.Time { return now }

	res := h.RunOnce(context.Background())
	assert.Equal(t, int64(2), res.Purged)
	require.NotNil(t, res.Snapshot)
	assert.Contains(t, buf.String(), `"revenue":"100.00"`)

	var left int64
	require.NoError(t, db.Model(&domain.Idempotency{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)

	res = h.RunOnce(context.Background())
	assert.Zero(t, res.Purged)
}

func TestRunOnce_SnapshotFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	h := New(newJobsDB(t), stubReports{err: errors.New("boom")}, zerolog.New(&buf))
	res := h.RunOnce(context.Background())
	assert.Nil(t, res.Snapshot)
	assert.Contains(t, buf.String(), "dashboard snapshot failed")
}

func TestRunOnce_WithRealReportService(t *testing.T) {
	db := newJobsDB(t)
	h := New(db, services.NewReportService(db), zerolog.Nop())
	h.Timeout = 0
	res := h.RunOnce(context.Background())
	require.NotNil(t, res.Snapshot)
	assert.Zero(t, res.Snapshot.TotalOrders)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	h := New(newJobsDB(t), nil, zerolog.Nop())
	_, err := h.Start("not a schedule")
	assert.Error(t, err)

	c, err := h.Start("@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
