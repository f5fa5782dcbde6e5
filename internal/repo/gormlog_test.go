package repo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBufferedGormLogger(level logger.LogLevel) (logger.Interface, *bytes.Buffer) {
	var buf bytes.Buffer
	return newGormLogger(zerolog.New(&buf).Level(zerolog.DebugLevel), level), &buf
}

func sqlFn(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_TraceLevels(t *testing.T) {
	ctx := context.Background()

	l, buf := newBufferedGormLogger(logger.Warn)
	l.Trace(ctx, time.Now(), sqlFn("SELECT 1"), errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "query failed") ||
		!strings.Contains(out, "SELECT 1") || !strings.Contains(out, `"component":"gorm"`) {
		t.Fatalf("failure not logged as structured error: %s", out)
	}

	buf.Reset()
	l.Trace(ctx, time.Now(), sqlFn("SELECT 2"), gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record-not-found must stay quiet, got %s", buf.String())
	}

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT 3"), nil)
	if !strings.Contains(buf.String(), "slow query") {
		t.Fatalf("slow statement not warned: %s", buf.String())
	}

	buf.Reset()
	l.Trace(ctx, time.Now(), sqlFn("SELECT 4"), nil)
	if buf.Len() != 0 {
		t.Fatalf("fast statement logged at warn level: %s", buf.String())
	}

	buf.Reset()
	l.LogMode(logger.Info).Trace(ctx, time.Now(), sqlFn("SELECT 5"), nil)
	if !strings.Contains(buf.String(), `"level":"debug"`) || !strings.Contains(buf.String(), "SELECT 5") {
		t.Fatalf("info mode should log every statement: %s", buf.String())
	}

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sqlFn("SELECT 6"), errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode logged: %s", buf.String())
	}
}

func TestGormLogger_Messages(t *testing.T) {
	ctx := context.Background()
	l, buf := newBufferedGormLogger(logger.Warn)

	l.Info(ctx, "hello %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("info below threshold logged: %s", buf.String())
	}
	l.Warn(ctx, "careful %s", "now")
	if !strings.Contains(buf.String(), "careful now") {
		t.Fatalf("warn missing: %s", buf.String())
	}
	buf.Reset()
	l.Error(ctx, "bad %s", "thing")
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("error missing: %s", buf.String())
	}
}
