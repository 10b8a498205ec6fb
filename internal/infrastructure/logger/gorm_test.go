package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func traceFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		begin   time.Time
		err     error
		wantMsg string
		wantLvl zapcore.Level
	}{
		{name: "error", level: gormlogger.Error, begin: time.Now(), err: errors.New("boom"), wantMsg: "SQL error", wantLvl: zapcore.ErrorLevel},
		{name: "slow", level: gormlogger.Warn, begin: time.Now().Add(-time.Second), wantMsg: "Slow SQL", wantLvl: zapcore.WarnLevel},
		{name: "query at info", level: gormlogger.Info, begin: time.Now(), wantMsg: "SQL query", wantLvl: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level)

			gl.Trace(context.Background(), tt.begin, traceFn("SELECT 1", 1), tt.err)

			logs := recorded.All()
			if assert.Len(t, logs, 1) {
				assert.Equal(t, tt.wantMsg, logs[0].Message)
				assert.Equal(t, tt.wantLvl, logs[0].Level)
				assert.Equal(t, "SELECT 1", logs[0].ContextMap()["sql"])
			}
		})
	}
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), traceFn("SELECT", 0), gormlogger.ErrRecordNotFound)

	assert.Zero(t, recorded.Len())
}

func TestGormLogger_ConflictsLogAtWarn(t *testing.T) {
	conflict := errors.New("duplicate key value violates unique constraint")
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn,
		WithConflictErrors(func(err error) bool { return errors.Is(err, conflict) }))

	gl.Trace(context.Background(), time.Now(), traceFn("INSERT INTO redemptions", 0), conflict)
	gl.Trace(context.Background(), time.Now(), traceFn("SELECT 1", 1), nil)

	logs := recorded.All()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, "SQL conflict", logs[0].Message)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	}
}

func TestGormLogger_SilentAndLogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Silent, WithSlowThreshold(time.Millisecond))

	gl.Trace(context.Background(), time.Now(), traceFn("SELECT", 0), errors.New("x"))
	assert.Zero(t, recorded.Len())

	loud := gl.LogMode(gormlogger.Info)
	assert.Equal(t, gormlogger.Silent, gl.level)
	loud.Info(context.Background(), "connected to %s", "db")
	assert.Equal(t, 1, recorded.FilterMessage("connected to db").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
