package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithCreditTagsEveryLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := WithCredit(zap.New(core), " 1790 ")

	log.Info("credit approved", zap.String("approved_by", "admin-1"))
	log.Warn("notification failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "1790", entry.ContextMap()["credit_id"])
	}
	assert.Equal(t, "admin-1", entries[0].ContextMap()["approved_by"])
}

func TestWithCreditNilLogger(t *testing.T) {
	assert.Nil(t, WithCredit(nil, "1"))
}

func TestGormLoggerSkipsNotFoundAndFlagsLocks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), DefaultGormLoggerConfig())
	ctx := context.Background()
	begin := time.Now()

	gl.Trace(ctx, begin, func() (string, int64) {
		return "SELECT * FROM credits WHERE id = 1", 0
	}, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	gl.Trace(ctx, begin.Add(-time.Second), func() (string, int64) {
		return " SELECT * FROM credits WHERE id = ? FOR UPDATE ", 1
	}, nil)
	gl.Trace(ctx, begin, func() (string, int64) {
		return "UPDATE installments SET status = 'paid'", 0
	}, errors.New("deadlock"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Equal(t, "SELECT", entries[0].ContextMap()["operation"])
	assert.Equal(t, true, entries[0].ContextMap()["row_lock"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "UPDATE", entries[1].ContextMap()["operation"])
	assert.Equal(t, "deadlock", entries[1].ContextMap()["error"])
}

func TestGormLoggerDropsBoundValues(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), DefaultGormLoggerConfig())
	sql, params := gl.ParamsFilter(context.Background(), "SELECT 1 WHERE phone = ?", "3001234567")
	assert.Equal(t, "SELECT 1 WHERE phone = ?", sql)
	assert.Nil(t, params)
}
