package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// slowQueryThreshold marks queries worth a warning
const slowQueryThreshold = 200 * time.Millisecond

// GormDatabaseLogger bridges GORM's logger interface to the application logger
type GormDatabaseLogger struct {
	logger coreport.Logger
	level  gormlogger.LogLevel
}

// NewGormDatabaseLogger creates a GORM logger that writes through the application logger
func NewGormDatabaseLogger(logger coreport.Logger) gormlogger.Interface {
	return &GormDatabaseLogger{
		logger: logger,
		level:  gormlogger.Warn,
	}
}

// LogMode sets the log level
func (l *GormDatabaseLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info logs informational messages
func (l *GormDatabaseLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(msg, map[string]any{"args": args})
	}
}

// Warn logs warning messages
func (l *GormDatabaseLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(msg, map[string]any{"args": args})
	}
}

// Error logs errors messages
func (l *GormDatabaseLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(msg, map[string]any{"args": args})
	}
}

// Trace logs SQL statements with their timing
func (l *GormDatabaseLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
		"rows":       rows,
		"sql":        sql,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		fields["error"] = err.Error()
		l.logger.Error("Database query failed", fields)
	case elapsed > slowQueryThreshold:
		l.logger.Warn("Slow database query", fields)
	case l.level >= gormlogger.Info:
		l.logger.Debug("Database query", fields)
	}
}
