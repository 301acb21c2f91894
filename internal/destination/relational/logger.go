// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package relational

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mia-platform/sluice/internal/logger"
)

const (
	loggerName = "sluice:relational"
)

// gormLogger forwards the gorm logs to the logger found in the statement context.
type gormLogger struct {
	level gormlogger.LogLevel
}

func newGormLogger() gormlogger.Interface {
	return &gormLogger{level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		logger.Named(ctx, loggerName).Debug(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		logger.Named(ctx, loggerName).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		logger.Named(ctx, loggerName).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs every statement at TRACE level. Failed statements are logged by the pipeline.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	sql, rows := fc()
	log := logger.Named(ctx, loggerName)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Debug("statement failed", "sql", sql, "duration", time.Since(begin).String(), "error", err)
		return
	}
	log.Trace("statement executed", "sql", sql, "rows", rows, "duration", time.Since(begin).String())
}
