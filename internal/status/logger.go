package status

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/store"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// Logger appends bot lifecycle rows. It never returns an error to
// callers; storage failures go to the process log only.
type Logger struct {
	store *store.Store
}

// NewLogger creates new status logger
func NewLogger(st *store.Store) *Logger {
	return &Logger{store: st}
}

// Log appends one lifecycle entry, swallowing storage failures
func (l *Logger) Log(ctx context.Context, status, message string, nextRun *time.Time) {
	if l == nil || l.store == nil {
		return
	}

	if err := l.store.LogBotStatus(ctx, status, message, nextRun); err != nil {
		logger.Error("failed to log bot status",
			zap.String("status", status),
			zap.String("message", message),
			zap.Error(err),
		)
	}
}
