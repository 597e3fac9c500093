package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// BufferedMetrics manages batched metrics with auto-flush
type BufferedMetrics struct {
	writer      Writer
	buffer      map[string][]Metric
	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	batchSize   int
	bufferMu    sync.RWMutex
}

// BufferConfig configures metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int           // Flush when a table buffer reaches this size
	FlushInterval time.Duration // Auto-flush interval
}

// NewBufferedMetrics creates new buffered metrics manager
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:      cfg.Writer,
		buffer:      make(map[string][]Metric),
		batchSize:   cfg.BatchSize,
		flushTicker: time.NewTicker(cfg.FlushInterval),
		stopCh:      make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.autoFlush()

	logger.Info("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add adds metric to buffer (thread-safe)
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	tableName := metric.TableName()
	if tableName == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.bufferMu.Lock()
	defer bm.bufferMu.Unlock()

	bm.buffer[tableName] = append(bm.buffer[tableName], metric)

	if len(bm.buffer[tableName]) >= bm.batchSize {
		logger.Debug("batch size reached, flushing",
			zap.String("table", tableName),
			zap.Int("size", len(bm.buffer[tableName])),
		)
		// Flush in background to avoid blocking the caller
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := bm.Flush(ctx); err != nil {
				logger.Error("auto-flush failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Flush flushes all buffered metrics to writer
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.bufferMu.Lock()

	toFlush := make(map[string][]Metric)
	for table, buffered := range bm.buffer {
		if len(buffered) > 0 {
			toFlush[table] = buffered
			bm.buffer[table] = nil
		}
	}
	bm.bufferMu.Unlock()

	if len(toFlush) == 0 {
		return nil
	}

	var failed int
	for tableName, buffered := range toFlush {
		if err := bm.writer.Write(ctx, tableName, buffered); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("table", tableName),
				zap.Int("count", len(buffered)),
				zap.Error(err),
			)
			failed++
		} else {
			logger.Debug("metrics flushed",
				zap.String("table", tableName),
				zap.Int("count", len(buffered)),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("flush failed for %d tables", failed)
	}

	return nil
}

// Size returns current buffer size across all tables
func (bm *BufferedMetrics) Size() int {
	bm.bufferMu.RLock()
	defer bm.bufferMu.RUnlock()

	total := 0
	for _, buffered := range bm.buffer {
		total += len(buffered)
	}
	return total
}

// Close gracefully shuts down buffer and flushes remaining metrics
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	logger.Info("closing metrics buffer...")

	close(bm.stopCh)
	bm.flushTicker.Stop()
	bm.wg.Wait()

	if err := bm.Flush(ctx); err != nil {
		logger.Error("final flush failed", zap.Error(err))
		return err
	}

	if err := bm.writer.Close(); err != nil {
		logger.Error("writer close failed", zap.Error(err))
		return err
	}

	logger.Info("metrics buffer closed")
	return nil
}

// autoFlush periodically flushes buffer
func (bm *BufferedMetrics) autoFlush() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := bm.Flush(ctx); err != nil {
				logger.Warn("periodic flush failed", zap.Error(err))
			}
			cancel()

		case <-bm.stopCh:
			return
		}
	}
}
