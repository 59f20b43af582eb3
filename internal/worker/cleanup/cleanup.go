// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/yatube/internal/metrics"
)

// SessionPurger は期限切れセッションを削除するインターフェース。
// repository.SessionRepositoryが満たす。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Job は期限切れセッションの削除ジョブ。
// 削除は冪等であり、対象がない場合もエラーにならない。
type Job struct {
	sessions SessionPurger
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewJob は新しいJobを生成する。collectorがnilの場合はメトリクスを記録しない。
func NewJob(sessions SessionPurger, logger *slog.Logger, collector metrics.MetricsCollector) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Job{sessions: sessions, logger: logger, metrics: collector}
}

// Run は期限切れセッションを1回削除し、削除件数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("session cleanup failed", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	j.metrics.RecordSessionsCleaned(deleted)
	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return deleted, nil
}

// Start は起動直後に1回実行し、以降interval間隔で実行する。
// コンテキストがキャンセルされるまでブロックする。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("session cleanup scheduler started", slog.Duration("interval", interval))

	_, _ = j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session cleanup scheduler stopped")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
