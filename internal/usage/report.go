package usage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DailyReport — задача, логирующая сводку за текущие сутки (UTC)
func DailyReport(rec *FileRecorder, log *zap.Logger, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err := rec.Load()
		if err != nil {
			return fmt.Errorf("load usage: %w", err)
		}

		sum := Summarize(events, now().UTC())
		log.Info(sum.String(),
			zap.String("date", sum.Date),
			zap.Int("total", sum.Total),
			zap.Int("sessions", sum.Sessions),
			zap.Any("by_classification", sum.ByClassification),
			zap.Any("by_reason", sum.ByReason),
			zap.Int64("avg_latency_ms", sum.AvgLatencyMS),
		)
		return nil
	}
}
