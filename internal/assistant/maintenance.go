package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PruneJob удаляет реплики старше retention
func PruneJob(p Pruner, retention time.Duration, now func() time.Time, log *zap.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cutoff := now().Add(-retention)
		n, err := p.PruneBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune history: %w", err)
		}
		log.Info("history pruned", zap.Int64("turns", n), zap.Time("cutoff", cutoff))
		return nil
	}
}
