package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// logActivity writes a tracking-log entry. Failures are logged and dropped
// so they never fail the write that triggered them.
func (s *PostgresStore) logActivity(ctx context.Context, typ, userID string, details map[string]any) {
	data, err := json.Marshal(details)
	if err != nil {
		zap.L().Warn("store: marshal activity details", zap.String("type", typ), zap.Error(err))
		return
	}
	_, err = s.pool.Exec(context.WithoutCancel(ctx),
		`INSERT INTO activities (id, type, user_id, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), typ, userID, data, s.now(),
	)
	if err != nil {
		zap.L().Warn("store: record activity failed",
			zap.String("type", typ),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
