package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearRecordings truncates the recorder tables. Schema is preserved.
func ClearRecordings(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing recorded messages", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE ros_messages, ros_status RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Recordings cleared", clearLogPrefix))
	return nil
}
