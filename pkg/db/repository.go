package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const defaultListLimit = 100

// Repository records and queries ROS traffic.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecordMessage inserts rec and sets its ID. A zero ReceivedAt is stamped
// with the current time.
func (r *Repository) RecordMessage(ctx context.Context, rec *MessageRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ros_messages (topic, type, subscription_id, payload, received_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		rec.Topic, rec.Type, rec.SubscriptionID, rec.Payload, rec.ReceivedAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("%s - insert message topic=%s failed: %w", repoLogPrefix, rec.Topic, err)
	}
	slog.Debug(fmt.Sprintf("%s - RecordMessage id=%d topic=%s", repoLogPrefix, rec.ID, rec.Topic))
	return nil
}

// RecordStatus inserts a gateway status record and sets its ID.
func (r *Repository) RecordStatus(ctx context.Context, rec *StatusRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ros_status (level, envelope_id, message, received_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		rec.Level, rec.EnvelopeID, rec.Message, rec.ReceivedAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("%s - insert status failed: %w", repoLogPrefix, err)
	}
	return nil
}

// ListMessages returns recorded messages, newest first.
func (r *Repository) ListMessages(ctx context.Context, params ListMessagesParams) ([]MessageRecord, error) {
	query, args := buildListQuery(params)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - list messages failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		rec, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - list messages rows: %w", repoLogPrefix, err)
	}
	return out, nil
}

// CountMessages returns the number of recorded messages on topic, or on
// all topics when topic is empty.
func (r *Repository) CountMessages(ctx context.Context, topic string) (int64, error) {
	var n int64
	var err error
	if topic == "" {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM ros_messages`).Scan(&n)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM ros_messages WHERE topic = $1`, topic).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("%s - count messages failed: %w", repoLogPrefix, err)
	}
	return n, nil
}

func buildListQuery(params ListMessagesParams) (string, []any) {
	var where []string
	var args []any
	if params.Topic != "" {
		args = append(args, params.Topic)
		where = append(where, fmt.Sprintf("topic = $%d", len(args)))
	}
	if !params.Since.IsZero() {
		args = append(args, params.Since)
		where = append(where, fmt.Sprintf("received_at >= $%d", len(args)))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	var b strings.Builder
	b.WriteString(`SELECT id, topic, type, subscription_id, payload, received_at FROM ros_messages`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY received_at DESC, id DESC LIMIT $%d", len(args))
	return b.String(), args
}

func scanMessage(row pgx.Row) (*MessageRecord, error) {
	var m MessageRecord
	err := row.Scan(&m.ID, &m.Topic, &m.Type, &m.SubscriptionID, &m.Payload, &m.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("%s - scan message failed: %w", repoLogPrefix, err)
	}
	return &m, nil
}
