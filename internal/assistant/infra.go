package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT        NOT NULL,
	role       TEXT        NOT NULL,
	content    TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversation_turns_session_idx ON conversation_turns (session_id, id);
`

type PostgresHistory struct {
	db *sql.DB
}

func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

func (r *PostgresHistory) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create conversation_turns: %w", err)
	}
	return nil
}

func (r *PostgresHistory) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM conversation_turns
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = Role(role)
		out = append(out, t)
	}

	return out, rows.Err()
}

// Append пишет реплики в одной транзакции
func (r *PostgresHistory) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range turns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_turns (session_id, role, content, created_at)
			VALUES ($1, $2, $3, $4)
		`,
			sessionID,
			string(t.Role),
			t.Content,
			t.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresHistory) Reset(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE session_id = $1`, sessionID)
	return err
}

func (r *PostgresHistory) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
