package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
)

// AnswerRepository is the audit log for workflow sessions. One row per
// terminal answer record, with the full verdict chain as JSONB.
type AnswerRepository struct {
	db *sql.DB
}

func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083002)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS answers (
	session_id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT,
	provenance TEXT NOT NULL,
	verdicts JSONB NOT NULL DEFAULT '[]'::jsonb,
	failure_reason TEXT,
	explanation TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_answers_created_at ON answers(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnswerRepository) SaveAnswerRecord(ctx context.Context, record *domain.AnswerRecord) error {
	verdictsJSON, err := json.Marshal(record.Verdicts)
	if err != nil {
		return fmt.Errorf("marshal verdicts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO answers (
	session_id, question, answer, provenance, verdicts, failure_reason, explanation, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		record.SessionID, record.Question, record.Answer, string(record.Provenance),
		verdictsJSON, record.FailureReason, record.Explanation, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer record: %w", err)
	}
	return nil
}

// RecentAnswers returns the newest records first, capped at limit.
func (r *AnswerRepository) RecentAnswers(ctx context.Context, limit int) ([]domain.AnswerRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, question, answer, provenance, verdicts, failure_reason, explanation, created_at
FROM answers
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		var record domain.AnswerRecord
		var provenance string
		var verdictsRaw []byte
		var createdAt time.Time
		err := rows.Scan(
			&record.SessionID, &record.Question, &record.Answer, &provenance,
			&verdictsRaw, &record.FailureReason, &record.Explanation, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan answer record: %w", err)
		}
		if err := json.Unmarshal(verdictsRaw, &record.Verdicts); err != nil {
			return nil, fmt.Errorf("unmarshal verdicts: %w", err)
		}
		record.Provenance = domain.Provenance(provenance)
		record.CreatedAt = createdAt
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}
