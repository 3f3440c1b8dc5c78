package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/evidex/trialqa/internal/model"
)

// Pool abstracts the pgxpool methods the store uses so unit tests can
// substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// PostgresStore implements Store using a pgx connection pool. It exists for
// shared-team deployments; single-reviewer installs default to SQLite.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	document     TEXT NOT NULL,
	single_arm   JSONB NOT NULL DEFAULT '[]',
	comparative  JSONB NOT NULL DEFAULT '[]',
	completeness INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS issues (
	batch_id  TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	severity  TEXT NOT NULL,
	field     TEXT NOT NULL,
	message   TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	row_id    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS enhancements (
	batch_id    TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	row_index   INTEGER NOT NULL,
	row_id      TEXT NOT NULL DEFAULT '',
	field       TEXT NOT NULL,
	new_value   JSONB,
	calculation TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relevance (
	document   TEXT PRIMARY KEY,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_batches_document ON batches(document);
CREATE INDEX IF NOT EXISTS idx_issues_batch_id ON issues(batch_id);
CREATE INDEX IF NOT EXISTS idx_enhancements_batch_id ON enhancements(batch_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveBatch(ctx context.Context, batch *model.RecordBatch) error {
	singleJSON, err := json.Marshal(batch.SingleArm)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal single-arm records")
	}
	comparativeJSON, err := json.Marshal(batch.Comparative)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comparative records")
	}

	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO batches (id, document, single_arm, comparative, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			single_arm = EXCLUDED.single_arm,
			comparative = EXCLUDED.comparative,
			updated_at = EXCLUDED.updated_at`,
		batch.ID, batch.Document, singleJSON, comparativeJSON,
		batch.CreatedAt, batch.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save batch %s", batch.ID)
}

func (s *PostgresStore) GetBatch(ctx context.Context, id string) (*model.RecordBatch, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, document, single_arm, comparative, created_at, updated_at
		FROM batches WHERE id = $1`, id)

	var batch model.RecordBatch
	var singleJSON, comparativeJSON []byte
	err := row.Scan(&batch.ID, &batch.Document, &singleJSON, &comparativeJSON,
		&batch.CreatedAt, &batch.UpdatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", id)
	}

	if err := json.Unmarshal(singleJSON, &batch.SingleArm); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal single-arm records")
	}
	if err := json.Unmarshal(comparativeJSON, &batch.Comparative); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal comparative records")
	}
	return &batch, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, document,
		       jsonb_array_length(single_arm), jsonb_array_length(comparative),
		       completeness, created_at
		FROM batches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.ID, &b.Document, &b.SingleArm, &b.Comparative,
			&b.CompletenessScore, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch summary")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate batches")
}

func (s *PostgresStore) SaveValidation(ctx context.Context, batchID string, res model.ValidationResult) error {
	singleJSON, err := json.Marshal(res.SingleArm)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal single-arm records")
	}
	comparativeJSON, err := json.Marshal(res.Comparative)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comparative records")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE batches SET single_arm = $1, comparative = $2, completeness = $3, updated_at = $4
		WHERE id = $5`,
		singleJSON, comparativeJSON, res.CompletenessScore, time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM issues WHERE batch_id = $1`, batchID); err != nil {
		return eris.Wrap(err, "postgres: clear issues")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM enhancements WHERE batch_id = $1`, batchID); err != nil {
		return eris.Wrap(err, "postgres: clear enhancements")
	}

	for _, issue := range append(append([]model.ValidationIssue{}, res.Errors...), res.Warnings...) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO issues (batch_id, severity, field, message, row_index, row_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			batchID, string(issue.Severity), issue.Field, issue.Message,
			issue.RowIndex, issue.RowID,
		); err != nil {
			return eris.Wrap(err, "postgres: insert issue")
		}
	}

	for _, enh := range res.Enhancements {
		valueJSON, err := json.Marshal(enh.NewValue)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal enhancement value")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO enhancements (batch_id, row_index, row_id, field, new_value, calculation)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			batchID, enh.RowIndex, enh.RowID, enh.Field, valueJSON, enh.Calculation,
		); err != nil {
			return eris.Wrap(err, "postgres: insert enhancement")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit validation")
}

func (s *PostgresStore) GetIssues(ctx context.Context, batchID string) ([]model.ValidationIssue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT severity, field, message, row_index, row_id
		FROM issues WHERE batch_id = $1 ORDER BY row_index`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get issues %s", batchID)
	}
	defer rows.Close()

	var out []model.ValidationIssue
	for rows.Next() {
		var issue model.ValidationIssue
		var severity string
		if err := rows.Scan(&severity, &issue.Field, &issue.Message, &issue.RowIndex, &issue.RowID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan issue")
		}
		issue.Severity = model.Severity(severity)
		out = append(out, issue)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate issues")
}

func (s *PostgresStore) GetEnhancements(ctx context.Context, batchID string) ([]model.Enhancement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT row_index, row_id, field, new_value, calculation
		FROM enhancements WHERE batch_id = $1 ORDER BY row_index`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get enhancements %s", batchID)
	}
	defer rows.Close()

	var out []model.Enhancement
	for rows.Next() {
		var enh model.Enhancement
		var valueJSON []byte
		if err := rows.Scan(&enh.RowIndex, &enh.RowID, &enh.Field, &valueJSON, &enh.Calculation); err != nil {
			return nil, eris.Wrap(err, "postgres: scan enhancement")
		}
		if len(valueJSON) > 0 {
			if err := json.Unmarshal(valueJSON, &enh.NewValue); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal enhancement value")
			}
		}
		out = append(out, enh)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate enhancements")
}

func (s *PostgresStore) SaveRelevance(ctx context.Context, document string, res model.RelevanceResult) error {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal relevance result")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO relevance (document, result, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (document) DO UPDATE SET result = EXCLUDED.result, created_at = EXCLUDED.created_at`,
		document, resultJSON, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save relevance %s", document)
}

func (s *PostgresStore) GetRelevance(ctx context.Context, document string) (*model.RelevanceResult, error) {
	row := s.pool.QueryRow(ctx, `SELECT result FROM relevance WHERE document = $1`, document)

	var resultJSON []byte
	err := row.Scan(&resultJSON)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get relevance %s", document)
	}

	var res model.RelevanceResult
	if err := json.Unmarshal(resultJSON, &res); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal relevance result")
	}
	return &res, nil
}
