package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/evidex/trialqa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	document     TEXT NOT NULL,
	single_arm   TEXT NOT NULL DEFAULT '[]',
	comparative  TEXT NOT NULL DEFAULT '[]',
	completeness INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
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
	new_value   TEXT,
	calculation TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relevance (
	document   TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_batches_document ON batches(document);
CREATE INDEX IF NOT EXISTS idx_issues_batch_id ON issues(batch_id);
CREATE INDEX IF NOT EXISTS idx_enhancements_batch_id ON enhancements(batch_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch *model.RecordBatch) error {
	singleJSON, err := json.Marshal(batch.SingleArm)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal single-arm records")
	}
	comparativeJSON, err := json.Marshal(batch.Comparative)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comparative records")
	}

	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (id, document, single_arm, comparative, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			single_arm = excluded.single_arm,
			comparative = excluded.comparative,
			updated_at = excluded.updated_at`,
		batch.ID, batch.Document, string(singleJSON), string(comparativeJSON),
		batch.CreatedAt, batch.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save batch %s", batch.ID)
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.RecordBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document, single_arm, comparative, created_at, updated_at
		FROM batches WHERE id = ?`, id)

	var batch model.RecordBatch
	var singleJSON, comparativeJSON string
	err := row.Scan(&batch.ID, &batch.Document, &singleJSON, &comparativeJSON,
		&batch.CreatedAt, &batch.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get batch %s", id)
	}

	if err := json.Unmarshal([]byte(singleJSON), &batch.SingleArm); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal single-arm records")
	}
	if err := json.Unmarshal([]byte(comparativeJSON), &batch.Comparative); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal comparative records")
	}
	return &batch, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document,
		       json_array_length(single_arm), json_array_length(comparative),
		       completeness, created_at
		FROM batches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.ID, &b.Document, &b.SingleArm, &b.Comparative,
			&b.CompletenessScore, &b.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch summary")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate batches")
}

func (s *SQLiteStore) SaveValidation(ctx context.Context, batchID string, res model.ValidationResult) error {
	singleJSON, err := json.Marshal(res.SingleArm)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal single-arm records")
	}
	comparativeJSON, err := json.Marshal(res.Comparative)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comparative records")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE batches SET single_arm = ?, comparative = ?, completeness = ?, updated_at = ?
		WHERE id = ?`,
		string(singleJSON), string(comparativeJSON), res.CompletenessScore,
		time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update batch %s", batchID)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE batch_id = ?`, batchID); err != nil {
		return eris.Wrap(err, "sqlite: clear issues")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM enhancements WHERE batch_id = ?`, batchID); err != nil {
		return eris.Wrap(err, "sqlite: clear enhancements")
	}

	for _, issue := range append(append([]model.ValidationIssue{}, res.Errors...), res.Warnings...) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO issues (batch_id, severity, field, message, row_index, row_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			batchID, string(issue.Severity), issue.Field, issue.Message,
			issue.RowIndex, issue.RowID,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert issue")
		}
	}

	for _, enh := range res.Enhancements {
		valueJSON, err := json.Marshal(enh.NewValue)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal enhancement value")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enhancements (batch_id, row_index, row_id, field, new_value, calculation)
			VALUES (?, ?, ?, ?, ?, ?)`,
			batchID, enh.RowIndex, enh.RowID, enh.Field, string(valueJSON), enh.Calculation,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert enhancement")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit validation")
}

func (s *SQLiteStore) GetIssues(ctx context.Context, batchID string) ([]model.ValidationIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, field, message, row_index, row_id
		FROM issues WHERE batch_id = ? ORDER BY row_index`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get issues %s", batchID)
	}
	defer rows.Close()

	var out []model.ValidationIssue
	for rows.Next() {
		var issue model.ValidationIssue
		var severity string
		if err := rows.Scan(&severity, &issue.Field, &issue.Message, &issue.RowIndex, &issue.RowID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan issue")
		}
		issue.Severity = model.Severity(severity)
		out = append(out, issue)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate issues")
}

func (s *SQLiteStore) GetEnhancements(ctx context.Context, batchID string) ([]model.Enhancement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, row_id, field, new_value, calculation
		FROM enhancements WHERE batch_id = ? ORDER BY row_index`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get enhancements %s", batchID)
	}
	defer rows.Close()

	var out []model.Enhancement
	for rows.Next() {
		var enh model.Enhancement
		var valueJSON sql.NullString
		if err := rows.Scan(&enh.RowIndex, &enh.RowID, &enh.Field, &valueJSON, &enh.Calculation); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enhancement")
		}
		if valueJSON.Valid {
			if err := json.Unmarshal([]byte(valueJSON.String), &enh.NewValue); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal enhancement value")
			}
		}
		out = append(out, enh)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate enhancements")
}

func (s *SQLiteStore) SaveRelevance(ctx context.Context, document string, res model.RelevanceResult) error {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal relevance result")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relevance (document, result, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(document) DO UPDATE SET result = excluded.result, created_at = excluded.created_at`,
		document, string(resultJSON), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save relevance %s", document)
}

func (s *SQLiteStore) GetRelevance(ctx context.Context, document string) (*model.RelevanceResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT result FROM relevance WHERE document = ?`, document)

	var resultJSON string
	err := row.Scan(&resultJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get relevance %s", document)
	}

	var res model.RelevanceResult
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal relevance result")
	}
	return &res, nil
}
