// Package store persists record batches, validation findings, and relevance
// verdicts for the surrounding application. The QA report itself is never
// stored: it is recomputed on demand from the records.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/evidex/trialqa/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = eris.New("store: not found")

// BatchSummary is the listing row for stored batches.
type BatchSummary struct {
	ID                string    `json:"id"`
	Document          string    `json:"document"`
	SingleArm         int       `json:"single_arm"`
	Comparative       int       `json:"comparative"`
	CompletenessScore int       `json:"completeness_score"`
	CreatedAt         time.Time `json:"created_at"`
}

// Open creates a store for the configured driver and runs migrations.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	var st Store
	switch driver {
	case "sqlite", "":
		s, err := NewSQLite(databaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// Store defines the persistence interface shared by the SQLite and Postgres
// backends.
type Store interface {
	// Batches
	SaveBatch(ctx context.Context, batch *model.RecordBatch) error
	GetBatch(ctx context.Context, id string) (*model.RecordBatch, error)
	ListBatches(ctx context.Context, limit int) ([]BatchSummary, error)

	// Validation output. Saving replaces the batch's enhanced records and
	// its issue/enhancement sets; findings are display state, not history.
	SaveValidation(ctx context.Context, batchID string, res model.ValidationResult) error
	GetIssues(ctx context.Context, batchID string) ([]model.ValidationIssue, error)
	GetEnhancements(ctx context.Context, batchID string) ([]model.Enhancement, error)

	// Relevance verdicts, keyed by document name.
	SaveRelevance(ctx context.Context, document string, res model.RelevanceResult) error
	GetRelevance(ctx context.Context, document string) (*model.RelevanceResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
