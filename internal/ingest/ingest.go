// Package ingest loads record batches handed off by the extraction
// collaborator. JSON is the native interchange shape; CSV and XLSX cover the
// spreadsheet exports reviewers tend to work in. Malformed numeric cells are
// treated as absent values, never as load failures.
package ingest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/evidex/trialqa/internal/model"
)

// Load reads a record batch from path, dispatching on the file extension.
func Load(path string) (*model.RecordBatch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadJSON reads a batch in the native interchange shape:
// {"document": "...", "single_arm": [...], "comparative": [...]}.
func LoadJSON(path string) (*model.RecordBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read json")
	}

	var batch model.RecordBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, eris.Wrap(err, "ingest: parse json")
	}
	finishBatch(&batch, path)
	return &batch, nil
}

// finishBatch fills identity and timestamps for a freshly loaded batch.
func finishBatch(batch *model.RecordBatch, path string) {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.Document == "" {
		batch.Document = filepath.Base(path)
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now
}
