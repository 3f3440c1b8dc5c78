package ingest

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/evidex/trialqa/internal/model"
)

// LoadCSV reads a record batch from a CSV export. The first row must be a
// header; the header decides whether the rows are single-arm or comparative.
func LoadCSV(path string) (*model.RecordBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are common in hand-edited exports

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read csv")
	}
	if len(rows) == 0 {
		return nil, eris.New("ingest: csv file is empty")
	}

	batch := &model.RecordBatch{}
	batch.SingleArm, batch.Comparative = fromRows(rows[0], rows[1:])
	finishBatch(batch, path)
	return batch, nil
}
