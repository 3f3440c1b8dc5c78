package ingest

import (
	"strconv"
	"strings"

	"github.com/evidex/trialqa/internal/model"
)

// columnIndex maps normalized header names to their column position.
type columnIndex map[string]int

// indexHeader normalizes a header row: lowercase, trimmed, spaces collapsed
// to underscores, so "Measure Name", "measure_name" and "MEASURE NAME" all
// address the same column.
func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if key != "" {
			idx[key] = i
		}
	}
	return idx
}

// isComparative reports whether a header row describes two-arm contrasts.
func (c columnIndex) isComparative() bool {
	_, t1 := c["treatment1"]
	_, t2 := c["treatment2"]
	return t1 && t2
}

func (c columnIndex) str(row []string, keys ...string) string {
	for _, key := range keys {
		if i, ok := c[key]; ok && i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// optInt parses an optional integer cell; anything unparseable is absent.
func (c columnIndex) optInt(row []string, keys ...string) *int {
	s := c.str(row, keys...)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

// optFloat parses an optional numeric cell; anything unparseable is absent.
func (c columnIndex) optFloat(row []string, keys ...string) *float64 {
	s := c.str(row, keys...)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (c columnIndex) boolean(row []string, keys ...string) bool {
	switch strings.ToLower(c.str(row, keys...)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

// fromRows converts a header-plus-rows table into batch records, choosing the
// record shape from the header.
func fromRows(header []string, rows [][]string) ([]model.SingleArmRecord, []model.ComparativeRecord) {
	idx := indexHeader(header)
	if idx.isComparative() {
		recs := make([]model.ComparativeRecord, 0, len(rows))
		for _, row := range rows {
			if emptyRow(row) {
				continue
			}
			recs = append(recs, comparativeFromRow(idx, row))
		}
		return nil, recs
	}

	recs := make([]model.SingleArmRecord, 0, len(rows))
	for _, row := range rows {
		if emptyRow(row) {
			continue
		}
		recs = append(recs, singleArmFromRow(idx, row))
	}
	return recs, nil
}

func singleArmFromRow(idx columnIndex, row []string) model.SingleArmRecord {
	return model.SingleArmRecord{
		ID:          idx.str(row, "id"),
		Study:       idx.str(row, "study"),
		Treatment:   idx.str(row, "treatment"),
		MeasureName: idx.str(row, "measure_name", "measure"),
		TimePoint:   idx.str(row, "time_point", "timepoint"),

		N:     idx.optInt(row, "n"),
		Event: idx.optInt(row, "event", "events"),
		Time:  idx.optFloat(row, "time"),
		Mean:  idx.optFloat(row, "mean"),
		SD:    idx.optFloat(row, "sd"),
		TE:    idx.optFloat(row, "te"),
		SETE:  idx.optFloat(row, "se_te", "sete"),

		Page:  idx.str(row, "page"),
		Table: idx.str(row, "table"),
		Ref:   idx.str(row, "ref"),

		Population:   idx.str(row, "population"),
		Intervention: idx.str(row, "intervention"),
		Comparator:   idx.str(row, "comparator"),
		Outcome:      idx.str(row, "outcome"),
		Timing:       idx.str(row, "timing"),
		Setting:      idx.str(row, "setting"),

		Sensitivity: idx.boolean(row, "sensitivity"),
		Exclude:     idx.boolean(row, "exclude"),
		Reviewed:    idx.boolean(row, "reviewed"),

		Notes:            idx.str(row, "notes"),
		CalculationNotes: idx.str(row, "calculation_notes"),
	}
}

func comparativeFromRow(idx columnIndex, row []string) model.ComparativeRecord {
	return model.ComparativeRecord{
		ID:          idx.str(row, "id"),
		Study:       idx.str(row, "study"),
		Treatment1:  idx.str(row, "treatment1"),
		Treatment2:  idx.str(row, "treatment2"),
		MeasureName: idx.str(row, "measure_name", "measure"),
		TimePoint:   idx.str(row, "time_point", "timepoint"),

		N1:     idx.optInt(row, "n1"),
		N2:     idx.optInt(row, "n2"),
		Event1: idx.optInt(row, "event1"),
		Event2: idx.optInt(row, "event2"),
		Time:   idx.optFloat(row, "time"),
		TE:     idx.optFloat(row, "te"),
		SETE:   idx.optFloat(row, "se_te", "sete"),

		Page:  idx.str(row, "page"),
		Table: idx.str(row, "table"),
		Ref:   idx.str(row, "ref"),

		Population:   idx.str(row, "population"),
		Intervention: idx.str(row, "intervention"),
		Comparator:   idx.str(row, "comparator"),
		Outcome:      idx.str(row, "outcome"),
		Timing:       idx.str(row, "timing"),
		Setting:      idx.str(row, "setting"),

		Sensitivity: idx.boolean(row, "sensitivity"),
		Exclude:     idx.boolean(row, "exclude"),
		Reviewed:    idx.boolean(row, "reviewed"),

		Notes:            idx.str(row, "notes"),
		CalculationNotes: idx.str(row, "calculation_notes"),
	}
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
