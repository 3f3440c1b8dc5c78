package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQAReportIssueCount(t *testing.T) {
	t.Parallel()

	report := QAReport{
		Errors:   make([]ValidationIssue, 2),
		Warnings: make([]ValidationIssue, 3),
		Info:     make([]ValidationIssue, 1),
	}
	assert.Equal(t, 6, report.IssueCount())

	empty := QAReport{}
	assert.Equal(t, 0, empty.IssueCount())
}
