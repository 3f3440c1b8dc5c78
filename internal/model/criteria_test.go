package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchCriteriaIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchCriteria{}.IsZero())
	assert.False(t, MatchCriteria{Condition: "atopic dermatitis"}.IsZero())
	assert.False(t, MatchCriteria{Drugs: []Drug{{Name: "dupilumab"}}}.IsZero())
	assert.False(t, MatchCriteria{AgeMax: 65}.IsZero())
	assert.False(t, MatchCriteria{Severity: "moderate"}.IsZero())
}
