package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflict_PairKeyIgnoresOrder(t *testing.T) {
	ab := Conflict{ClaimA: ClaimRef{ClaimID: "a"}, ClaimB: ClaimRef{ClaimID: "b"}}
	ba := Conflict{ClaimA: ClaimRef{ClaimID: "b"}, ClaimB: ClaimRef{ClaimID: "a"}}

	assert.Equal(t, "a|b", ab.PairKey())
	assert.Equal(t, ab.PairKey(), ba.PairKey())
}

func TestAtomicClaim_TripleAndRef(t *testing.T) {
	c := AtomicClaim{
		ID:              "c1",
		DocumentID:      "d1",
		SourceSectionID: "d1:0",
		Subject:         "bolts",
		Predicate:       "count",
		Object:          "8",
		OriginalText:    "Use 8 bolts.",
		Confidence:      0.9,
	}

	assert.Equal(t, "bolts count 8", c.Triple())
	assert.Equal(t, ClaimRef{ClaimID: "c1", DocumentID: "d1", SectionID: "d1:0", Text: "Use 8 bolts.", Confidence: 0.9}, c.Ref())
}

func TestConflictType_Valid(t *testing.T) {
	assert.True(t, ConflictValue.Valid())
	assert.True(t, ConflictImplication.Valid())
	assert.False(t, ConflictType("").Valid())
	assert.False(t, ConflictType("contradiction").Valid())
}

func TestMergeStrategy_Threshold(t *testing.T) {
	assert.Equal(t, DefaultConflictThreshold, MergeStrategy{}.Threshold())
	assert.Equal(t, 0.6, MergeStrategy{ConflictThreshold: 0.6}.Threshold())
}

func TestMergeStrategy_Validate(t *testing.T) {
	tests := []struct {
		name     string
		strategy MergeStrategy
		wantErr  bool
	}{
		{"zero value", MergeStrategy{}, false},
		{"authority", MergeStrategy{Mode: ModeAuthorityWins, ConflictResolution: PolicyAuto, ConflictThreshold: 1}, false},
		{"unknown mode", MergeStrategy{Mode: "oldest_wins"}, true},
		{"unknown policy", MergeStrategy{ConflictResolution: "ignore"}, true},
		{"negative threshold", MergeStrategy{ConflictThreshold: -0.1}, true},
		{"threshold above one", MergeStrategy{ConflictThreshold: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.strategy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
