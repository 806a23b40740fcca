package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todmy/doc-consolidator/internal/llm"
	"github.com/todmy/doc-consolidator/internal/llm/llmtest"
	"github.com/todmy/doc-consolidator/pkg/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEngine(provider llm.Provider) *Engine {
	n := 0
	return NewEngine(provider, nil,
		WithClock(func() time.Time { return date("2024-07-01") }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func fixture() ([]models.Document, []models.AtomicClaim, []models.Conflict) {
	docs := []models.Document{
		{ID: "d1", Title: "Pump Maintenance Guide", SourcePath: "specs/x.md", CreatedAt: date("2024-01-01"),
			Sections: []models.Section{{ID: "S1", Header: "Bolts"}, {ID: "S3", Header: "Pressure"}}},
		{ID: "d2", Title: "Pump Maintenance Notes", SourcePath: "notes/y.md", CreatedAt: date("2024-06-01"),
			Sections: []models.Section{{ID: "S2", Header: "Bolts"}, {ID: "S4", Header: "Misc"}}},
	}
	claims := []models.AtomicClaim{
		{ID: "a", OriginalText: "The flange uses 8 bolts", Subject: "bolt_count", Predicate: "value", Object: "8", Confidence: 0.9, SourceSectionID: "S1", DocumentID: "d1"},
		{ID: "b", OriginalText: "The flange uses 12 bolts", Subject: "bolt_count", Predicate: "value", Object: "12", Confidence: 0.8, SourceSectionID: "S2", DocumentID: "d2"},
		{ID: "c", OriginalText: "Max pressure is 10 bar at 20C", Subject: "Pressure", Predicate: "max", Object: "10 bar", Qualifier: "at 20C", Confidence: 0.7, SourceSectionID: "S3", DocumentID: "d1"},
	}
	conflicts := []models.Conflict{{
		ID:           "conflict-1",
		ClaimA:       claims[0].Ref(),
		ClaimB:       claims[1].Ref(),
		ConflictType: models.ConflictValue,
		Strength:     0.95,
		DetectedBy:   models.DetectedByValueExtraction,
	}}
	return docs, claims, conflicts
}

func TestMerge_NewestWins(t *testing.T) {
	docs, claims, conflicts := fixture()

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeNewestWins})
	require.NoError(t, err)
	require.Len(t, result.ConflictsResolved, 1)
	assert.Empty(t, result.ConflictsFlagged)

	rc := result.ConflictsResolved[0]
	assert.Equal(t, models.ResolutionClaimBWins, rc.Resolution)
	assert.Equal(t, "b", rc.WinningClaimID)
	assert.Equal(t, 0.9, rc.Confidence)
	assert.Contains(t, rc.Reasoning, "newer")
}

func TestMerge_NewestWins_EqualTimestamps(t *testing.T) {
	docs, claims, conflicts := fixture()
	docs[1].CreatedAt = docs[0].CreatedAt

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeNewestWins, ConflictThreshold: 0.1})
	require.NoError(t, err)
	require.Len(t, result.ConflictsFlagged, 1)
	assert.Equal(t, 0.5, result.ConflictsFlagged[0].Confidence)
	assert.Equal(t, "Both documents have the same creation time", result.ConflictsFlagged[0].Reason)
}

func TestMerge_NewestWins_MissingDocuments(t *testing.T) {
	_, claims, conflicts := fixture()

	result, err := newTestEngine(nil).Merge(context.Background(), nil, claims, conflicts, models.MergeStrategy{Mode: models.ModeNewestWins})
	require.NoError(t, err)
	require.Len(t, result.ConflictsFlagged, 1)
	assert.Equal(t, 0.0, result.ConflictsFlagged[0].Confidence)
}

func TestMerge_OwnerFallsBackToDocumentID(t *testing.T) {
	docs, claims, conflicts := fixture()
	conflicts[0].ClaimA.SectionID = "unknown"

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeNewestWins})
	require.NoError(t, err)
	require.Len(t, result.ConflictsResolved, 1)
	assert.Equal(t, "b", result.ConflictsResolved[0].WinningClaimID)
}

func TestMerge_FlagAll(t *testing.T) {
	docs, claims, conflicts := fixture()
	conflicts = append(conflicts, models.Conflict{ID: "conflict-2", ClaimA: claims[0].Ref(), ClaimB: claims[2].Ref()})
	provider := llmtest.Static(`{"choice": "chose_a", "confidence": 1}`)

	result, err := newTestEngine(provider).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{ConflictResolution: models.PolicyFlagAll})
	require.NoError(t, err)
	assert.Empty(t, result.ConflictsResolved)
	require.Len(t, result.ConflictsFlagged, 2)
	for _, f := range result.ConflictsFlagged {
		assert.Equal(t, "Strategy requires manual resolution", f.Reason)
	}
	assert.Empty(t, provider.Calls())
	assert.Equal(t, 2, result.Statistics.ConflictsFlagged)
}

func TestMerge_AuthorityWins(t *testing.T) {
	docs, claims, conflicts := fixture()
	strategy := models.MergeStrategy{Mode: models.ModeAuthorityWins, AuthorityOrder: []string{"specs/*", "notes/*"}}

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, strategy)
	require.NoError(t, err)
	require.Len(t, result.ConflictsResolved, 1)

	rc := result.ConflictsResolved[0]
	assert.Equal(t, models.ResolutionClaimAWins, rc.Resolution)
	assert.Equal(t, "a", rc.WinningClaimID)
	assert.Equal(t, 0.85, rc.Confidence)
}

func TestMerge_AuthorityWins_Tie(t *testing.T) {
	docs, claims, conflicts := fixture()
	strategy := models.MergeStrategy{Mode: models.ModeAuthorityWins, AuthorityOrder: []string{"drafts/*"}}

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, strategy)
	require.NoError(t, err)
	require.Len(t, result.ConflictsFlagged, 1)
	assert.Equal(t, 0.5, result.ConflictsFlagged[0].Confidence)
	assert.Contains(t, result.ConflictsFlagged[0].Reason, "equal authority")
}

func TestMerge_ThresholdBoundary(t *testing.T) {
	docs, claims, conflicts := fixture()

	result, err := newTestEngine(llmtest.Static(`{"choice": "chose_a", "confidence": 0.8, "reasoning": "spec sheet is authoritative"}`)).
		Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeSmart})
	require.NoError(t, err)
	require.Len(t, result.ConflictsResolved, 1)
	assert.Empty(t, result.ConflictsFlagged)
	assert.Equal(t, "spec sheet is authoritative", result.ConflictsResolved[0].Reasoning)

	result, err = newTestEngine(llmtest.Static(`{"choice": "chose_a", "confidence": 0.5}`)).
		Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{})
	require.NoError(t, err)
	assert.Empty(t, result.ConflictsResolved)
	require.Len(t, result.ConflictsFlagged, 1)
	assert.Equal(t, "Confidence 0.5 below threshold 0.8", result.ConflictsFlagged[0].Reason)
	assert.Equal(t, 0.5, result.ConflictsFlagged[0].Confidence)
}

func TestMerge_SmartMerged(t *testing.T) {
	docs, claims, conflicts := fixture()
	provider := llmtest.Static("```json\n{\"choice\": \"merged\", \"confidence\": 0.9, \"reasoning\": \"both valid\", \"merged_text\": \"The flange uses 8 or 12 bolts depending on size\"}\n```")
	strategy := models.MergeStrategy{Mode: models.ModeSmart, AuthorityOrder: []string{"specs/*"}}

	result, err := newTestEngine(provider).Merge(context.Background(), docs, claims, conflicts, strategy)
	require.NoError(t, err)
	require.Len(t, result.ConflictsResolved, 1)
	assert.Equal(t, models.ResolutionMerged, result.ConflictsResolved[0].Resolution)
	assert.Equal(t, "The flange uses 8 or 12 bolts depending on size", result.ConflictsResolved[0].MergedText)
	assert.Empty(t, result.ConflictsResolved[0].WinningClaimID)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "The flange uses 8 bolts")
	assert.Contains(t, calls[0].Prompt, "value_conflict")
	assert.Contains(t, calls[0].Prompt, "specs/*")
}

func TestMerge_SmartMergedWithoutTextIsFlagged(t *testing.T) {
	docs, claims, conflicts := fixture()
	provider := llmtest.Static(`{"choice": "merged", "confidence": 0.95, "reasoning": "combine"}`)

	result, err := newTestEngine(provider).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeSmart})
	require.NoError(t, err)
	assert.Empty(t, result.ConflictsResolved)
	require.Len(t, result.ConflictsFlagged, 1)
	assert.Equal(t, "Merged resolution proposed without merged text", result.ConflictsFlagged[0].Reason)
	assert.Equal(t, 0.95, result.ConflictsFlagged[0].Confidence)
}

func TestMerge_SmartParseErrorIsReturned(t *testing.T) {
	docs, claims, conflicts := fixture()

	for _, resp := range []string{
		"no json here",
		`{"choice": "chose_c", "confidence": 0.9}`,
		`{"choice": "chose_a", "confidence": 1.5}`,
		`{"choice": "chose_a"}`,
	} {
		_, err := newTestEngine(llmtest.Static(resp)).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{})
		require.Error(t, err, resp)
		assert.True(t, llm.IsParseError(err), resp)
		assert.Contains(t, err.Error(), "conflict-1")
		assert.Contains(t, err.Error(), "fake-model")
	}
}

func TestMerge_SmartProviderError(t *testing.T) {
	docs, claims, conflicts := fixture()
	provider := &llmtest.Fake{Respond: func(llm.GenerateRequest) (string, error) {
		return "", errors.New("connection reset")
	}}

	_, err := newTestEngine(provider).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{})
	require.Error(t, err)
	assert.False(t, llm.IsParseError(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMerge_SmartWithoutProvider(t *testing.T) {
	docs, claims, conflicts := fixture()

	_, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeSmart})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestMerge_Sections(t *testing.T) {
	docs, claims, _ := fixture()
	claims = append(claims, models.AtomicClaim{ID: "d", Subject: "BOLT_COUNT", Predicate: "value", Object: "10", Confidence: 0.9, SourceSectionID: "S4", DocumentID: "d2"})

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, nil, models.MergeStrategy{})
	require.NoError(t, err)
	require.Len(t, result.Sections, 2)

	bolts := result.Sections[0]
	assert.Equal(t, "bolt_count", bolts.Topic)
	assert.Equal(t, "Bolt Count", bolts.Header)
	assert.Equal(t, "- **value**: 8", bolts.Content)
	require.Len(t, bolts.Provenance, 3)
	assert.Equal(t, models.Provenance{DocumentID: "d1", SectionID: "S1", ContributionType: "primary", Confidence: 0.9}, bolts.Provenance[0])
	assert.Equal(t, "S4", bolts.Provenance[2].SectionID)
	assert.Equal(t, "d2", bolts.Provenance[2].DocumentID)

	pressure := result.Sections[1]
	assert.Equal(t, "Pressure", pressure.Header)
	assert.Equal(t, "- **max**: 10 bar _(at 20C)_", pressure.Content)
}

func TestSectionContent_PredicatesIgnoreCase(t *testing.T) {
	content := sectionContent([]models.AtomicClaim{
		{ID: "a", Subject: "pump", Predicate: "Value", Object: "8", Confidence: 0.7},
		{ID: "b", Subject: "pump", Predicate: "value", Object: "12", Confidence: 0.9},
		{ID: "c", Subject: "pump", Predicate: "speed", Object: "50 Hz", Confidence: 0.5},
	})

	assert.Equal(t, "- **Value**: 12\n- **speed**: 50 Hz", content)
}

func TestMerge_ContentAndTitle(t *testing.T) {
	docs, claims, _ := fixture()

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, nil, models.MergeStrategy{})
	require.NoError(t, err)

	assert.Equal(t, "Pump Maintenance Guide", result.Title)
	assert.True(t, strings.HasPrefix(result.Content, "# Pump Maintenance Guide\n\n## Bolt Count\n\n- **value**: 8\n\n## Pressure"))
	assert.Equal(t, "id-3", result.ID)
	assert.Equal(t, date("2024-07-01"), result.GeneratedAt)
}

func TestMerge_Statistics(t *testing.T) {
	docs, claims, conflicts := fixture()

	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, conflicts, models.MergeStrategy{Mode: models.ModeNewestWins})
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{
		DocumentsMerged:             2,
		OriginalSections:            4,
		SectionsMerged:              2,
		ConflictsAutoResolved:       1,
		ConflictsFlagged:            0,
		RedundancyEliminatedPercent: 50,
	}, result.Statistics)
}

func TestMerge_NoDocuments(t *testing.T) {
	result, err := newTestEngine(nil).Merge(context.Background(), nil, nil, nil, models.MergeStrategy{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Statistics.RedundancyEliminatedPercent)
	assert.Equal(t, DefaultTitle, result.Title)
	assert.NotNil(t, result.ConflictsResolved)
	assert.NotNil(t, result.ConflictsFlagged)
}

func TestRedundancyPercent(t *testing.T) {
	assert.Equal(t, 0.0, redundancyPercent(0, 0))
	assert.Equal(t, 33.33, redundancyPercent(3, 2))
	assert.Equal(t, 66.67, redundancyPercent(3, 1))
	assert.Equal(t, -50.0, redundancyPercent(2, 3))
}

func TestGenerateTitle(t *testing.T) {
	assert.Equal(t, DefaultTitle, generateTitle(nil))
	assert.Equal(t, DefaultTitle, generateTitle([]models.Document{{Title: "A to Z"}}))
	assert.Equal(t, "Pump Maintenance Guide", generateTitle([]models.Document{
		{Title: "Pump Maintenance Guide"},
		{Title: "pump maintenance: notes"},
		{Title: "Pump safety"},
	}))
}

func TestGlob(t *testing.T) {
	assert.True(t, compileGlob("specs/*").match("SPECS/x.md"))
	assert.True(t, compileGlob("?.md").match("a.md"))
	assert.False(t, compileGlob("?.md").match("ab.md"))
	assert.False(t, compileGlob("a.b").match("axb"))
	assert.False(t, compileGlob("specs/*").match("old/specs/x.md"))
	assert.True(t, compileGlob("docs/(v1)/*").match("docs/(v1)/readme.md"))
}

func TestRenderHTML(t *testing.T) {
	docs, claims, _ := fixture()
	result, err := newTestEngine(nil).Merge(context.Background(), docs, claims, nil, models.MergeStrategy{})
	require.NoError(t, err)

	html, err := RenderHTML(result)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Pump Maintenance Guide</h1>")
	assert.Contains(t, html, "<h2>Bolt Count</h2>")
	assert.Contains(t, html, "<strong>value</strong>")
}
