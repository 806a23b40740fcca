package models

import (
	"errors"
	"fmt"
	"time"
)

// Document represents a source document taking part in a consolidation
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	SourcePath string    `json:"source_path" yaml:"source_path"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Sections   []Section `json:"sections" yaml:"sections"`
}

// Section represents a headed part of a document
type Section struct {
	ID         string `json:"id" yaml:"id"`
	DocumentID string `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Header     string `json:"header" yaml:"header"`
	Level      int    `json:"level,omitempty" yaml:"level,omitempty"`
	Content    string `json:"content,omitempty" yaml:"content,omitempty"`
}

// Span is a character range inside a section
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// AtomicClaim is a single verifiable fact extracted from a document section
type AtomicClaim struct {
	ID              string  `json:"id" yaml:"id"`
	OriginalText    string  `json:"original_text" yaml:"original_text"`
	Subject         string  `json:"subject" yaml:"subject"`
	Predicate       string  `json:"predicate" yaml:"predicate"`
	Object          string  `json:"object" yaml:"object"`
	Qualifier       string  `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	SourceSectionID string  `json:"source_section_id" yaml:"source_section_id"`
	DocumentID      string  `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	SourceSpan      Span    `json:"source_span" yaml:"source_span"`
}

// Triple renders the claim as "subject predicate object"
func (c AtomicClaim) Triple() string {
	return c.Subject + " " + c.Predicate + " " + c.Object
}

// Ref returns the reduced view of the claim carried by conflicts
func (c AtomicClaim) Ref() ClaimRef {
	return ClaimRef{
		ClaimID:    c.ID,
		DocumentID: c.DocumentID,
		SectionID:  c.SourceSectionID,
		Text:       c.OriginalText,
		Confidence: c.Confidence,
	}
}

// ClaimRef is the reduced view of a claim referenced from a conflict
type ClaimRef struct {
	ClaimID    string  `json:"claim_id" yaml:"claim_id"`
	DocumentID string  `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	SectionID  string  `json:"section_id,omitempty" yaml:"section_id,omitempty"`
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ConflictType represents the kind of disagreement between two claims
type ConflictType string

const (
	ConflictDirectNegation ConflictType = "direct_negation"
	ConflictValue          ConflictType = "value_conflict"
	ConflictTemporal       ConflictType = "temporal_conflict"
	ConflictScope          ConflictType = "scope_conflict"
	ConflictImplication    ConflictType = "implication_conflict"
)

// Valid reports whether t is one of the known conflict types
func (t ConflictType) Valid() bool {
	switch t {
	case ConflictDirectNegation, ConflictValue, ConflictTemporal, ConflictScope, ConflictImplication:
		return true
	default:
		return false
	}
}

// DetectionMethod names the strategy that found a conflict
type DetectionMethod string

const (
	DetectedBySemantic        DetectionMethod = "semantic"
	DetectedByEntityGraph     DetectionMethod = "entity_graph"
	DetectedByValueExtraction DetectionMethod = "value_extraction"
)

// Conflict is a detected disagreement between exactly two claims
type Conflict struct {
	ID              string          `json:"id" yaml:"id"`
	ClaimA          ClaimRef        `json:"claim_a" yaml:"claim_a"`
	ClaimB          ClaimRef        `json:"claim_b" yaml:"claim_b"`
	ConflictType    ConflictType    `json:"conflict_type" yaml:"conflict_type"`
	Strength        float64         `json:"strength" yaml:"strength"`
	DetectedBy      DetectionMethod `json:"detected_by" yaml:"detected_by"`
	ResolutionHints []string        `json:"resolution_hints,omitempty" yaml:"resolution_hints,omitempty"`
	Explanation     string          `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Verified        bool            `json:"verified" yaml:"verified"`
	CreatedAt       time.Time       `json:"created_at" yaml:"created_at"`
}

// PairKey returns the order-independent key of the claim pair
func (c Conflict) PairKey() string {
	a, b := c.ClaimA.ClaimID, c.ClaimB.ClaimID
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Resolution is the terminal outcome of an auto-resolved conflict
type Resolution string

const (
	ResolutionClaimAWins Resolution = "claim_a_wins"
	ResolutionClaimBWins Resolution = "claim_b_wins"
	ResolutionMerged     Resolution = "merged"
)

// ResolvedConflict is a conflict settled without human review
type ResolvedConflict struct {
	Conflict       Conflict   `json:"conflict"`
	Resolution     Resolution `json:"resolution"`
	Reasoning      string     `json:"reasoning"`
	Confidence     float64    `json:"confidence"`
	WinningClaimID string     `json:"winning_claim_id,omitempty"`
	MergedText     string     `json:"merged_text,omitempty"`
}

// FlaggedConflict is a conflict deferred to human review
type FlaggedConflict struct {
	Conflict   Conflict `json:"conflict"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// MergeMode selects the resolution algorithm
type MergeMode string

const (
	ModeNewestWins    MergeMode = "newest_wins"
	ModeAuthorityWins MergeMode = "authority_wins"
	ModeSmart         MergeMode = "smart"
)

// ConflictPolicy decides whether conflicts are resolved at all
type ConflictPolicy string

const (
	PolicyAuto    ConflictPolicy = "auto"
	PolicyFlagAll ConflictPolicy = "flag_all"
)

// DefaultConflictThreshold is the minimum resolver confidence to auto-accept
const DefaultConflictThreshold = 0.8

// MergeStrategy is the caller supplied merge configuration
type MergeStrategy struct {
	Mode               MergeMode      `json:"mode" yaml:"mode" mapstructure:"mode"`
	ConflictResolution ConflictPolicy `json:"conflictResolution" yaml:"conflictResolution" mapstructure:"conflict_resolution"`
	ConflictThreshold  float64        `json:"conflictThreshold" yaml:"conflictThreshold" mapstructure:"conflict_threshold"`
	AuthorityOrder     []string       `json:"authorityOrder,omitempty" yaml:"authorityOrder,omitempty" mapstructure:"authority_order"`
}

// Threshold returns the configured threshold or the default when unset
func (s MergeStrategy) Threshold() float64 {
	if s.ConflictThreshold <= 0 {
		return DefaultConflictThreshold
	}
	return s.ConflictThreshold
}

// Validate rejects unknown modes and policies so that typos do not silently
// fall back to smart resolution
func (s MergeStrategy) Validate() error {
	switch s.Mode {
	case "", ModeNewestWins, ModeAuthorityWins, ModeSmart:
	default:
		return fmt.Errorf("unknown merge mode %q", s.Mode)
	}

	switch s.ConflictResolution {
	case "", PolicyAuto, PolicyFlagAll:
	default:
		return fmt.Errorf("unknown conflict resolution %q", s.ConflictResolution)
	}

	if s.ConflictThreshold < 0 || s.ConflictThreshold > 1 {
		return errors.New("conflictThreshold must be between 0 and 1")
	}
	return nil
}

// Provenance records which source section contributed to a merged section
type Provenance struct {
	DocumentID       string  `json:"document_id"`
	SectionID        string  `json:"section_id"`
	ContributionType string  `json:"contribution_type"`
	Confidence       float64 `json:"confidence"`
}

// MergedSection is one topic of the consolidated document
type MergedSection struct {
	ID         string       `json:"id"`
	Topic      string       `json:"topic"`
	Header     string       `json:"header"`
	Content    string       `json:"content"`
	Provenance []Provenance `json:"provenance"`
}

// Statistics summarizes a consolidation
type Statistics struct {
	DocumentsMerged             int     `json:"documents_merged"`
	OriginalSections            int     `json:"original_sections"`
	SectionsMerged              int     `json:"sections_merged"`
	ConflictsAutoResolved       int     `json:"conflicts_auto_resolved"`
	ConflictsFlagged            int     `json:"conflicts_flagged"`
	RedundancyEliminatedPercent float64 `json:"redundancy_eliminated_percent"`
}

// MergeResult is the consolidated document with its conflict outcomes
type MergeResult struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Content           string             `json:"content"`
	Sections          []MergedSection    `json:"sections"`
	ConflictsResolved []ResolvedConflict `json:"conflicts_resolved"`
	ConflictsFlagged  []FlaggedConflict  `json:"conflicts_flagged"`
	Statistics        Statistics         `json:"statistics"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// FindingSeverity grades a validation finding
type FindingSeverity string

const (
	SeverityWarning FindingSeverity = "warning"
	SeverityInfo    FindingSeverity = "info"
)

// ValidationFinding is an advisory data-quality note attached to a claim
type ValidationFinding struct {
	ClaimID  string          `json:"claim_id" yaml:"claim_id"`
	Field    string          `json:"field" yaml:"field"`
	Severity FindingSeverity `json:"severity" yaml:"severity"`
	Message  string          `json:"message" yaml:"message"`
}
