package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/todmy/doc-consolidator/internal/contradiction"
	"github.com/todmy/doc-consolidator/pkg/models"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	resolvedColor = color.New(color.FgGreen)
	flaggedColor  = color.New(color.FgYellow)
	warningColor  = color.New(color.FgRed)
	infoColor     = color.New(color.FgBlue)
)

func printConflicts(w io.Writer, conflicts []models.Conflict) {
	headerColor.Fprintf(w, "%d conflict(s) detected\n", len(conflicts))
	if len(conflicts) > 0 {
		fmt.Fprintf(w, "  by method: %s\n", tally(contradiction.GroupByMethod(conflicts)))
		fmt.Fprintf(w, "  by type: %s\n", tally(contradiction.GroupByType(conflicts)))
	}
	for _, c := range conflicts {
		verified := ""
		if c.Verified {
			verified = " verified"
		}
		fmt.Fprintf(w, "  [%s/%s%s] %q vs %q\n", c.DetectedBy, c.ConflictType, verified, c.ClaimA.Text, c.ClaimB.Text)
	}
}

// tally renders group sizes as "key=n" pairs in key order
func tally[K ~string](groups map[K][]models.Conflict) string {
	parts := make([]string, 0, len(groups))
	for _, k := range slices.Sorted(maps.Keys(groups)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, len(groups[k])))
	}
	return strings.Join(parts, " ")
}

func printSummary(w io.Writer, result *models.MergeResult) {
	s := result.Statistics
	headerColor.Fprintf(w, "%s\n", result.Title)
	fmt.Fprintf(w, "  %d document(s), %d section(s) merged into %d, %.2f%% redundancy eliminated\n",
		s.DocumentsMerged, s.OriginalSections, s.SectionsMerged, s.RedundancyEliminatedPercent)

	resolvedColor.Fprintf(w, "  %d conflict(s) auto-resolved\n", s.ConflictsAutoResolved)
	for _, r := range result.ConflictsResolved {
		fmt.Fprintf(w, "    %s %s: %s\n", r.Conflict.ID, r.Resolution, r.Reasoning)
	}

	if s.ConflictsFlagged == 0 {
		return
	}
	flaggedColor.Fprintf(w, "  %d conflict(s) flagged for review\n", s.ConflictsFlagged)
	for _, f := range result.ConflictsFlagged {
		fmt.Fprintf(w, "    %s: %q vs %q (%s)\n", f.Conflict.ID, f.Conflict.ClaimA.Text, f.Conflict.ClaimB.Text, f.Reason)
	}
}

func printFindings(w io.Writer, findings []models.ValidationFinding) {
	for _, f := range findings {
		c := infoColor
		if f.Severity == models.SeverityWarning {
			c = warningColor
		}
		c.Fprintf(w, "%-7s", f.Severity)
		fmt.Fprintf(w, " %s %s: %s\n", f.ClaimID, f.Field, f.Message)
	}
}
