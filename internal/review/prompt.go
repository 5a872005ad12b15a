package review

import (
	"fmt"
	"strings"

	"github.com/dealmap/promo-cli/internal/model"
)

// systemRubric is the fixed instruction set for promotion review. The
// model sees the heuristic score and flags and rules on each entry
// independently.
const systemRubric = `You are reviewing promotion entries that were automatically extracted from bar and restaurant websites. Each entry was flagged by heuristic rules as possibly not being a real promotion (e.g. regular operating hours, a breakfast menu, or generic marketing text mislabeled as a happy hour).

For each numbered entry, decide whether it is a legitimate promotion of its stated type ("approve") or a misclassification ("reject"). Consider the schedule, the specials, the label, and the heuristic flags.

Return ONLY a JSON array, one object per entry:
[{"index": <entry number>, "decision": "approve" | "reject", "confidence": <0-100>, "reasoning": "<one sentence>"}]`

// Item pairs a flagged entry with the venue context the rubric needs.
type Item struct {
	VenueName string
	Entry     model.PromotionEntry
}

// buildPrompt renders one batch of items as a numbered list for the model.
// Indexes are batch-local; decisions come back addressed to them.
func buildPrompt(items []Item) string {
	var b strings.Builder
	b.WriteString("Entries to review:\n\n")

	for i, it := range items {
		e := it.Entry
		fmt.Fprintf(&b, "%d. Venue: %s\n", i, orNone(it.VenueName))
		fmt.Fprintf(&b, "   Type: %s\n", e.ActivityType)
		if e.Label != "" {
			fmt.Fprintf(&b, "   Label: %s\n", e.Label)
		}
		fmt.Fprintf(&b, "   Times: %s\n", orNone(e.Times))
		fmt.Fprintf(&b, "   Days: %s\n", orNone(e.Days))
		if len(e.Specials) > 0 {
			fmt.Fprintf(&b, "   Specials: %s\n", strings.Join(e.Specials, "; "))
		}
		if len(e.ConfidenceFlags) > 0 {
			fmt.Fprintf(&b, "   Heuristic flags: %s\n", strings.Join(e.ConfidenceFlags, "; "))
		}
		fmt.Fprintf(&b, "   Heuristic score: %.0f\n\n", e.EffectiveConfidence)
	}

	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
