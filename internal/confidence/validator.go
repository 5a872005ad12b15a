package confidence

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/model"
)

// Partition is the outcome of validating a batch of gold entries. Flagged
// entries appear in both Kept and Flagged: they still display to users
// while queued for a second look, and only an explicit rejection removes
// them. Every input entry lands in Kept or Rejected, never nowhere.
type Partition struct {
	Kept     []model.PromotionEntry
	Flagged  []model.PromotionEntry
	Rejected []model.PromotionEntry
}

// ValidateEntry applies the heuristic rule table to one promotion entry
// and returns the adjusted confidence, the reasons for each adjustment,
// and the keep/flag/reject classification. Deterministic and pure.
func ValidateEntry(e model.PromotionEntry, rules *RuleSet) model.ValidationResult {
	if rules == nil {
		rules = DefaultRuleSet()
	}

	score := e.Confidence
	if score <= 0 {
		score = BaseScore
	}
	var flags []string

	apply := func(delta float64, flag string) {
		score += delta
		flags = append(flags, flag)
	}

	searchable := e.Label + " " + strings.Join(e.Specials, " ")

	if e.ActivityType == string(model.ActivityHappyHour) {
		start, end := parseTimeRange(e.Times)

		// Happy hours essentially never start before late morning; an
		// early start means breakfast hours got mislabeled.
		if start != nil && *start < 11 {
			apply(-40, fmt.Sprintf("starts at %.4g:00, before 11:00", *start))
		}

		if !containsAny(searchable, rules.AlcoholKeywords) {
			apply(-20, "no alcohol-related keyword in label or specials")
		}

		for _, r := range rules.VenueTypeRules {
			if r.re.MatchString(e.Label) {
				apply(r.Weight, r.Flag)
				break
			}
		}

		// A span of a full workday looks like operating hours, not a
		// promo window.
		if start != nil && end != nil && spanHours(*start, *end) >= 8 {
			apply(-15, fmt.Sprintf("%.4g-hour span looks like operating hours", spanHours(*start, *end)))
		}

		if endsAtClose(e.Times) && len(e.Specials) == 0 {
			apply(-25, "runs until close with no listed specials")
		}

		if len(e.Specials) > 0 && allVague(e.Specials, rules) {
			apply(-15, "only vague specials with no dollar amounts")
		}
	}

	if e.ActivityType == string(model.ActivityBrunch) {
		if !containsAny(searchable, rules.BrunchKeywords) &&
			!containsAny(searchable, rules.BrunchDrinkKeywords) {
			apply(-10, "no brunch or brunch-drink keyword")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return model.ValidationResult{
		Confidence: score,
		Flags:      flags,
		Action:     classify(score),
	}
}

func classify(score float64) model.Action {
	switch {
	case score < RejectBelow:
		return model.ActionReject
	case score < KeepAt:
		return model.ActionFlag
	default:
		return model.ActionKeep
	}
}

// allVague reports whether every special matches the vague-template
// pattern and none carries a dollar amount.
func allVague(specials []string, rules *RuleSet) bool {
	for _, sp := range specials {
		if strings.Contains(sp, "$") {
			return false
		}
		if !rules.vagueRe.MatchString(strings.TrimSpace(sp)) {
			return false
		}
	}
	return true
}

// ValidateGoldEntries runs every entry through ValidateEntry, folds the
// result back into the entry, and partitions the batch. Entries with no
// schedule and no specials carry no signal and are rejected outright with
// an explicit flag so nothing disappears silently.
func ValidateGoldEntries(entries []model.PromotionEntry, rules *RuleSet) Partition {
	var p Partition
	for _, e := range entries {
		if e.Empty() {
			e.EffectiveConfidence = 0
			e.ConfidenceFlags = []string{"no days, times, or specials"}
			p.Rejected = append(p.Rejected, e)
			continue
		}

		res := ValidateEntry(e, rules)
		e.EffectiveConfidence = res.Confidence
		e.ConfidenceFlags = res.Flags

		switch res.Action {
		case model.ActionReject:
			p.Rejected = append(p.Rejected, e)
		case model.ActionFlag:
			// Provisionally retained pending review, but also queued for
			// a second look.
			p.Flagged = append(p.Flagged, e)
			p.Kept = append(p.Kept, e)
		default:
			p.Kept = append(p.Kept, e)
		}
	}

	zap.L().Debug("confidence: validated gold entries",
		zap.Int("total", len(entries)),
		zap.Int("kept", len(p.Kept)),
		zap.Int("flagged", len(p.Flagged)),
		zap.Int("rejected", len(p.Rejected)),
	)
	return p
}
