package model

import "time"

// ActivityType names a promotion category extracted from a venue page.
type ActivityType string

const (
	ActivityHappyHour ActivityType = "Happy Hour"
	ActivityBrunch    ActivityType = "Brunch"
	ActivityTrivia    ActivityType = "Trivia"
	ActivityLiveMusic ActivityType = "Live Music"
)

// PromotionEntry is one candidate promotion extracted from a venue's page.
// Days, Times, and Specials are free-text fragments as scraped; Confidence
// is the extractor's own 0-100 estimate and may be zero when the extractor
// did not score the entry.
type PromotionEntry struct {
	ActivityType string   `json:"activity_type"`
	Label        string   `json:"label,omitempty"`
	Days         string   `json:"days,omitempty"`
	Times        string   `json:"times,omitempty"`
	Specials     []string `json:"specials,omitempty"`
	Source       string   `json:"source,omitempty"`
	Confidence   float64  `json:"confidence,omitempty"`

	// Enrichment written back by validation and LLM review. Never set by
	// the extractor.
	EffectiveConfidence float64  `json:"effective_confidence,omitempty"`
	ConfidenceFlags     []string `json:"confidence_flags,omitempty"`
	LLMDecision         string   `json:"llm_decision,omitempty"`
	LLMReviewConfidence float64  `json:"llm_review_confidence,omitempty"`
	LLMReasoning        string   `json:"llm_reasoning,omitempty"`
}

// Empty reports whether the entry carries no schedule or specials signal.
// Empty entries must be filtered before validation.
func (e PromotionEntry) Empty() bool {
	return e.Days == "" && e.Times == "" && len(e.Specials) == 0
}

// Action classifies a validated entry.
type Action string

const (
	ActionKeep   Action = "keep"
	ActionFlag   Action = "flag"
	ActionReject Action = "reject"
)

// ValidationResult is the Confidence Validator's verdict on one entry.
// It is derived deterministically from the entry and never persisted on
// its own; callers fold it back into the entry as EffectiveConfidence
// and ConfidenceFlags.
type ValidationResult struct {
	Confidence float64  `json:"confidence"`
	Flags      []string `json:"flags"`
	Action     Action   `json:"action"`
}

// Review verdicts. An entry's LLMDecision holds one of these only once
// the decision has been applied; a pending suggestion stays in the review
// queue with the field empty.
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
)

// ReviewDecision is one LLM verdict on a flagged or rejected entry,
// addressed by its batch-local index.
type ReviewDecision struct {
	Index      int     `json:"index"`
	Decision   string  `json:"decision"` // "approve" or "reject"
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// GoldRecord is the consolidated extraction result for one venue. The
// scraper has emitted two shapes over time: a legacy single-promotion
// record and the modern entries array. Both are decoded here and resolved
// once by Entries; downstream code never branches on shape.
type GoldRecord struct {
	ID          string    `json:"id"`
	VenueName   string    `json:"venue_name"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	PhotoPath   string    `json:"photo_path,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at,omitempty"`

	// ProcessedHash is the content hash at the time spots were last built
	// from this record. Matching ContentHash means nothing changed and the
	// record can be skipped.
	ProcessedHash string `json:"processed_hash,omitempty"`

	// Modern shape.
	PromotionEntries []PromotionEntry `json:"entries,omitempty"`

	// Legacy single-promotion shape.
	Promotion *LegacyPromotion `json:"promotion,omitempty"`
}

// LegacyPromotion is the pre-entries single-promotion gold shape.
type LegacyPromotion struct {
	Type     string   `json:"type"`
	Days     string   `json:"days,omitempty"`
	Times    string   `json:"times,omitempty"`
	Specials []string `json:"specials,omitempty"`
}

// Entries resolves the gold record to a canonical entry list regardless of
// which shape the record was written in. The modern array wins when both
// are present.
func (g *GoldRecord) Entries() []PromotionEntry {
	if len(g.PromotionEntries) > 0 {
		return g.PromotionEntries
	}
	if g.Promotion != nil {
		typ := g.Promotion.Type
		if typ == "" {
			typ = string(ActivityHappyHour)
		}
		return []PromotionEntry{{
			ActivityType: typ,
			Days:         g.Promotion.Days,
			Times:        g.Promotion.Times,
			Specials:     g.Promotion.Specials,
			Source:       g.SourceURL,
		}}
	}
	return nil
}
