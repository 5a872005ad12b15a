package spots

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/confidence"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/internal/normalize"
)

// Result is the outcome of spot assembly for one gold record. Flagged and
// Rejected carry validator-annotated entries for the review queue; Spots
// holds one display record per surviving activity type.
type Result struct {
	Spots    []model.Spot
	Flagged  []model.PromotionEntry
	Rejected []model.PromotionEntry
}

// Builder assembles display-ready spots from validated gold entries.
type Builder struct {
	rules    *confidence.RuleSet
	photoDir string
}

func New(rules *confidence.RuleSet, photoDir string) *Builder {
	return &Builder{rules: rules, photoDir: photoDir}
}

// CreateSpotsFromGold validates the gold record's entries and assembles one
// spot per surviving activity type, allocating sequential IDs from startID.
// Multiple entries of the same type merge into a single spot with a
// combined description. venue may be nil when linkage found no match.
func (b *Builder) CreateSpotsFromGold(gold *model.GoldRecord, venue *model.Venue, startID int) *Result {
	res := &Result{}

	var entries []model.PromotionEntry
	for _, e := range gold.Entries() {
		if placeholderOnly(e) {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return res
	}

	part := confidence.ValidateGoldEntries(entries, b.rules)

	// Applied review decisions override the heuristic verdict: an applied
	// reject removes the entry from display, an applied approve resurrects
	// a rejected one. Entries with a decision leave the review queues.
	var kept []model.PromotionEntry
	for _, e := range part.Kept {
		if e.LLMDecision != model.ReviewReject {
			kept = append(kept, e)
		}
	}
	for _, e := range part.Rejected {
		if e.LLMDecision == model.ReviewApprove {
			kept = append(kept, e)
		} else {
			res.Rejected = append(res.Rejected, e)
		}
	}
	for _, e := range part.Flagged {
		if e.LLMDecision == "" {
			res.Flagged = append(res.Flagged, e)
		}
	}

	// Group surviving entries by activity type, preserving first-seen
	// group order so IDs are stable across runs.
	var order []string
	groups := make(map[string][]model.PromotionEntry)
	for _, e := range kept {
		if _, ok := groups[e.ActivityType]; !ok {
			order = append(order, e.ActivityType)
		}
		groups[e.ActivityType] = append(groups[e.ActivityType], e)
	}

	id := startID
	for _, activityType := range order {
		sp := b.buildGroupSpot(gold, venue, activityType, groups[activityType], id)
		res.Spots = append(res.Spots, sp)
		id++
	}

	zap.L().Debug("spots: assembled",
		zap.String("venue_name", gold.VenueName),
		zap.Int("spots", len(res.Spots)),
		zap.Int("flagged", len(res.Flagged)),
		zap.Int("rejected", len(res.Rejected)),
	)
	return res
}

// BuildSpotFromEntry builds exactly one spot from one entry, bypassing
// validation. Used when a reviewer resurrects a flagged or rejected entry.
func (b *Builder) BuildSpotFromEntry(gold *model.GoldRecord, venue *model.Venue, entry model.PromotionEntry, id int) model.Spot {
	return b.buildGroupSpot(gold, venue, entry.ActivityType, []model.PromotionEntry{entry}, id)
}

func (b *Builder) buildGroupSpot(gold *model.GoldRecord, venue *model.Venue, activityType string, group []model.PromotionEntry, id int) model.Spot {
	multi := len(group) > 1

	var timeFragments []string
	var specials []string
	sourceURL := ""
	bare := true
	for _, e := range group {
		if frag := timeFragment(e); frag != "" {
			timeFragments = append(timeFragments, labelPrefix(e, multi)+frag)
		}
		for _, sp := range e.Specials {
			specials = append(specials, labelPrefix(e, multi)+sp)
		}
		if sourceURL == "" && e.Source != "" {
			sourceURL = e.Source
		}
		if e.Days != "" || len(e.Specials) > 0 {
			bare = false
		}
	}
	if sourceURL == "" {
		sourceURL = gold.SourceURL
	}
	sourceURL = normalize.NormalizeURL(sourceURL)

	// A group whose only content is a bare time would render a redundant
	// description bubble; leave it empty and let the caller fall back to
	// generic copy.
	description := ""
	if !bare {
		lines := make([]string, 0, 1+len(specials))
		if len(timeFragments) > 0 {
			lines = append(lines, strings.Join(timeFragments, " • "))
		}
		lines = append(lines, specials...)
		description = strings.Join(lines, "\n")
	}

	title := gold.VenueName
	sp := model.Spot{
		ID:            id,
		Title:         title,
		Description:   description,
		PromotionTime: strings.Join(timeFragments, " • "),
		PromotionList: specials,
		SourceURL:     sourceURL,
		PhotoURL:      b.resolvePhoto(gold.PhotoPath),
		Type:          activityType,
		Source:        model.SpotSourceAutomated,
	}
	if venue != nil {
		sp.VenueID = venue.ID
		sp.Title = venue.Name
		sp.Area = venue.Area
	}
	return sp
}

// timeFragment merges an entry's times and days into one display fragment,
// e.g. "4pm-7pm (Mon-Fri)".
func timeFragment(e model.PromotionEntry) string {
	switch {
	case e.Times != "" && e.Days != "":
		return fmt.Sprintf("%s (%s)", e.Times, e.Days)
	case e.Times != "":
		return e.Times
	case e.Days != "":
		return e.Days
	default:
		return ""
	}
}

func labelPrefix(e model.PromotionEntry, multi bool) string {
	if !multi || e.Label == "" {
		return ""
	}
	return "[" + e.Label + "] "
}

// resolvePhoto returns the photo path only when the file actually exists.
// Broken references drop silently.
func (b *Builder) resolvePhoto(photoPath string) string {
	if photoPath == "" {
		return ""
	}
	full := photoPath
	if !filepath.IsAbs(full) && b.photoDir != "" {
		full = filepath.Join(b.photoDir, photoPath)
	}
	if _, err := os.Stat(full); err != nil {
		return ""
	}
	return photoPath
}

const placeholder = "not specified"

func placeholderOnly(e model.PromotionEntry) bool {
	if !placeholderStr(e.Days) || !placeholderStr(e.Times) {
		return false
	}
	for _, sp := range e.Specials {
		if !placeholderStr(sp) {
			return false
		}
	}
	return true
}

func placeholderStr(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "" || s == placeholder
}
