// Package pipeline orchestrates a full extraction run: gold records are
// validated, assembled into spots, linked to canonical venues, and written
// to the store with replace-on-rerun semantics per venue and spot type.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/config"
	"github.com/dealmap/promo-cli/internal/confidence"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/internal/spots"
	"github.com/dealmap/promo-cli/internal/store"
	"github.com/dealmap/promo-cli/internal/venuematch"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

// Pipeline wires the extraction components over a shared store and LLM
// client. anthropic may be nil when no review step will run.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	anthropic anthropic.Client
	rules     *confidence.RuleSet
	matcher   *venuematch.Matcher
	builder   *spots.Builder
}

// New builds a Pipeline, loading the keyword rule override when one is
// configured.
func New(cfg *config.Config, st store.Store, aiClient anthropic.Client) (*Pipeline, error) {
	rules := confidence.DefaultRuleSet()
	if cfg.Rules.Path != "" {
		loaded, err := confidence.LoadRuleSet(cfg.Rules.Path)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load rule set")
		}
		rules = loaded
	}

	return &Pipeline{
		cfg:       cfg,
		store:     st,
		anthropic: aiClient,
		rules:     rules,
		matcher:   venuematch.New(st, cfg.Match),
		builder:   spots.New(rules, cfg.Spots.PhotoDir),
	}, nil
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	Records      int
	Skipped      int
	Failed       int
	SpotsCreated int
	Flagged      int
	Rejected     int
}

// Run processes every gold record: unchanged records are skipped by
// content hash, the rest are validated, assembled, venue-linked, and
// written with delete-then-insert semantics. A failing record is logged
// and counted, never fatal to the run.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	golds, err := p.store.ListGoldRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list gold records")
	}

	res := &RunResult{}
	for i := range golds {
		gold := &golds[i]
		if gold.ContentHash != "" && gold.ContentHash == gold.ProcessedHash {
			res.Skipped++
			continue
		}
		res.Records++

		if err := p.processRecord(ctx, gold, res); err != nil {
			res.Failed++
			zap.L().Error("pipeline: record failed",
				zap.String("gold_id", gold.ID),
				zap.String("venue_name", gold.VenueName),
				zap.Error(err))
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("spots_created", res.SpotsCreated),
		zap.Int("flagged", res.Flagged),
		zap.Int("rejected", res.Rejected))
	return res, nil
}

// ProcessRecord rebuilds spots for a single gold record regardless of its
// processed hash. Used after review decisions change a record's entries.
func (p *Pipeline) ProcessRecord(ctx context.Context, gold *model.GoldRecord) error {
	return p.processRecord(ctx, gold, &RunResult{})
}

func (p *Pipeline) processRecord(ctx context.Context, gold *model.GoldRecord, res *RunResult) error {
	venue, err := p.linkVenue(ctx, gold)
	if err != nil {
		return err
	}

	maxID, err := p.store.MaxSpotID(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: max spot id")
	}

	built := p.builder.CreateSpotsFromGold(gold, venue, maxID+1)
	res.Flagged += len(built.Flagged)
	res.Rejected += len(built.Rejected)

	// Replace-on-rerun: purge this record's automated spots for every
	// activity type it covers, then insert the fresh set. Keyed on the
	// record's types rather than the built spots so a type whose entries
	// all got rejected still has its stale spots removed. Unlinked spots
	// are purged by title since they carry no venue ID. Manual and
	// overridden spots survive.
	seen := map[string]bool{}
	for _, e := range gold.Entries() {
		if e.ActivityType == "" || seen[e.ActivityType] {
			continue
		}
		seen[e.ActivityType] = true

		var err error
		if venue != nil {
			_, err = p.store.DeleteAutomatedSpots(ctx, venue.ID, e.ActivityType)
		} else {
			_, err = p.store.DeleteUnlinkedAutomatedSpots(ctx, gold.VenueName, e.ActivityType)
		}
		if err != nil {
			return eris.Wrap(err, "pipeline: purge automated spots")
		}
	}
	for i := range built.Spots {
		if err := p.store.InsertSpot(ctx, &built.Spots[i]); err != nil {
			return eris.Wrap(err, "pipeline: insert spot")
		}
		res.SpotsCreated++
	}

	if err := p.store.MarkGoldProcessed(ctx, gold.ID, gold.ContentHash); err != nil {
		return eris.Wrap(err, "pipeline: mark processed")
	}
	return nil
}

// linkVenue resolves the gold record to a canonical venue. No coordinates
// or no match degrades to an unlinked spot, never an error.
func (p *Pipeline) linkVenue(ctx context.Context, gold *model.GoldRecord) (*model.Venue, error) {
	if gold.VenueName == "" || (gold.Latitude == 0 && gold.Longitude == 0) {
		return nil, nil
	}

	match, err := p.matcher.FindMatchingVenue(ctx, gold.VenueName, gold.Latitude, gold.Longitude)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: match venue")
	}
	if match == nil {
		return nil, nil
	}
	venue, err := p.store.GetVenue(ctx, match.VenueID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get matched venue")
	}
	return venue, nil
}
