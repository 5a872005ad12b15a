package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/confidence"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/internal/review"
)

// reviewRef points an input review item back to its source entry.
type reviewRef struct {
	gold     *model.GoldRecord
	entryIdx int
}

// ReviewFlagged sends every undecided flagged or rejected entry through
// LLM review. Auto-applied verdicts are written back onto their gold
// records and the affected records are rebuilt, so an applied reject
// leaves the displayed spot set immediately. The returned outcome lists
// what was applied and what still needs a human.
func (p *Pipeline) ReviewFlagged(ctx context.Context) (*review.Outcome, error) {
	if p.anthropic == nil {
		return nil, eris.New("pipeline: no anthropic client configured")
	}

	golds, err := p.store.ListGoldRecords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list gold records")
	}

	var items []review.Item
	var refs []reviewRef
	for i := range golds {
		g := &golds[i]
		// Canonicalize once so decisions can be written back by index.
		g.PromotionEntries = g.Entries()

		for j, e := range g.PromotionEntries {
			if e.Empty() || e.LLMDecision != "" {
				continue
			}
			res := confidence.ValidateEntry(e, p.rules)
			if res.Action == model.ActionKeep {
				continue
			}
			e.EffectiveConfidence = res.Confidence
			e.ConfidenceFlags = res.Flags
			items = append(items, review.Item{VenueName: g.VenueName, Entry: e})
			refs = append(refs, reviewRef{gold: g, entryIdx: j})
		}
	}
	if len(items) == 0 {
		zap.L().Info("pipeline: nothing to review")
		return &review.Outcome{}, nil
	}

	out := review.ReviewAll(ctx, items, p.anthropic, p.cfg.Review)

	changed := make(map[*model.GoldRecord]bool)
	for k, idx := range out.AutoAppliedIdx {
		ref := refs[idx]
		applied := out.AutoApplied[k]

		e := &ref.gold.PromotionEntries[ref.entryIdx]
		e.EffectiveConfidence = applied.EffectiveConfidence
		e.ConfidenceFlags = applied.ConfidenceFlags
		e.LLMDecision = applied.LLMDecision
		e.LLMReviewConfidence = applied.LLMReviewConfidence
		e.LLMReasoning = applied.LLMReasoning
		changed[ref.gold] = true
	}

	for g := range changed {
		if err := p.store.UpsertGoldRecord(ctx, g); err != nil {
			return out, eris.Wrapf(err, "pipeline: persist review decisions for %s", g.ID)
		}
		if err := p.ProcessRecord(ctx, g); err != nil {
			return out, eris.Wrapf(err, "pipeline: rebuild after review for %s", g.ID)
		}
	}

	zap.L().Info("pipeline: review applied",
		zap.Int("reviewed", len(items)),
		zap.Int("auto_applied", len(out.AutoApplied)),
		zap.Int("needs_human_review", len(out.NeedsHumanReview)),
		zap.Int("records_rebuilt", len(changed)))
	return out, nil
}
