package review

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dealmap/promo-cli/internal/config"
	"github.com/dealmap/promo-cli/internal/jsonx"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/internal/resilience"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

// Outcome is the complete partition of a review run. Every input item
// lands in exactly one of AutoApplied or NeedsHumanReview; Errors counts
// items the model returned no decision for (they go to human review with
// an explicit reasoning, never silently dropped).
type Outcome struct {
	AutoApplied      []model.PromotionEntry
	NeedsHumanReview []model.PromotionEntry

	// AutoAppliedIdx holds the input index of each AutoApplied entry, in
	// the same order, so callers can write applied decisions back to the
	// source records.
	AutoAppliedIdx []int

	Errors int
}

// ReviewAll sends flagged and rejected entries through LLM review in
// fixed-size batches and partitions the decisions by the auto-apply
// threshold. Batches run on a bounded worker pool behind a shared rate
// limiter; the merged output preserves input order, so re-running on the
// same list is safe and reproducible. A failed or unparseable batch
// degrades to "no decision" for its items rather than aborting the run.
func ReviewAll(ctx context.Context, items []Item, client anthropic.Client, cfg config.ReviewConfig) *Outcome {
	out := &Outcome{}
	if len(items) == 0 {
		return out
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	type batch struct {
		start int
		items []Item
	}
	var batches []batch
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, batch{start: i, items: items[i:end]})
	}

	// One decision slot per input item, filled by batch-local index.
	// Merging through this table keeps output order deterministic no
	// matter how the workers interleave.
	decisions := make([]*model.ReviewDecision, len(items))

	// Shared limiter paces calls across the pool so parallel batches
	// cannot burst a per-key rate limit.
	interval := time.Duration(cfg.PaceMillis) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range batches {
		g.Go(func() error {
			if err := limiter.Wait(gCtx); err != nil {
				return nil // context canceled; items stay undecided
			}
			for _, d := range reviewBatch(gCtx, b.items, client, cfg) {
				if d.Index < 0 || d.Index >= len(b.items) {
					zap.L().Warn("review: decision index out of range",
						zap.Int("index", d.Index),
						zap.Int("batch_size", len(b.items)),
					)
					continue
				}
				decisions[b.start+d.Index] = &d
			}
			return nil
		})
	}
	_ = g.Wait() // workers only signal cancellation, never errors

	threshold := cfg.AutoApplyThreshold
	if threshold <= 0 {
		threshold = 85
	}

	for i, it := range items {
		e := it.Entry
		d := decisions[i]
		if d == nil {
			e.LLMReasoning = "no decision returned"
			out.NeedsHumanReview = append(out.NeedsHumanReview, e)
			out.Errors++
			continue
		}

		e.LLMDecision = d.Decision
		e.LLMReviewConfidence = d.Confidence
		e.LLMReasoning = d.Reasoning

		if d.Confidence >= threshold {
			out.AutoApplied = append(out.AutoApplied, e)
			out.AutoAppliedIdx = append(out.AutoAppliedIdx, i)
		} else {
			out.NeedsHumanReview = append(out.NeedsHumanReview, e)
		}
	}

	zap.L().Info("review: completed",
		zap.Int("items", len(items)),
		zap.Int("auto_applied", len(out.AutoApplied)),
		zap.Int("needs_human_review", len(out.NeedsHumanReview)),
		zap.Int("errors", out.Errors),
	)
	return out
}

// reviewBatch sends one batch to the model and parses its decisions.
// Transient failures retry twice with backoff from 2s; a 429 aborts the
// call immediately. Any terminal failure yields zero decisions.
func reviewBatch(ctx context.Context, items []Item, client anthropic.Client, cfg config.ReviewConfig) []model.ReviewDecision {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	req := anthropic.MessageRequest{
		Model:     cfg.Model,
		MaxTokens: 2048,
		System:    systemRubric,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(items)},
		},
		Timeout: timeout,
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("review batch")

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		if resilience.IsRateLimited(err) {
			zap.L().Warn("review: rate limited, batch skipped", zap.Error(err))
		} else {
			zap.L().Warn("review: batch call failed", zap.Error(err))
		}
		return nil
	}

	resp.Usage.LogCost(cfg.Model, "review")

	var raw []model.ReviewDecision
	if err := jsonx.ExtractArray(resp.Text, &raw); err != nil {
		zap.L().Warn("review: unparseable decisions", zap.Error(err))
		return nil
	}

	// Keep only well-formed decisions; a malformed element degrades to
	// "no decision" for its item.
	valid := raw[:0]
	for _, d := range raw {
		verdict := strings.ToLower(strings.TrimSpace(d.Decision))
		if verdict != model.ReviewApprove && verdict != model.ReviewReject {
			continue
		}
		d.Decision = verdict
		valid = append(valid, d)
	}
	return valid
}
