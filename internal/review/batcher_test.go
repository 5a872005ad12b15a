package review

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmap/promo-cli/internal/config"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/internal/resilience"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

// funcClient scripts CreateMessage responses for tests.
type funcClient struct {
	calls int64
	fn    func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error)
}

func (c *funcClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.fn(req)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Text: text}
}

func testCfg() config.ReviewConfig {
	return config.ReviewConfig{
		Model:              "claude-haiku-4-5-20251001",
		BatchSize:          10,
		Workers:            1,
		TimeoutSecs:        1,
		PaceMillis:         1,
		AutoApplyThreshold: 85,
	}
}

func flaggedItem(label string) Item {
	return Item{
		VenueName: "Moose Tavern",
		Entry: model.PromotionEntry{
			ActivityType:        "Happy Hour",
			Label:               label,
			Times:               "3pm-9pm",
			EffectiveConfidence: 55,
			ConfidenceFlags:     []string{"no alcohol-related keyword in label or specials"},
		},
	}
}

func TestReviewAll_AutoAppliesHighConfidence(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[
			{"index":0,"decision":"approve","confidence":95,"reasoning":"clear drink deal"},
			{"index":1,"decision":"reject","confidence":90,"reasoning":"operating hours"}
		]`), nil
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a"), flaggedItem("b")}, client, testCfg())

	require.Len(t, out.AutoApplied, 2)
	assert.Empty(t, out.NeedsHumanReview)
	assert.Zero(t, out.Errors)
	assert.Equal(t, "approve", out.AutoApplied[0].LLMDecision)
	assert.Equal(t, "reject", out.AutoApplied[1].LLMDecision)
	assert.Equal(t, 95.0, out.AutoApplied[0].LLMReviewConfidence)
}

func TestReviewAll_LowConfidenceNeedsHuman(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[{"index":0,"decision":"approve","confidence":60,"reasoning":"unsure"}]`), nil
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a")}, client, testCfg())

	assert.Empty(t, out.AutoApplied)
	require.Len(t, out.NeedsHumanReview, 1)
	assert.Equal(t, "approve", out.NeedsHumanReview[0].LLMDecision)
	assert.Zero(t, out.Errors)
}

func TestReviewAll_MissingDecisionNeverDropped(t *testing.T) {
	// Model answers only for index 0; index 1 must surface explicitly.
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[{"index":0,"decision":"approve","confidence":99,"reasoning":"ok"}]`), nil
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a"), flaggedItem("b")}, client, testCfg())

	require.Len(t, out.AutoApplied, 1)
	require.Len(t, out.NeedsHumanReview, 1)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, "", out.NeedsHumanReview[0].LLMDecision)
	assert.Equal(t, "no decision returned", out.NeedsHumanReview[0].LLMReasoning)
}

func TestReviewAll_CallFailureDegradesToHumanReview(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return nil, eris.New("connection reset by peer")
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a"), flaggedItem("b")}, client, testCfg())

	assert.Empty(t, out.AutoApplied)
	assert.Len(t, out.NeedsHumanReview, 2)
	assert.Equal(t, 2, out.Errors)
	// Transient error: initial attempt plus two retries.
	assert.Equal(t, int64(3), atomic.LoadInt64(&client.calls))
}

func TestReviewAll_RateLimitNoRetry(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return nil, resilience.NewStatusError(eris.New("too many requests"), 429)
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a")}, client, testCfg())

	assert.Len(t, out.NeedsHumanReview, 1)
	assert.Equal(t, int64(1), atomic.LoadInt64(&client.calls))
}

func TestReviewAll_UnparseableResponse(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse("I'm not sure about these entries."), nil
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a")}, client, testCfg())

	assert.Empty(t, out.AutoApplied)
	assert.Len(t, out.NeedsHumanReview, 1)
	assert.Equal(t, 1, out.Errors)
}

func TestReviewAll_CompletePartitionAcrossBatches(t *testing.T) {
	cfg := testCfg()
	cfg.BatchSize = 2
	cfg.Workers = 3

	// Approve every entry the prompt asks about, whatever the batch size.
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[
			{"index":0,"decision":"approve","confidence":90,"reasoning":"ok"},
			{"index":1,"decision":"approve","confidence":40,"reasoning":"meh"}
		]`), nil
	}}

	var items []Item
	for i := 0; i < 5; i++ {
		items = append(items, flaggedItem(fmt.Sprintf("entry-%d", i)))
	}

	out := ReviewAll(context.Background(), items, client, cfg)

	// Every input lands in exactly one bucket.
	assert.Equal(t, len(items), len(out.AutoApplied)+len(out.NeedsHumanReview))
	// 3 full batches (2+2+1); the last batch's index-1 decision is out of
	// range and discarded, so its lone item gets index 0 = auto.
	assert.Equal(t, int64(3), atomic.LoadInt64(&client.calls))
}

func TestReviewAll_EmptyInput(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		t.Fatal("no call expected")
		return nil, nil
	}}

	out := ReviewAll(context.Background(), nil, client, testCfg())
	assert.Empty(t, out.AutoApplied)
	assert.Empty(t, out.NeedsHumanReview)
	assert.Zero(t, atomic.LoadInt64(&client.calls))
}

func TestReviewAll_InvalidDecisionFiltered(t *testing.T) {
	client := &funcClient{fn: func(req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
		return textResponse(`[{"index":0,"decision":"maybe","confidence":99,"reasoning":"?"}]`), nil
	}}

	out := ReviewAll(context.Background(), []Item{flaggedItem("a")}, client, testCfg())

	assert.Empty(t, out.AutoApplied)
	require.Len(t, out.NeedsHumanReview, 1)
	assert.Equal(t, 1, out.Errors)
}
