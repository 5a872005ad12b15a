package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmap/promo-cli/internal/config"
	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

func testConfig() *config.Config {
	return &config.Config{
		Review: config.ReviewConfig{
			Model:              "claude-haiku-4-5-20251001",
			BatchSize:          10,
			Workers:            1,
			TimeoutSecs:        1,
			PaceMillis:         1,
			AutoApplyThreshold: 85,
		},
	}
}

func newTestPipeline(t *testing.T, st *mockStore, client anthropic.Client) *Pipeline {
	t.Helper()
	p, err := New(testConfig(), st, client)
	require.NoError(t, err)
	return p
}

func mooseVenue() model.Venue {
	return model.Venue{ID: "v1", Name: "Tattooed Moose", Latitude: 32.8120, Longitude: -79.9500, Area: "Downtown"}
}

func mooseGold(entries ...model.PromotionEntry) model.GoldRecord {
	return model.GoldRecord{
		ID:               "g1",
		VenueName:        "Tattooed Moose",
		Latitude:         32.8120,
		Longitude:        -79.9500,
		ContentHash:      "hash-1",
		PromotionEntries: entries,
	}
}

func happyHourEntry() model.PromotionEntry {
	return model.PromotionEntry{
		ActivityType: "Happy Hour",
		Days:         "Mon-Fri",
		Times:        "4pm-7pm",
		Specials:     []string{"$5 drafts"},
	}
}

func TestRun_BuildsAndLinksSpots(t *testing.T) {
	st := newMockStore()
	st.venues["v1"] = mooseVenue()
	st.golds["g1"] = mooseGold(happyHourEntry())
	p := newTestPipeline(t, st, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.SpotsCreated)

	spots, err := st.ListSpots(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.Equal(t, "Tattooed Moose", spots[0].Title)
	assert.Equal(t, "Happy Hour", spots[0].Type)
	assert.Equal(t, "Downtown", spots[0].Area)

	// The record is marked processed so the next run skips it.
	assert.Equal(t, "hash-1", st.golds["g1"].ProcessedHash)
}

func TestRun_SkipsUnchangedRecords(t *testing.T) {
	st := newMockStore()
	g := mooseGold(happyHourEntry())
	g.ProcessedHash = g.ContentHash
	st.golds["g1"] = g
	p := newTestPipeline(t, st, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Records)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.SpotsCreated)
}

func TestRun_ReplacesAutomatedSpotsOnRerun(t *testing.T) {
	st := newMockStore()
	st.venues["v1"] = mooseVenue()
	st.golds["g1"] = mooseGold(happyHourEntry())

	// Leftovers from an earlier run: one automated, one manual, one
	// admin-edited. Only the plain automated one is replaced.
	st.spots[1] = model.Spot{ID: 1, VenueID: "v1", Type: "Happy Hour", Source: model.SpotSourceAutomated}
	st.spots[2] = model.Spot{ID: 2, VenueID: "v1", Type: "Happy Hour", Source: model.SpotSourceManual}
	st.spots[3] = model.Spot{ID: 3, VenueID: "v1", Type: "Happy Hour", Source: model.SpotSourceAutomated, ManualOverride: true}

	p := newTestPipeline(t, st, nil)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	spots, err := st.ListSpots(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, spots, 3)

	ids := []int{spots[0].ID, spots[1].ID, spots[2].ID}
	assert.NotContains(t, ids, 1)
	assert.Contains(t, ids, 2)
	assert.Contains(t, ids, 3)
}

func TestRun_ReplacesUnlinkedSpotsOnContentChange(t *testing.T) {
	st := newMockStore()
	// No venues: the record's spots stay unlinked. A content change must
	// still replace the previous run's spots, not pile on duplicates.
	st.golds["g1"] = mooseGold(happyHourEntry())
	p := newTestPipeline(t, st, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	g := st.golds["g1"]
	g.ContentHash = "hash-2"
	st.golds["g1"] = g

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	spots, err := st.ListSpots(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.Equal(t, "Tattooed Moose", spots[0].Title)
}

func TestRun_UnmatchedVenueStillCreatesSpot(t *testing.T) {
	st := newMockStore()
	// No venues at all: linkage degrades to an unlinked spot.
	st.golds["g1"] = mooseGold(happyHourEntry())
	p := newTestPipeline(t, st, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.SpotsCreated)

	spots, err := st.ListSpots(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.Empty(t, spots[0].VenueID)
	assert.Equal(t, "Tattooed Moose", spots[0].Title)
}

func TestRun_FailedRecordDoesNotAbortRun(t *testing.T) {
	st := newMockStore()
	st.golds["g1"] = mooseGold(happyHourEntry())
	g2 := mooseGold(happyHourEntry())
	g2.ID = "g2"
	g2.VenueName = "Royal American"
	st.golds["g2"] = g2
	st.insertErr = assert.AnError

	p := newTestPipeline(t, st, nil)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, res.Failed)
}

func TestRun_CountsFlaggedAndRejected(t *testing.T) {
	st := newMockStore()
	st.golds["g1"] = mooseGold(
		happyHourEntry(),
		// Bare time, no alcohol signal: flagged.
		model.PromotionEntry{ActivityType: "Happy Hour", Times: "4pm-7pm"},
		// Breakfast-hours start: rejected.
		model.PromotionEntry{ActivityType: "Happy Hour", Times: "7am-3pm", Specials: []string{"$5 mimosas"}},
	)
	p := newTestPipeline(t, st, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Flagged)
	assert.Equal(t, 1, res.Rejected)
}
