package pipeline

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/dealmap/promo-cli/internal/model"
	"github.com/dealmap/promo-cli/pkg/anthropic"
)

// mockStore is an in-memory Store for pipeline tests.
type mockStore struct {
	venues map[string]model.Venue
	spots  map[int]model.Spot
	golds  map[string]model.GoldRecord

	insertErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		venues: make(map[string]model.Venue),
		spots:  make(map[int]model.Spot),
		golds:  make(map[string]model.GoldRecord),
	}
}

func (m *mockStore) GetVenue(_ context.Context, id string) (*model.Venue, error) {
	v, ok := m.venues[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *mockStore) ListVenues(_ context.Context) ([]model.Venue, error) {
	var out []model.Venue
	for _, v := range m.venues {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) QueryVenuesNear(_ context.Context, lat, lng, halfWidthDeg float64, limit int) ([]model.Venue, error) {
	var out []model.Venue
	for _, v := range m.venues {
		if v.Latitude >= lat-halfWidthDeg && v.Latitude <= lat+halfWidthDeg &&
			v.Longitude >= lng-halfWidthDeg && v.Longitude <= lng+halfWidthDeg {
			out = append(out, v)
		}
	}
	sq := func(v model.Venue) float64 {
		dlat, dlng := v.Latitude-lat, v.Longitude-lng
		return dlat*dlat + dlng*dlng
	}
	sort.Slice(out, func(i, j int) bool {
		if sq(out[i]) != sq(out[j]) {
			return sq(out[i]) < sq(out[j])
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) InsertSpot(_ context.Context, s *model.Spot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.spots[s.ID]; exists {
		return eris.Errorf("duplicate spot id %d", s.ID)
	}
	m.spots[s.ID] = *s
	return nil
}

func (m *mockStore) UpdateSpot(_ context.Context, s *model.Spot) error {
	if _, ok := m.spots[s.ID]; !ok {
		return eris.Errorf("spot not found: %d", s.ID)
	}
	m.spots[s.ID] = *s
	return nil
}

func (m *mockStore) DeleteSpot(_ context.Context, id int) error {
	if _, ok := m.spots[id]; !ok {
		return eris.Errorf("spot not found: %d", id)
	}
	delete(m.spots, id)
	return nil
}

func (m *mockStore) DeleteAutomatedSpots(_ context.Context, venueID, spotType string) (int, error) {
	n := 0
	for id, sp := range m.spots {
		if sp.VenueID == venueID && sp.Type == spotType &&
			sp.Source == model.SpotSourceAutomated && !sp.ManualOverride {
			delete(m.spots, id)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) DeleteUnlinkedAutomatedSpots(_ context.Context, title, spotType string) (int, error) {
	n := 0
	for id, sp := range m.spots {
		if sp.VenueID == "" && sp.Title == title && sp.Type == spotType &&
			sp.Source == model.SpotSourceAutomated && !sp.ManualOverride {
			delete(m.spots, id)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ListSpots(_ context.Context, venueID string) ([]model.Spot, error) {
	var out []model.Spot
	for _, sp := range m.spots {
		if venueID == "" || sp.VenueID == venueID {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) MaxSpotID(_ context.Context) (int, error) {
	maxID := 0
	for id := range m.spots {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (m *mockStore) UpsertGoldRecord(_ context.Context, g *model.GoldRecord) error {
	if g.ID == "" {
		g.ID = "gold-" + g.VenueName
	}
	m.golds[g.ID] = *g
	return nil
}

func (m *mockStore) ListGoldRecords(_ context.Context) ([]model.GoldRecord, error) {
	var out []model.GoldRecord
	for _, g := range m.golds {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) GetGoldRecord(_ context.Context, id string) (*model.GoldRecord, error) {
	g, ok := m.golds[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *mockStore) MarkGoldProcessed(_ context.Context, id, contentHash string) error {
	g, ok := m.golds[id]
	if !ok {
		return eris.Errorf("gold record not found: %s", id)
	}
	g.ProcessedHash = contentHash
	m.golds[id] = g
	return nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

// scriptedClient returns a fixed response text for every review call.
type scriptedClient struct {
	text string
	err  error
}

func (c *scriptedClient) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &anthropic.MessageResponse{Text: c.text}, nil
}
