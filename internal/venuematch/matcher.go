package venuematch

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dealmap/promo-cli/internal/config"
	"github.com/dealmap/promo-cli/internal/model"
)

// metersPerDegree is the flat-earth approximation used for both the
// bounding-box prefilter and the precise distance gate. Good to within a
// few percent at city scale, which is all linkage needs.
const metersPerDegree = 111000.0

// VenueQuerier is the slice of the store the matcher needs: a bounding-box
// query returning candidates ordered by squared distance, then ID.
type VenueQuerier interface {
	QueryVenuesNear(ctx context.Context, lat, lng, halfWidthDeg float64, limit int) ([]model.Venue, error)
}

// Matcher resolves free-text spot titles to canonical venues by proximity
// and name similarity.
type Matcher struct {
	store VenueQuerier
	cfg   config.MatchConfig
}

func New(st VenueQuerier, cfg config.MatchConfig) *Matcher {
	if cfg.BoxHalfWidthMeters <= 0 {
		cfg.BoxHalfWidthMeters = 550
	}
	if cfg.MaxDistanceMeters <= 0 {
		cfg.MaxDistanceMeters = 50
	}
	if cfg.MinNameScore <= 0 {
		cfg.MinNameScore = 0.5
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &Matcher{store: st, cfg: cfg}
}

// FindMatchingVenue returns the best canonical venue for the given title
// and coordinate, or nil when no candidate is close and similar enough.
// A missing match is an expected outcome, not an error.
func (m *Matcher) FindMatchingVenue(ctx context.Context, title string, lat, lng float64) (*model.VenueMatch, error) {
	if title == "" || (lat == 0 && lng == 0) {
		return nil, nil
	}

	halfDeg := m.cfg.BoxHalfWidthMeters / metersPerDegree
	candidates, err := m.store.QueryVenuesNear(ctx, lat, lng, halfDeg, m.cfg.MaxCandidates)
	if err != nil {
		return nil, eris.Wrap(err, "venuematch: query candidates")
	}

	var best *model.VenueMatch
	for _, v := range candidates {
		meters := distanceMeters(lat, lng, v.Latitude, v.Longitude)
		if meters > m.cfg.MaxDistanceMeters {
			continue
		}
		score := NameSimilarity(title, v.Name)
		if score < m.cfg.MinNameScore {
			continue
		}
		// Candidates arrive in ascending ID order within each distance,
		// so strict greater-than keeps the lowest ID on a score tie.
		if best == nil || score > best.Score {
			best = &model.VenueMatch{
				VenueID:        v.ID,
				VenueName:      v.Name,
				DistanceMeters: int(math.Round(meters)),
				Score:          score,
			}
		}
	}

	if best == nil {
		zap.L().Debug("no venue match",
			zap.String("title", title),
			zap.Float64("lat", lat),
			zap.Float64("lng", lng),
			zap.Int("candidates", len(candidates)))
		return nil, nil
	}

	zap.L().Debug("venue matched",
		zap.String("title", title),
		zap.String("venue_id", best.VenueID),
		zap.Int("distance_m", best.DistanceMeters),
		zap.Float64("score", best.Score))
	return best, nil
}

func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dlat := lat1 - lat2
	dlng := lng1 - lng2
	return math.Sqrt(dlat*dlat+dlng*dlng) * metersPerDegree
}
