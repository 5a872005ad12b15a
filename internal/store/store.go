package store

import (
	"context"

	"github.com/dealmap/promo-cli/internal/model"
)

// Store defines the persistence interface for the promotion pipeline.
// The venue table is read-only from the pipeline's perspective; the spot
// table is written with full-replace semantics per venue+type (see
// DeleteAutomatedSpots).
type Store interface {
	// Venues
	GetVenue(ctx context.Context, id string) (*model.Venue, error)
	ListVenues(ctx context.Context) ([]model.Venue, error)
	// QueryVenuesNear returns up to limit venues inside a bounding box of
	// halfWidthDeg degrees around (lat, lng), ordered by squared distance
	// ascending with venue ID as tiebreak.
	QueryVenuesNear(ctx context.Context, lat, lng, halfWidthDeg float64, limit int) ([]model.Venue, error)

	// Spots
	InsertSpot(ctx context.Context, s *model.Spot) error
	UpdateSpot(ctx context.Context, s *model.Spot) error
	DeleteSpot(ctx context.Context, id int) error
	// DeleteAutomatedSpots removes automated, non-manually-overridden
	// spots for a venue+type and reports how many went. Manual and
	// admin-edited spots survive the purge.
	DeleteAutomatedSpots(ctx context.Context, venueID, spotType string) (int, error)
	// DeleteUnlinkedAutomatedSpots is the same purge for spots whose venue
	// linkage found no match, keyed on title+type since they carry no
	// venue ID.
	DeleteUnlinkedAutomatedSpots(ctx context.Context, title, spotType string) (int, error)
	ListSpots(ctx context.Context, venueID string) ([]model.Spot, error)
	// MaxSpotID returns the highest allocated spot ID, 0 when the table
	// is empty. The builder allocates sequentially above it.
	MaxSpotID(ctx context.Context) (int, error)

	// Gold records
	UpsertGoldRecord(ctx context.Context, g *model.GoldRecord) error
	ListGoldRecords(ctx context.Context) ([]model.GoldRecord, error)
	GetGoldRecord(ctx context.Context, id string) (*model.GoldRecord, error)
	// MarkGoldProcessed records the content hash spots were last built
	// from, enabling the unchanged-record skip on subsequent runs.
	MarkGoldProcessed(ctx context.Context, id, contentHash string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
