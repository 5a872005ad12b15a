package model

import "time"

// SpotSource distinguishes pipeline-created spots from hand-entered ones.
// Manual spots are never touched by the automated replace-on-rerun.
type SpotSource string

const (
	SpotSourceManual    SpotSource = "manual"
	SpotSourceAutomated SpotSource = "automated"
)

// Spot is a display-ready promotion record, one per venue and activity
// type. Multiple surviving entries of the same type merge into a single
// spot with a combined description.
type Spot struct {
	ID            int        `json:"id"`
	VenueID       string     `json:"venue_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	PromotionTime string     `json:"promotion_time,omitempty"`
	PromotionList []string   `json:"promotion_list,omitempty"`
	SourceURL     string     `json:"source_url,omitempty"`
	PhotoURL      string     `json:"photo_url,omitempty"`
	Area          string     `json:"area,omitempty"`
	Type          string     `json:"type"`
	Source        SpotSource `json:"source"`
	ManualOverride bool      `json:"manual_override,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
}

// Venue is a canonical venue row. The pipeline only ever reads venues.
type Venue struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Area      string  `json:"area,omitempty"`
}

// VenueMatch is the best candidate venue for a free-text spot. Computed on
// demand and never stored; a spot either carries the resolved venue ID or
// none.
type VenueMatch struct {
	VenueID        string  `json:"venue_id"`
	VenueName      string  `json:"venue_name"`
	DistanceMeters int     `json:"distance_meters"`
	Score          float64 `json:"score"`
}
