package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dealmap/promo-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	lat  REAL NOT NULL,
	lng  REAL NOT NULL,
	area TEXT
);

CREATE TABLE IF NOT EXISTS spots (
	id              INTEGER PRIMARY KEY,
	venue_id        TEXT REFERENCES venues(id),
	title           TEXT NOT NULL,
	description     TEXT,
	promotion_time  TEXT,
	promotion_list  TEXT,
	source_url      TEXT,
	photo_url       TEXT,
	area            TEXT,
	type            TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT 'automated',
	manual_override INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS gold_records (
	id           TEXT PRIMARY KEY,
	venue_name   TEXT NOT NULL,
	lat          REAL,
	lng          REAL,
	source_url   TEXT,
	content_hash   TEXT,
	photo_path     TEXT,
	entries        TEXT NOT NULL,
	scraped_at     DATETIME,
	processed_hash TEXT
);

CREATE INDEX IF NOT EXISTS idx_venues_lat_lng ON venues(lat, lng);
CREATE INDEX IF NOT EXISTS idx_spots_venue_type ON spots(venue_id, type);
CREATE INDEX IF NOT EXISTS idx_gold_content_hash ON gold_records(content_hash);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Venues ---

func (s *SQLiteStore) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng, COALESCE(area, '') FROM venues WHERE id = ?`, id)

	var v model.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Latitude, &v.Longitude, &v.Area)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get venue %s", id)
	}
	return &v, nil
}

func (s *SQLiteStore) ListVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lat, lng, COALESCE(area, '') FROM venues ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list venues")
	}
	defer rows.Close()
	return scanVenues(rows)
}

func (s *SQLiteStore) QueryVenuesNear(ctx context.Context, lat, lng, halfWidthDeg float64, limit int) ([]model.Venue, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, lat, lng, COALESCE(area, '')
		 FROM venues
		 WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
		 ORDER BY (lat - ?) * (lat - ?) + (lng - ?) * (lng - ?) ASC, id ASC
		 LIMIT ?`,
		lat-halfWidthDeg, lat+halfWidthDeg, lng-halfWidthDeg, lng+halfWidthDeg,
		lat, lat, lng, lng, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query venues near")
	}
	defer rows.Close()
	return scanVenues(rows)
}

func scanVenues(rows *sql.Rows) ([]model.Venue, error) {
	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Latitude, &v.Longitude, &v.Area); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan venue")
		}
		venues = append(venues, v)
	}
	return venues, eris.Wrap(rows.Err(), "sqlite: iterate venues")
}

// --- Spots ---

func (s *SQLiteStore) InsertSpot(ctx context.Context, sp *model.Spot) error {
	listJSON, err := json.Marshal(sp.PromotionList)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal promotion list")
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO spots (id, venue_id, title, description, promotion_time, promotion_list,
		                    source_url, photo_url, area, type, source, manual_override, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, nullStr(sp.VenueID), sp.Title, nullStr(sp.Description), nullStr(sp.PromotionTime),
		string(listJSON), nullStr(sp.SourceURL), nullStr(sp.PhotoURL), nullStr(sp.Area),
		sp.Type, string(sp.Source), boolInt(sp.ManualOverride), sp.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert spot %d", sp.ID)
}

func (s *SQLiteStore) UpdateSpot(ctx context.Context, sp *model.Spot) error {
	listJSON, err := json.Marshal(sp.PromotionList)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal promotion list")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE spots SET venue_id = ?, title = ?, description = ?, promotion_time = ?,
		                  promotion_list = ?, source_url = ?, photo_url = ?, area = ?,
		                  type = ?, source = ?, manual_override = ?
		 WHERE id = ?`,
		nullStr(sp.VenueID), sp.Title, nullStr(sp.Description), nullStr(sp.PromotionTime),
		string(listJSON), nullStr(sp.SourceURL), nullStr(sp.PhotoURL), nullStr(sp.Area),
		sp.Type, string(sp.Source), boolInt(sp.ManualOverride), sp.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update spot %d", sp.ID)
	}
	return checkRowsAffected(res, "spot", sp.ID)
}

func (s *SQLiteStore) DeleteSpot(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete spot %d", id)
	}
	return checkRowsAffected(res, "spot", id)
}

func (s *SQLiteStore) DeleteAutomatedSpots(ctx context.Context, venueID, spotType string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM spots
		 WHERE venue_id = ? AND type = ? AND source = ? AND manual_override = 0`,
		venueID, spotType, string(model.SpotSourceAutomated),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete automated spots for %s/%s", venueID, spotType)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) DeleteUnlinkedAutomatedSpots(ctx context.Context, title, spotType string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM spots
		 WHERE venue_id IS NULL AND title = ? AND type = ? AND source = ? AND manual_override = 0`,
		title, spotType, string(model.SpotSourceAutomated),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete unlinked automated spots for %s/%s", title, spotType)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ListSpots(ctx context.Context, venueID string) ([]model.Spot, error) {
	query := `SELECT id, COALESCE(venue_id, ''), title, COALESCE(description, ''),
	                 COALESCE(promotion_time, ''), COALESCE(promotion_list, '[]'),
	                 COALESCE(source_url, ''), COALESCE(photo_url, ''), COALESCE(area, ''),
	                 type, source, manual_override, created_at
	          FROM spots`
	var args []any
	if venueID != "" {
		query += ` WHERE venue_id = ?`
		args = append(args, venueID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list spots")
	}
	defer rows.Close()

	var spots []model.Spot
	for rows.Next() {
		var sp model.Spot
		var listJSON string
		var manual int
		if err := rows.Scan(&sp.ID, &sp.VenueID, &sp.Title, &sp.Description,
			&sp.PromotionTime, &listJSON, &sp.SourceURL, &sp.PhotoURL, &sp.Area,
			&sp.Type, &sp.Source, &manual, &sp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan spot")
		}
		if err := json.Unmarshal([]byte(listJSON), &sp.PromotionList); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal promotion list")
		}
		sp.ManualOverride = manual != 0
		spots = append(spots, sp)
	}
	return spots, eris.Wrap(rows.Err(), "sqlite: iterate spots")
}

func (s *SQLiteStore) MaxSpotID(ctx context.Context) (int, error) {
	var maxID sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM spots`).Scan(&maxID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: max spot id")
	}
	return int(maxID.Int64), nil
}

// --- Gold records ---

func (s *SQLiteStore) UpsertGoldRecord(ctx context.Context, g *model.GoldRecord) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.ScrapedAt.IsZero() {
		g.ScrapedAt = time.Now().UTC()
	}

	entriesJSON, err := json.Marshal(g.Entries())
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal gold entries")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO gold_records (id, venue_name, lat, lng, source_url, content_hash, photo_path, entries, scraped_at, processed_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   venue_name = excluded.venue_name,
		   lat = excluded.lat,
		   lng = excluded.lng,
		   source_url = excluded.source_url,
		   content_hash = excluded.content_hash,
		   photo_path = excluded.photo_path,
		   entries = excluded.entries,
		   scraped_at = excluded.scraped_at,
		   processed_hash = excluded.processed_hash`,
		g.ID, g.VenueName, g.Latitude, g.Longitude, nullStr(g.SourceURL),
		nullStr(g.ContentHash), nullStr(g.PhotoPath), string(entriesJSON), g.ScrapedAt,
		nullStr(g.ProcessedHash),
	)
	return eris.Wrapf(err, "sqlite: upsert gold record %s", g.ID)
}

// MarkGoldProcessed records the content hash spots were last built from,
// so an unchanged record is skipped on the next run.
func (s *SQLiteStore) MarkGoldProcessed(ctx context.Context, id, contentHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE gold_records SET processed_hash = ? WHERE id = ?`,
		nullStr(contentHash), id)
	return eris.Wrapf(err, "sqlite: mark gold record %s processed", id)
}

func (s *SQLiteStore) ListGoldRecords(ctx context.Context) ([]model.GoldRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, venue_name, lat, lng, COALESCE(source_url, ''), COALESCE(content_hash, ''),
		        COALESCE(photo_path, ''), entries, scraped_at, COALESCE(processed_hash, '')
		 FROM gold_records ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list gold records")
	}
	defer rows.Close()

	var records []model.GoldRecord
	for rows.Next() {
		g, err := scanGoldRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *g)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate gold records")
}

func (s *SQLiteStore) GetGoldRecord(ctx context.Context, id string) (*model.GoldRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, venue_name, lat, lng, COALESCE(source_url, ''), COALESCE(content_hash, ''),
		        COALESCE(photo_path, ''), entries, scraped_at, COALESCE(processed_hash, '')
		 FROM gold_records WHERE id = ?`, id)

	g, err := scanGoldRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanGoldRecord(row scannable) (*model.GoldRecord, error) {
	var g model.GoldRecord
	var entriesJSON string
	err := row.Scan(&g.ID, &g.VenueName, &g.Latitude, &g.Longitude,
		&g.SourceURL, &g.ContentHash, &g.PhotoPath, &entriesJSON, &g.ScrapedAt,
		&g.ProcessedHash)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan gold record")
	}
	if err := json.Unmarshal([]byte(entriesJSON), &g.PromotionEntries); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal gold entries")
	}
	return &g, nil
}

func checkRowsAffected(res sql.Result, entity string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
