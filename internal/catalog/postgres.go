package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rickgao/live-market/internal/model"
)

// Schema creates the auction_items table.
const Schema = `
CREATE TABLE IF NOT EXISTS auction_items (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL DEFAULT 0,
	name           TEXT NOT NULL,
	supplier       TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	quality        TEXT NOT NULL DEFAULT '',
	certification  TEXT NOT NULL DEFAULT '',
	current_price  NUMERIC(12,2) NOT NULL,
	previous_price NUMERIC(12,2) NOT NULL,
	minimum_bid    NUMERIC(12,2) NOT NULL,
	stock          INTEGER NOT NULL DEFAULT 0,
	rating         NUMERIC(3,1) NOT NULL DEFAULT 0,
	active_bids    INTEGER NOT NULL DEFAULT 0,
	time_left      INTERVAL NOT NULL,
	closed         BOOLEAN NOT NULL DEFAULT FALSE
)`

const selectItems = `
	SELECT id, name, supplier, location, quality, certification,
	       current_price::text, previous_price::text, minimum_bid::text,
	       stock, rating::text, active_bids,
	       (EXTRACT(EPOCH FROM time_left) * 1000)::bigint, closed
	FROM auction_items
	ORDER BY position, id`

// DB is the subset of *pgxpool.Pool used by the catalog.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresSource reads seeds from the auction_items table.
type PostgresSource struct {
	DB     DB
	Now    func() time.Time // Defaults to time.Now
	Logger *slog.Logger
}

// itemRow is one auction_items row as scanned.
type itemRow struct {
	ID            string
	Name          string
	Supplier      string
	Location      string
	Quality       string
	Certification string
	CurrentPrice  string
	PreviousPrice string
	MinimumBid    string
	Stock         int
	Rating        string
	ActiveBids    int
	TimeLeftMs    int64
	Closed        bool
}

// Load implements Source.
func (s PostgresSource) Load(ctx context.Context) ([]model.AuctionItem, error) {
	start := time.Now()

	rows, err := s.DB.Query(ctx, selectItems)
	if err != nil {
		return nil, fmt.Errorf("query auction_items: %w", err)
	}
	defer rows.Close()

	var seeds []Seed
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Supplier, &r.Location, &r.Quality, &r.Certification,
			&r.CurrentPrice, &r.PreviousPrice, &r.MinimumBid,
			&r.Stock, &r.Rating, &r.ActiveBids,
			&r.TimeLeftMs, &r.Closed,
		); err != nil {
			return nil, fmt.Errorf("scan auction_items: %w", err)
		}

		seed, err := r.seed()
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read auction_items: %w", err)
	}
	if len(seeds) == 0 {
		return nil, errors.New("auction_items is empty")
	}

	items, err := fromSeeds(seeds, nowOrDefault(s.Now))
	if err != nil {
		return nil, err
	}

	s.logger().Info("loaded catalog from postgres",
		"items", len(items),
		"duration", time.Since(start),
	)
	return items, nil
}

// seed converts a scanned row.
func (r itemRow) seed() (Seed, error) {
	parse := func(field, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("item %s: parse %s %q: %w", r.ID, field, v, err)
		}
		return d, nil
	}

	current, err := parse("current_price", r.CurrentPrice)
	if err != nil {
		return Seed{}, err
	}
	previous, err := parse("previous_price", r.PreviousPrice)
	if err != nil {
		return Seed{}, err
	}
	minBid, err := parse("minimum_bid", r.MinimumBid)
	if err != nil {
		return Seed{}, err
	}
	rating, err := parse("rating", r.Rating)
	if err != nil {
		return Seed{}, err
	}

	return Seed{
		ID:            r.ID,
		Name:          r.Name,
		Supplier:      r.Supplier,
		Location:      r.Location,
		Quality:       r.Quality,
		Certification: r.Certification,
		CurrentPrice:  current,
		PreviousPrice: previous,
		MinimumBid:    minBid,
		Stock:         r.Stock,
		Rating:        rating,
		ActiveBids:    r.ActiveBids,
		TimeLeft:      time.Duration(r.TimeLeftMs) * time.Millisecond,
		Closed:        r.Closed,
	}, nil
}

// Populate creates the table if needed and inserts seeds, leaving existing
// ids untouched. It returns the number of ids that already existed.
func (s PostgresSource) Populate(ctx context.Context, seeds []Seed) (conflicts int, err error) {
	if _, err := s.DB.Exec(ctx, Schema); err != nil {
		return 0, fmt.Errorf("create auction_items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, sd := range seeds {
		batch.Queue(`
			INSERT INTO auction_items (id, position, name, supplier, location, quality, certification,
				current_price, previous_price, minimum_bid, stock, rating, active_bids, time_left, closed)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11, $12::numeric, $13,
				make_interval(secs => $14::double precision), $15)
			ON CONFLICT (id) DO NOTHING
		`, sd.ID, i, sd.Name, sd.Supplier, sd.Location, sd.Quality, sd.Certification,
			sd.CurrentPrice.String(), sd.PreviousPrice.String(), sd.MinimumBid.String(),
			sd.Stock, sd.Rating.String(), sd.ActiveBids, sd.TimeLeft.Seconds(), sd.Closed)
	}

	results := s.DB.SendBatch(ctx, batch)
	defer results.Close()

	for range seeds {
		ct, err := results.Exec()
		if err != nil {
			return conflicts, fmt.Errorf("insert auction_items: %w", err)
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	s.logger().Info("populated auction_items",
		"seeds", len(seeds),
		"conflicts", conflicts,
	)
	return conflicts, nil
}

func (s PostgresSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
