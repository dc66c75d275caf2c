package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/BorislavEnchev/AuctionHouse/auction"
)

// PostgresStore implements auction.Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed auction store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auctions (
		id BIGINT PRIMARY KEY,
		asset_id BIGINT NOT NULL,
		registry VARCHAR(512) NOT NULL,
		seller VARCHAR(128) NOT NULL,
		min_price NUMERIC(78, 18) NOT NULL,
		start_time TIMESTAMP WITH TIME ZONE NOT NULL,
		end_time TIMESTAMP WITH TIME ZONE NOT NULL,
		min_bid_increment NUMERIC(78, 18) NOT NULL,
		time_extension_window BIGINT NOT NULL,
		time_extension_increase BIGINT NOT NULL,
		highest_bid NUMERIC(78, 18) NOT NULL,
		highest_bidder VARCHAR(128) NOT NULL DEFAULT '',
		claimed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_auctions_claimed ON auctions(claimed);
	CREATE INDEX IF NOT EXISTS idx_auctions_asset ON auctions(asset_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save upserts an auction record.
func (s *PostgresStore) Save(a *auction.Auction) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO auctions
		(id, asset_id, registry, seller, min_price, start_time, end_time,
		 min_bid_increment, time_extension_window, time_extension_increase,
		 highest_bid, highest_bidder, claimed, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	ON CONFLICT (id) DO UPDATE SET
		end_time = EXCLUDED.end_time,
		highest_bid = EXCLUDED.highest_bid,
		highest_bidder = EXCLUDED.highest_bidder,
		claimed = EXCLUDED.claimed,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(a.ID),
		int64(a.AssetID),
		a.Registry,
		a.Seller,
		a.MinPrice.String(),
		a.StartTime,
		a.EndTime,
		a.MinBidIncrement.String(),
		int64(a.TimeExtensionWindow),
		int64(a.TimeExtensionIncrease),
		a.HighestBid.String(),
		a.HighestBidder,
		a.Claimed,
	)
	return err
}

// LoadAll retrieves every persisted auction record.
func (s *PostgresStore) LoadAll() ([]*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asset_id, registry, seller, min_price, start_time, end_time,
		       min_bid_increment, time_extension_window, time_extension_increase,
		       highest_bid, highest_bidder, claimed
		FROM auctions
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auction.Auction
	for rows.Next() {
		var (
			id, assetID            int64
			registry, seller       string
			minPrice, highestBid   string
			startTime, endTime     time.Time
			minBidIncrement        string
			extWindow, extIncrease int64
			highestBidder          string
			claimed                bool
		)

		if err := rows.Scan(&id, &assetID, &registry, &seller, &minPrice,
			&startTime, &endTime, &minBidIncrement, &extWindow, &extIncrease,
			&highestBid, &highestBidder, &claimed); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		a := &auction.Auction{
			ID:                    uint64(id),
			AssetID:               uint64(assetID),
			Registry:              registry,
			Seller:                seller,
			StartTime:             startTime,
			EndTime:               endTime,
			TimeExtensionWindow:   time.Duration(extWindow),
			TimeExtensionIncrease: time.Duration(extIncrease),
			HighestBidder:         highestBidder,
			Claimed:               claimed,
		}
		if a.MinPrice, err = decimal.NewFromString(minPrice); err != nil {
			return nil, fmt.Errorf("parsing min price: %w", err)
		}
		if a.MinBidIncrement, err = decimal.NewFromString(minBidIncrement); err != nil {
			return nil, fmt.Errorf("parsing min bid increment: %w", err)
		}
		if a.HighestBid, err = decimal.NewFromString(highestBid); err != nil {
			return nil, fmt.Errorf("parsing highest bid: %w", err)
		}

		result = append(result, a)
	}

	return result, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryStore implements auction.Store for testing and storeless runs.
type InMemoryStore struct {
	mu       sync.Mutex
	auctions map[uint64]auction.Auction
}

// NewInMemoryStore creates an in-memory auction store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{auctions: make(map[uint64]auction.Auction)}
}

// Save stores a copy of the record.
func (s *InMemoryStore) Save(a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = *a
	return nil
}

// LoadAll returns copies of all stored records.
func (s *InMemoryStore) LoadAll() ([]*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*auction.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		record := a
		result = append(result, &record)
	}
	return result, nil
}
