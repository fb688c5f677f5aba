package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Alias1177/HousePricer/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	now func() time.Time
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection, retrying the first ping
func New(params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// The database often comes up after the service in compose setups
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(sqlDB.Ping, expo, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("Database not reachable yet")
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := Wrap(sqlDB)
	if err := db.CreateTables(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Wrap adapts an already opened *sql.DB
func Wrap(sqlDB *sql.DB) *DB {
	return &DB{DB: sqlDB, now: time.Now}
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			id UUID PRIMARY KEY,
			sqft NUMERIC(10,2) NOT NULL,
			bedrooms INTEGER NOT NULL,
			bathrooms NUMERIC(4,1) NOT NULL,
			location TEXT NOT NULL,
			year_built INTEGER,
			lot_size NUMERIC(12,2),
			garage INTEGER,
			property_type TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating properties table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id UUID PRIMARY KEY,
			property_id UUID NOT NULL REFERENCES properties(id),
			estimated_price NUMERIC(14,2) NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			lower_bound NUMERIC(14,2) NOT NULL,
			upper_bound NUMERIC(14,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating predictions table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS predictions_created_at_idx ON predictions (created_at DESC)
	`)
	return err
}

// CreateProperty stores validated features under a new id
func (db *DB) CreateProperty(ctx context.Context, features models.PropertyFeatures) (models.Property, error) {
	p := models.Property{
		ID:               uuid.NewString(),
		PropertyFeatures: features,
		CreatedAt:        db.now().UTC(),
	}

	var propertyType sql.NullString
	if features.PropertyType != "" {
		propertyType = sql.NullString{String: features.PropertyType, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO properties (
			id, sqft, bedrooms, bathrooms, location, year_built, lot_size, garage, property_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.ID, features.Sqft, features.Bedrooms, features.Bathrooms, features.Location,
		nullInt(features.YearBuilt), nullFloat(features.LotSize), nullInt(features.Garage),
		propertyType, p.CreatedAt)
	if err != nil {
		return models.Property{}, err
	}

	return p, nil
}

// CreatePrediction stores a prediction for an existing property
func (db *DB) CreatePrediction(ctx context.Context, np models.NewPrediction) (models.StoredPrediction, error) {
	sp := models.StoredPrediction{
		ID:               uuid.NewString(),
		PropertyID:       np.PropertyID,
		PredictionResult: np.PredictionResult,
		CreatedAt:        db.now().UTC(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, property_id, estimated_price, confidence, lower_bound, upper_bound, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		sp.ID, sp.PropertyID,
		money(np.EstimatedPrice), np.Confidence, money(np.LowerBound), money(np.UpperBound),
		sp.CreatedAt)
	if err != nil {
		return models.StoredPrediction{}, err
	}

	return sp, nil
}

// GetProperty retrieves a property by id
func (db *DB) GetProperty(ctx context.Context, id string) (models.Property, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Property{}, models.ErrNotFound
	}

	var p models.Property
	var yearBuilt, garage sql.NullInt64
	var lotSize sql.NullFloat64
	var propertyType sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT
			id, sqft, bedrooms, bathrooms, location, year_built, lot_size, garage, property_type, created_at
		FROM properties
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Sqft, &p.Bedrooms, &p.Bathrooms, &p.Location,
		&yearBuilt, &lotSize, &garage, &propertyType, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Property{}, models.ErrNotFound
		}
		return models.Property{}, err
	}

	if yearBuilt.Valid {
		v := int(yearBuilt.Int64)
		p.YearBuilt = &v
	}
	if garage.Valid {
		v := int(garage.Int64)
		p.Garage = &v
	}
	if lotSize.Valid {
		p.LotSize = &lotSize.Float64
	}
	if propertyType.Valid {
		p.PropertyType = propertyType.String
	}

	return p, nil
}

// RecentPredictions lists the newest predictions first
func (db *DB) RecentPredictions(ctx context.Context, limit int) ([]models.StoredPrediction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			id, property_id, estimated_price, confidence, lower_bound, upper_bound, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredPrediction
	for rows.Next() {
		var sp models.StoredPrediction
		var price, lower, upper decimal.Decimal
		if err := rows.Scan(&sp.ID, &sp.PropertyID, &price, &sp.Confidence, &lower, &upper, &sp.CreatedAt); err != nil {
			return nil, err
		}
		sp.EstimatedPrice = price.InexactFloat64()
		sp.LowerBound = lower.InexactFloat64()
		sp.UpperBound = upper.InexactFloat64()
		out = append(out, sp)
	}

	return out, rows.Err()
}

// money rounds to cents for NUMERIC(14,2) columns
func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
