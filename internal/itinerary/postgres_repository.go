package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Payloads are stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL itinerary repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new itinerary record.
func (r *PostgresRepository) Create(ctx context.Context, record *Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	query := `
		INSERT INTO itineraries (id, user_id, title, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Title,
		payload,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting itinerary: %w", err)
	}
	return nil
}

// GetByUserAndID retrieves an itinerary by user ID and itinerary ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, id string) (*Record, error) {
	query := `
		SELECT id, user_id, title, payload, created_at, updated_at
		FROM itineraries
		WHERE id = $1 AND user_id = $2
	`

	var (
		rec     Record
		payload []byte
	)
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Title,
		&payload,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItineraryNotFound
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	rec.Payload = &doc

	return &rec, nil
}

// ListByUser returns summaries of a user's itineraries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Summary, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM itineraries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
