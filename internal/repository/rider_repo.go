package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"parkwise/internal/models"
)

// ErrRiderNotFound represents missing rider rows.
var ErrRiderNotFound = errors.New("rider not found")

// ErrRFIDTaken indicates a registration attempt with an already bound tag.
var ErrRFIDTaken = errors.New("rfid already registered")

// RiderRepository handles persistence of riders.
type RiderRepository struct {
	db *sql.DB
}

// NewRiderRepository returns repository.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{db: db}
}

// Create inserts a new rider with zero balance.
func (r *RiderRepository) Create(ctx context.Context, rider *models.Rider) error {
	rider.RFID = strings.TrimSpace(rider.RFID)
	const query = `
		INSERT INTO riders (name, rfid, email, vehicle_number, balance)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, balance, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		rider.Name,
		rider.RFID,
		rider.Email,
		rider.VehicleNumber,
	).Scan(&rider.ID, &rider.Balance, &rider.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrRFIDTaken
		}
		return err
	}
	return nil
}

// GetByID fetches a rider by primary key.
func (r *RiderRepository) GetByID(ctx context.Context, id int64) (*models.Rider, error) {
	const query = `
		SELECT id, name, rfid, email, vehicle_number, balance, created_at
		FROM riders
		WHERE id = $1
	`
	return r.scanRider(r.db.QueryRowContext(ctx, query, id))
}

// GetByRFID fetches a rider by tag.
func (r *RiderRepository) GetByRFID(ctx context.Context, rfid string) (*models.Rider, error) {
	const query = `
		SELECT id, name, rfid, email, vehicle_number, balance, created_at
		FROM riders
		WHERE rfid = $1
	`
	return r.scanRider(r.db.QueryRowContext(ctx, query, strings.TrimSpace(rfid)))
}

// List returns all riders, newest first.
func (r *RiderRepository) List(ctx context.Context) ([]models.Rider, error) {
	const query = `
		SELECT id, name, rfid, email, vehicle_number, balance, created_at
		FROM riders
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var riders []models.Rider
	for rows.Next() {
		var rider models.Rider
		if err := rows.Scan(
			&rider.ID,
			&rider.Name,
			&rider.RFID,
			&rider.Email,
			&rider.VehicleNumber,
			&rider.Balance,
			&rider.CreatedAt,
		); err != nil {
			return nil, err
		}
		riders = append(riders, rider)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return riders, nil
}

// Count returns the number of registered riders.
func (r *RiderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM riders`).Scan(&count)
	return count, err
}

func (r *RiderRepository) scanRider(row *sql.Row) (*models.Rider, error) {
	var rider models.Rider
	if err := row.Scan(
		&rider.ID,
		&rider.Name,
		&rider.RFID,
		&rider.Email,
		&rider.VehicleNumber,
		&rider.Balance,
		&rider.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRiderNotFound
		}
		return nil, err
	}
	return &rider, nil
}
