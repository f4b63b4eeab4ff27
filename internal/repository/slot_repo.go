package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"parkwise/internal/models"
)

// Slot allocation errors.
var (
	ErrNoSlotAvailable = errors.New("no parking slot available")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotVacant      = errors.New("slot is not occupied")
	ErrNoActiveSession = errors.New("no active session for rfid")
)

// claimAttempts bounds the optimistic retry loop. Each lost race means
// another claim just took the candidate slot, so a handful of attempts is
// plenty even at full contention.
const claimAttempts = 8

// SlotRepository handles the parking_slots table. Claim and Release are the
// allocator: every occupancy transition is a single conditional UPDATE so
// concurrent claims can never both win the same slot.
type SlotRepository struct {
	db *sql.DB
}

// NewSlotRepository returns repository.
func NewSlotRepository(db *sql.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Claim atomically marks the lowest-numbered vacant slot as occupied by the
// given rider and returns it. The candidate lookup and the conditional
// update are separate statements; losing the race on the update (zero rows)
// just means another claim won that slot, so the loop picks the next
// candidate. Returns ErrNoSlotAvailable when no vacant slot remains.
func (r *SlotRepository) Claim(ctx context.Context, riderID int64, rfid string, entryTime time.Time) (*models.Slot, error) {
	const candidate = `
		SELECT slot_number
		FROM parking_slots
		WHERE occupied = FALSE
		ORDER BY slot_number
		LIMIT 1
	`
	const claim = `
		UPDATE parking_slots
		SET occupied = TRUE, rider_id = $2, rfid = $3, entry_time = $4
		WHERE slot_number = $1 AND occupied = FALSE
		RETURNING slot_number, occupied, rider_id, rfid, entry_time
	`

	for attempt := 0; attempt < claimAttempts; attempt++ {
		var number int
		err := r.db.QueryRowContext(ctx, candidate).Scan(&number)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSlotAvailable
		}
		if err != nil {
			return nil, err
		}

		slot, err := scanSlot(r.db.QueryRowContext(ctx, claim, number, riderID, rfid, entryTime))
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race for this slot; try the next vacant one.
			continue
		}
		if err != nil {
			return nil, err
		}
		return slot, nil
	}

	return nil, ErrNoSlotAvailable
}

// Release unconditionally vacates a slot, clearing all occupancy fields.
func (r *SlotRepository) Release(ctx context.Context, slotNumber int) error {
	const query = `
		UPDATE parking_slots
		SET occupied = FALSE, rider_id = NULL, rfid = NULL, entry_time = NULL
		WHERE slot_number = $1
	`
	result, err := r.db.ExecContext(ctx, query, slotNumber)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// ForceRelease vacates an occupied slot only; a vacant slot is reported as
// ErrSlotVacant so the admin caller can distinguish the two outcomes.
func (r *SlotRepository) ForceRelease(ctx context.Context, slotNumber int) error {
	const query = `
		UPDATE parking_slots
		SET occupied = FALSE, rider_id = NULL, rfid = NULL, entry_time = NULL
		WHERE slot_number = $1 AND occupied = TRUE
	`
	result, err := r.db.ExecContext(ctx, query, slotNumber)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the slot does not exist or it is already vacant.
	var occupied bool
	err = r.db.QueryRowContext(ctx, `SELECT occupied FROM parking_slots WHERE slot_number = $1`, slotNumber).Scan(&occupied)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}
	return ErrSlotVacant
}

// FindOccupiedByRFID locates the slot currently held by a tag.
func (r *SlotRepository) FindOccupiedByRFID(ctx context.Context, rfid string) (*models.Slot, error) {
	const query = `
		SELECT slot_number, occupied, rider_id, rfid, entry_time
		FROM parking_slots
		WHERE rfid = $1 AND occupied = TRUE
		LIMIT 1
	`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, rfid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// GetByNumber fetches one slot.
func (r *SlotRepository) GetByNumber(ctx context.Context, slotNumber int) (*models.Slot, error) {
	const query = `
		SELECT slot_number, occupied, rider_id, rfid, entry_time
		FROM parking_slots
		WHERE slot_number = $1
	`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, slotNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// List returns all slots ordered by number.
func (r *SlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	const query = `
		SELECT slot_number, occupied, rider_id, rfid, entry_time
		FROM parking_slots
		ORDER BY slot_number
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var slot models.Slot
		if err := rows.Scan(&slot.Number, &slot.Occupied, &slot.RiderID, &slot.RFID, &slot.EntryTime); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// Occupancy returns total and occupied slot counts.
func (r *SlotRepository) Occupancy(ctx context.Context) (total, occupied int64, err error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE occupied)
		FROM parking_slots
	`
	err = r.db.QueryRowContext(ctx, query).Scan(&total, &occupied)
	return total, occupied, err
}

func scanSlot(row *sql.Row) (*models.Slot, error) {
	var slot models.Slot
	if err := row.Scan(&slot.Number, &slot.Occupied, &slot.RiderID, &slot.RFID, &slot.EntryTime); err != nil {
		return nil, err
	}
	return &slot, nil
}
