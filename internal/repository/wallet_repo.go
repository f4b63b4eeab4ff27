package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"parkwise/internal/models"
)

// Wallet ledger errors.
var (
	ErrInsufficientFunds      = errors.New("insufficient wallet balance")
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
)

// Postgres unique_violation.
const uniqueViolationCode = "23505"

// WalletRepository is the durable side of the wallet ledger. Balance moves
// and ledger inserts commit in one SQL transaction, and the balance update
// is a single conditional statement so concurrent settlements on the same
// rider can never interleave into a lost update or a negative balance.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository returns repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Credit increases the rider balance and appends the TOPUP entry. The
// returned transaction carries the committed row and the new balance is
// returned alongside. ErrDuplicateTransactionID reports an id collision;
// callers regenerate the id and retry.
func (r *WalletRepository) Credit(ctx context.Context, entry *models.Transaction) (newBalance int64, err error) {
	const update = `
		UPDATE riders
		SET balance = balance + $2
		WHERE id = $1
		RETURNING balance
	`
	return r.apply(ctx, entry, update, entry.Amount)
}

// Debit decreases the rider balance and appends the FEE entry. The balance
// check and decrement are one conditional UPDATE: zero rows affected with
// the rider present means the balance was short, reported as
// ErrInsufficientFunds with nothing committed.
func (r *WalletRepository) Debit(ctx context.Context, entry *models.Transaction) (newBalance int64, err error) {
	const update = `
		UPDATE riders
		SET balance = balance - $2
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`
	return r.apply(ctx, entry, update, -entry.Amount)
}

func (r *WalletRepository) apply(ctx context.Context, entry *models.Transaction, update string, delta int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	magnitude := delta
	if magnitude < 0 {
		magnitude = -magnitude
	}

	var balance int64
	err = tx.QueryRowContext(ctx, update, entry.RiderID, magnitude).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a short balance from a missing rider.
		var exists bool
		if checkErr := tx.QueryRowContext(ctx, `SELECT TRUE FROM riders WHERE id = $1`, entry.RiderID).Scan(&exists); checkErr != nil {
			if errors.Is(checkErr, sql.ErrNoRows) {
				return 0, ErrRiderNotFound
			}
			return 0, checkErr
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}

	const insert = `
		INSERT INTO wallet_transactions (transaction_id, rider_id, kind, amount, description, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, insert,
		entry.TransactionID,
		entry.RiderID,
		entry.Kind,
		entry.Amount,
		entry.Description,
		entry.PaymentMethod,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, ErrDuplicateTransactionID
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

// ListByRider returns a rider's ledger entries, newest first.
func (r *WalletRepository) ListByRider(ctx context.Context, riderID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, transaction_id, rider_id, kind, amount, description, payment_method, created_at
		FROM wallet_transactions
		WHERE rider_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryTransactions(ctx, query, riderID, limit)
}

// ListRecent returns the latest ledger entries across all riders.
func (r *WalletRepository) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, transaction_id, rider_id, kind, amount, description, payment_method, created_at
		FROM wallet_transactions
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.queryTransactions(ctx, query, limit)
}

// FeeRevenueSince sums collected parking fees (as a positive amount) for
// entries at or after the cutoff. A zero cutoff sums the full ledger.
func (r *WalletRepository) FeeRevenueSince(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(-amount), 0)
		FROM wallet_transactions
		WHERE kind = $1 AND created_at >= $2
	`
	var revenue int64
	err := r.db.QueryRowContext(ctx, query, models.TransactionFee, cutoff).Scan(&revenue)
	return revenue, err
}

func (r *WalletRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.TransactionID,
			&tx.RiderID,
			&tx.Kind,
			&tx.Amount,
			&tx.Description,
			&tx.PaymentMethod,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}
