package models

import "time"

// Transaction kinds.
const (
	TransactionTopup = "TOPUP"
	TransactionFee   = "FEE"
)

// Payment method tags.
const (
	PaymentMethodWallet = "WALLET"
	PaymentMethodCard   = "CARD"
)

// Transaction is one append-only wallet ledger entry. Amount is signed:
// positive for top-ups, negative for parking fees.
type Transaction struct {
	ID            int64     `db:"id" json:"id"`
	TransactionID string    `db:"transaction_id" json:"transactionId"`
	RiderID       int64     `db:"rider_id" json:"riderId"`
	Kind          string    `db:"kind" json:"type"`
	Amount        int64     `db:"amount" json:"amount"`
	Description   string    `db:"description" json:"description"`
	PaymentMethod string    `db:"payment_method" json:"paymentMethod"`
	CreatedAt     time.Time `db:"created_at" json:"timestamp"`
}
