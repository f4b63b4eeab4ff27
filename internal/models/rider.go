package models

import "time"

// Rider is a registered RFID tag holder with a prepaid wallet.
// Balance is a cached total reconciled through wallet_transactions
// and is never allowed below zero.
type Rider struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	RFID          string    `db:"rfid" json:"rfid"`
	Email         string    `db:"email" json:"email,omitempty"`
	VehicleNumber string    `db:"vehicle_number" json:"vehicleNumber,omitempty"`
	Balance       int64     `db:"balance" json:"walletBalance"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}
