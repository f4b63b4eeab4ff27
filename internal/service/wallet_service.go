package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"parkwise/internal/bus"
	"parkwise/internal/models"
	"parkwise/internal/repository"
)

// ErrInvalidAmount rejects non-positive credit or debit amounts.
var ErrInvalidAmount = errors.New("wallet: amount must be positive")

// idRetryAttempts bounds regeneration on transaction-id collisions. A
// collision needs millisecond plus random-suffix agreement, so a second
// attempt already makes failure practically impossible.
const idRetryAttempts = 5

// WalletStore is the durable side of the ledger.
type WalletStore interface {
	Credit(ctx context.Context, entry *models.Transaction) (int64, error)
	Debit(ctx context.Context, entry *models.Transaction) (int64, error)
}

// WalletService is the wallet ledger: it validates amounts, assigns
// transaction ids, and keeps the cached rider balance reconciled with the
// append-only ledger through the store's atomic operations.
type WalletService struct {
	store     WalletStore
	publisher bus.Publisher
	logger    *zap.Logger
}

// NewWalletService builds the ledger service. publisher may be nil when no
// payment-status feed is wired.
func NewWalletService(store WalletStore, publisher bus.Publisher, logger *zap.Logger) *WalletService {
	return &WalletService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Credit tops up a rider's wallet, appends the TOPUP ledger entry, and
// announces the new balance on the payment status topic.
func (s *WalletService) Credit(ctx context.Context, rider *models.Rider, amount int64, method string) (*models.Transaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	if method == "" {
		method = models.PaymentMethodCard
	}

	entry := &models.Transaction{
		RiderID:       rider.ID,
		Kind:          models.TransactionTopup,
		Amount:        amount,
		Description:   fmt.Sprintf("Wallet top-up of %d", amount),
		PaymentMethod: method,
	}

	balance, err := s.apply(ctx, entry, s.store.Credit)
	if err != nil {
		return nil, 0, err
	}

	if s.publisher != nil {
		status := bus.PaymentStatus{RFID: rider.RFID, Paid: true, WalletBalance: balance}
		if err := s.publisher.Publish(ctx, bus.TopicPaymentStatus, status); err != nil {
			s.logger.Warn("failed to publish payment status",
				zap.String("rfid", rider.RFID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("wallet credited",
		zap.Int64("rider_id", rider.ID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)
	return entry, balance, nil
}

// Debit settles a fee against the rider's balance and appends the FEE entry
// with the amount negated. repository.ErrInsufficientFunds reports a short
// balance with nothing committed.
func (s *WalletService) Debit(ctx context.Context, rider *models.Rider, amount int64, description string) (*models.Transaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	entry := &models.Transaction{
		RiderID:       rider.ID,
		Kind:          models.TransactionFee,
		Amount:        -amount,
		Description:   description,
		PaymentMethod: models.PaymentMethodWallet,
	}

	balance, err := s.apply(ctx, entry, s.store.Debit)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("wallet debited",
		zap.Int64("rider_id", rider.ID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)
	return entry, balance, nil
}

// apply runs a ledger operation, regenerating the transaction id when the
// store rejects it as a duplicate. Id collisions never surface to callers.
func (s *WalletService) apply(ctx context.Context, entry *models.Transaction, op func(context.Context, *models.Transaction) (int64, error)) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < idRetryAttempts; attempt++ {
		entry.TransactionID = newTransactionID()
		balance, err := op(ctx, entry)
		if err == nil {
			return balance, nil
		}
		if !errors.Is(err, repository.ErrDuplicateTransactionID) {
			return 0, err
		}
		s.logger.Warn("transaction id collision, regenerating",
			zap.String("transaction_id", entry.TransactionID),
		)
		lastErr = err
	}
	return 0, lastErr
}
