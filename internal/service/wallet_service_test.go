package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"parkwise/internal/bus"
	"parkwise/internal/models"
	"parkwise/internal/repository"
)

type fakeWalletStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	entries  []models.Transaction
	usedIDs  map[string]bool
}

func newFakeWalletStore(balances map[int64]int64) *fakeWalletStore {
	return &fakeWalletStore{
		balances: balances,
		usedIDs:  make(map[string]bool),
	}
}

func (s *fakeWalletStore) Credit(_ context.Context, entry *models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedIDs[entry.TransactionID] {
		return 0, repository.ErrDuplicateTransactionID
	}
	s.usedIDs[entry.TransactionID] = true
	s.balances[entry.RiderID] += entry.Amount
	s.entries = append(s.entries, *entry)
	return s.balances[entry.RiderID], nil
}

func (s *fakeWalletStore) Debit(_ context.Context, entry *models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usedIDs[entry.TransactionID] {
		return 0, repository.ErrDuplicateTransactionID
	}
	amount := -entry.Amount
	if s.balances[entry.RiderID] < amount {
		return 0, repository.ErrInsufficientFunds
	}
	s.usedIDs[entry.TransactionID] = true
	s.balances[entry.RiderID] += entry.Amount
	s.entries = append(s.entries, *entry)
	return s.balances[entry.RiderID], nil
}

func (s *fakeWalletStore) reserveID(id string) {
	s.mu.Lock()
	s.usedIDs[id] = true
	s.mu.Unlock()
}

func (s *fakeWalletStore) ledgerSum(riderID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.entries {
		if e.RiderID == riderID {
			sum += e.Amount
		}
	}
	return sum
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []interface{}
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := NewWalletService(newFakeWalletStore(map[int64]int64{1: 0}), nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1"}

	for _, amount := range []int64{0, -50} {
		if _, _, err := svc.Credit(context.Background(), r, amount, models.PaymentMethodCard); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Credit(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	svc := NewWalletService(newFakeWalletStore(map[int64]int64{1: 100}), nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1"}

	if _, _, err := svc.Debit(context.Background(), r, 0, "fee"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestCreditAppendsTopupAndPublishesStatus(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 10})
	pub := &fakePublisher{}
	svc := NewWalletService(store, pub, zap.NewNop())
	r := &models.Rider{ID: 1, Name: "Asha", RFID: "tag-1", Balance: 10}

	tx, balance, err := svc.Credit(context.Background(), r, 50, models.PaymentMethodCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 60 {
		t.Errorf("balance = %d, want 60", balance)
	}
	if tx.Kind != models.TransactionTopup || tx.Amount != 50 {
		t.Errorf("tx = %+v, want TOPUP of +50", tx)
	}
	if tx.TransactionID == "" {
		t.Error("transaction id must be assigned")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.topics) != 1 || pub.topics[0] != bus.TopicPaymentStatus {
		t.Fatalf("topics = %v, want one payment status publish", pub.topics)
	}
	status, ok := pub.payloads[0].(bus.PaymentStatus)
	if !ok {
		t.Fatalf("payload type = %T, want bus.PaymentStatus", pub.payloads[0])
	}
	if status.RFID != "tag-1" || !status.Paid || status.WalletBalance != 60 {
		t.Errorf("status = %+v, want paid tag-1 at 60", status)
	}
}

func TestDebitNegatesAmount(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 50})
	svc := NewWalletService(store, nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1", Balance: 50}

	tx, balance, err := svc.Debit(context.Background(), r, 15, "Parking fee for slot 1 (0h 7m)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance != 35 {
		t.Errorf("balance = %d, want 35", balance)
	}
	if tx.Kind != models.TransactionFee || tx.Amount != -15 {
		t.Errorf("tx = %+v, want FEE of -15", tx)
	}
	if tx.PaymentMethod != models.PaymentMethodWallet {
		t.Errorf("method = %q, want WALLET", tx.PaymentMethod)
	}
}

func TestDebitInsufficientFundsLeavesNoEntry(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 5})
	svc := NewWalletService(store, nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1", Balance: 5}

	_, _, err := svc.Debit(context.Background(), r, 15, "fee")
	if !errors.Is(err, repository.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if len(store.entries) != 0 {
		t.Errorf("entries = %d, want none", len(store.entries))
	}
	if store.balances[1] != 5 {
		t.Errorf("balance = %d, want unchanged 5", store.balances[1])
	}
}

func TestTransactionIDCollisionRetries(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 0})
	store.reserveID("TXN-dup")

	original := newTransactionID
	defer func() { newTransactionID = original }()
	ids := []string{"TXN-dup", "TXN-dup", "TXN-fresh"}
	newTransactionID = func() string {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}

	svc := NewWalletService(store, nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1"}

	tx, balance, err := svc.Credit(context.Background(), r, 25, models.PaymentMethodCard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.TransactionID != "TXN-fresh" {
		t.Errorf("transaction id = %q, want regenerated TXN-fresh", tx.TransactionID)
	}
	if balance != 25 {
		t.Errorf("balance = %d, want 25", balance)
	}
	if len(store.entries) != 1 {
		t.Errorf("entries = %d, want exactly 1", len(store.entries))
	}
}

func TestBalanceMatchesLedgerSum(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 0})
	svc := NewWalletService(store, nil, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1"}

	if _, _, err := svc.Credit(context.Background(), r, 100, models.PaymentMethodCard); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, _, err := svc.Debit(context.Background(), r, 15, "fee"); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, _, err := svc.Debit(context.Background(), r, 20, "fee"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	if store.balances[1] != store.ledgerSum(1) {
		t.Errorf("balance %d != ledger sum %d", store.balances[1], store.ledgerSum(1))
	}
	if store.balances[1] != 65 {
		t.Errorf("balance = %d, want 65", store.balances[1])
	}
}

func TestPublishFailureDoesNotFailCredit(t *testing.T) {
	store := newFakeWalletStore(map[int64]int64{1: 0})
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewWalletService(store, pub, zap.NewNop())
	r := &models.Rider{ID: 1, RFID: "tag-1"}

	_, balance, err := svc.Credit(context.Background(), r, 30, models.PaymentMethodCard)
	if err != nil {
		t.Fatalf("credit must not fail on publish error: %v", err)
	}
	if balance != 30 {
		t.Errorf("balance = %d, want 30", balance)
	}
}
