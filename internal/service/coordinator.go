package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkwise/internal/bus"
	"parkwise/internal/fees"
	"parkwise/internal/models"
	"parkwise/internal/redisstore"
	"parkwise/internal/repository"
)

// Gate response messages rendered by the reader displays.
const (
	msgUnknownRider    = "User not registered"
	msgNoSlotAvailable = "No parking slots available"
	msgAlreadyParked   = "Vehicle already parked"
	msgNoActiveSession = "No active parking found"
)

// RiderStore resolves riders presented at the gate.
type RiderStore interface {
	GetByRFID(ctx context.Context, rfid string) (*models.Rider, error)
}

// SlotStore is the slot allocator. Claim and the release operations are
// atomic conditional updates scoped to a single slot row.
type SlotStore interface {
	Claim(ctx context.Context, riderID int64, rfid string, entryTime time.Time) (*models.Slot, error)
	Release(ctx context.Context, slotNumber int) error
	ForceRelease(ctx context.Context, slotNumber int) error
	FindOccupiedByRFID(ctx context.Context, rfid string) (*models.Slot, error)
	GetByNumber(ctx context.Context, slotNumber int) (*models.Slot, error)
}

// Ledger settles fees against the prepaid balance.
type Ledger interface {
	Debit(ctx context.Context, rider *models.Rider, amount int64, description string) (*models.Transaction, int64, error)
}

// SlotNotifier receives every slot occupancy transition.
type SlotNotifier interface {
	SlotChanged(slot models.Slot)
}

// Coordinator is the session state machine driven by gate events: it
// resolves the rider, claims or settles a slot, and builds the response the
// egress publishes. A returned error means the event must be dropped
// without a response.
type Coordinator struct {
	riders   RiderStore
	slots    SlotStore
	ledger   Ledger
	calc     *fees.Calculator
	sessions *redisstore.Store
	notifier SlotNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinator builds the coordinator. sessions and notifier may be nil.
func NewCoordinator(
	riders RiderStore,
	slots SlotStore,
	ledger Ledger,
	calc *fees.Calculator,
	sessions *redisstore.Store,
	notifier SlotNotifier,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		riders:   riders,
		slots:    slots,
		ledger:   ledger,
		calc:     calc,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleEntry processes one gate entry event. A tag that already holds a
// slot is rejected: one tag maps to at most one live session, otherwise the
// exit lookup would be ambiguous.
func (c *Coordinator) HandleEntry(ctx context.Context, req bus.GateRequest) (*bus.EntryResponse, error) {
	rider, err := c.riders.GetByRFID(ctx, req.RFID)
	if errors.Is(err, repository.ErrRiderNotFound) {
		return &bus.EntryResponse{Success: false, Message: msgUnknownRider}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve rider: %w", err)
	}

	if _, err := c.slots.FindOccupiedByRFID(ctx, req.RFID); err == nil {
		return &bus.EntryResponse{Success: false, Message: msgAlreadyParked}, nil
	} else if !errors.Is(err, repository.ErrNoActiveSession) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	slot, err := c.slots.Claim(ctx, rider.ID, req.RFID, c.now().UTC())
	if errors.Is(err, repository.ErrNoSlotAvailable) {
		return &bus.EntryResponse{Success: false, Message: msgNoSlotAvailable}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	c.cacheSession(ctx, rider, slot)
	c.notifySlot(*slot)

	c.logger.Info("slot claimed",
		zap.Int("slot_number", slot.Number),
		zap.Int64("rider_id", rider.ID),
		zap.String("device_id", req.DeviceID),
	)
	return &bus.EntryResponse{
		Success:    true,
		UserName:   rider.Name,
		SlotNumber: slot.Number,
	}, nil
}

// HandleExit processes one gate exit event. On a short balance the session
// keeps running with its original entry time, so a later exit bills the
// full elapsed duration.
func (c *Coordinator) HandleExit(ctx context.Context, req bus.GateRequest) (*bus.ExitResponse, error) {
	rider, err := c.riders.GetByRFID(ctx, req.RFID)
	if errors.Is(err, repository.ErrRiderNotFound) {
		return &bus.ExitResponse{Success: false, Message: msgUnknownRider}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve rider: %w", err)
	}

	slot, err := c.slots.FindOccupiedByRFID(ctx, req.RFID)
	if errors.Is(err, repository.ErrNoActiveSession) {
		return &bus.ExitResponse{Success: false, Message: msgNoActiveSession}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	fee, duration, err := c.calc.Calculate(*slot.EntryTime, c.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("compute fee: %w", err)
	}

	if rider.Balance < fee {
		return insufficientBalance(rider, fee, duration, rider.Balance), nil
	}

	description := fmt.Sprintf("Parking fee for slot %d (%s)", slot.Number, duration)
	_, balance, err := c.ledger.Debit(ctx, rider, fee, description)
	if errors.Is(err, repository.ErrInsufficientFunds) {
		// A concurrent spend drained the wallet between the read and the
		// settlement; the session keeps running like any short balance.
		return insufficientBalance(rider, fee, duration, rider.Balance), nil
	}
	if err != nil {
		return nil, fmt.Errorf("settle fee: %w", err)
	}

	if err := c.slots.Release(ctx, slot.Number); err != nil {
		// The fee is committed; an operator can force-release the slot.
		c.logger.Error("slot release failed after settlement",
			zap.Int("slot_number", slot.Number),
			zap.Int64("rider_id", rider.ID),
			zap.Error(err),
		)
	} else {
		c.dropSession(ctx, req.RFID)
		c.notifySlot(models.Slot{Number: slot.Number})
	}

	c.logger.Info("session settled",
		zap.Int("slot_number", slot.Number),
		zap.Int64("rider_id", rider.ID),
		zap.Int64("fee", fee),
		zap.String("duration", duration.String()),
	)
	return &bus.ExitResponse{
		Success:         true,
		UserName:        rider.Name,
		ParkingFee:      fee,
		ParkingDuration: duration.String(),
		PaymentStatus:   bus.PaymentStatusSettled,
		WalletBalance:   &balance,
	}, nil
}

// ForceRelease vacates a slot with no fee and no ledger entry, regardless
// of the occupant's balance.
func (c *Coordinator) ForceRelease(ctx context.Context, slotNumber int) error {
	slot, err := c.slots.GetByNumber(ctx, slotNumber)
	if err != nil {
		return err
	}

	if err := c.slots.ForceRelease(ctx, slotNumber); err != nil {
		return err
	}

	if slot.RFID != nil {
		c.dropSession(ctx, *slot.RFID)
	}
	c.notifySlot(models.Slot{Number: slotNumber})

	c.logger.Info("slot force-released", zap.Int("slot_number", slotNumber))
	return nil
}

func insufficientBalance(rider *models.Rider, fee int64, duration fees.Duration, balance int64) *bus.ExitResponse {
	return &bus.ExitResponse{
		Success:         true,
		UserName:        rider.Name,
		ParkingFee:      fee,
		ParkingDuration: duration.String(),
		PaymentStatus:   bus.PaymentStatusInsufficientBalance,
		WalletBalance:   &balance,
	}
}

func (c *Coordinator) cacheSession(ctx context.Context, rider *models.Rider, slot *models.Slot) {
	if c.sessions == nil || slot.EntryTime == nil {
		return
	}
	err := c.sessions.Save(ctx, redisstore.ActiveSession{
		SlotNumber: slot.Number,
		RiderID:    rider.ID,
		RiderName:  rider.Name,
		RFID:       rider.RFID,
		EntryTime:  *slot.EntryTime,
	})
	if err != nil && err != redis.Nil {
		c.logger.Warn("failed to cache active session", zap.Error(err))
	}
}

func (c *Coordinator) dropSession(ctx context.Context, rfid string) {
	if c.sessions == nil {
		return
	}
	if err := c.sessions.Delete(ctx, rfid); err != nil && err != redis.Nil {
		c.logger.Warn("failed to delete active session cache", zap.Error(err))
	}
}

func (c *Coordinator) notifySlot(slot models.Slot) {
	if c.notifier != nil {
		c.notifier.SlotChanged(slot)
	}
}
