package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkwise/internal/models"
	"parkwise/internal/redisstore"
	"parkwise/internal/repository"
	"parkwise/internal/service"
)

// RiderHandler serves the rider-facing API: registration, lookups, wallet
// top-ups, and transaction history.
type RiderHandler struct {
	riders   *repository.RiderRepository
	ledger   *repository.WalletRepository
	wallet   *service.WalletService
	slots    *repository.SlotRepository
	sessions *redisstore.Store
	logger   *zap.Logger
}

// NewRiderHandler builds handler set.
func NewRiderHandler(
	riders *repository.RiderRepository,
	ledger *repository.WalletRepository,
	wallet *service.WalletService,
	slots *repository.SlotRepository,
	sessions *redisstore.Store,
	logger *zap.Logger,
) *RiderHandler {
	return &RiderHandler{
		riders:   riders,
		ledger:   ledger,
		wallet:   wallet,
		slots:    slots,
		sessions: sessions,
		logger:   logger,
	}
}

type registerRequest struct {
	Name          string `json:"name"`
	RFID          string `json:"rfid"`
	Email         string `json:"email"`
	VehicleNumber string `json:"vehicleNumber"`
}

// HandleRegister handles POST /api/riders.
func (h *RiderHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.RFID) == "" {
		writeError(w, http.StatusBadRequest, "name and rfid are required")
		return
	}

	rider := &models.Rider{
		Name:          strings.TrimSpace(req.Name),
		RFID:          req.RFID,
		Email:         strings.TrimSpace(req.Email),
		VehicleNumber: strings.TrimSpace(req.VehicleNumber),
	}
	if err := h.riders.Create(r.Context(), rider); err != nil {
		if errors.Is(err, repository.ErrRFIDTaken) {
			writeError(w, http.StatusConflict, "rfid already registered")
			return
		}
		h.logger.Error("register rider failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register rider")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "user": rider})
}

// HandleGetByID handles GET /api/riders/{id}.
func (h *RiderHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := riderID(w, r)
	if !ok {
		return
	}

	rider, err := h.riders.GetByID(r.Context(), id)
	if err != nil {
		respondRiderLookup(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": rider})
}

// HandleGetByRFID handles GET /api/riders/rfid/{rfid}.
func (h *RiderHandler) HandleGetByRFID(w http.ResponseWriter, r *http.Request) {
	rider, err := h.riders.GetByRFID(r.Context(), r.PathValue("rfid"))
	if err != nil {
		respondRiderLookup(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": rider})
}

// HandleTransactions handles GET /api/riders/{id}/transactions.
func (h *RiderHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := riderID(w, r)
	if !ok {
		return
	}

	txs, err := h.ledger.ListByRider(r.Context(), id, 50)
	if err != nil {
		h.logger.Error("list transactions failed", zap.Int64("rider_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "transactions": txs})
}

type topupRequest struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
}

// HandleTopup handles POST /api/riders/{id}/wallet/topup. This is the
// out-of-band credit entry point: the external payment flow has already
// collected the money, the ledger only records it.
func (h *RiderHandler) HandleTopup(w http.ResponseWriter, r *http.Request) {
	id, ok := riderID(w, r)
	if !ok {
		return
	}

	var req topupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	rider, err := h.riders.GetByID(r.Context(), id)
	if err != nil {
		respondRiderLookup(w, h.logger, err)
		return
	}

	tx, balance, err := h.wallet.Credit(r.Context(), rider, req.Amount, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "valid amount is required")
			return
		}
		h.logger.Error("wallet top-up failed", zap.Int64("rider_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add funds")
		return
	}

	rider.Balance = balance
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"user":        rider,
		"transaction": tx,
	})
}

// HandleActiveSession handles GET /api/riders/rfid/{rfid}/session. The
// Redis cache answers first; the slot table is the fallback truth.
func (h *RiderHandler) HandleActiveSession(w http.ResponseWriter, r *http.Request) {
	rfid := r.PathValue("rfid")

	if h.sessions != nil {
		session, err := h.sessions.Get(r.Context(), rfid)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
			return
		}
		if err != redis.Nil {
			h.logger.Warn("active session cache read failed", zap.Error(err))
		}
	}

	slot, err := h.slots.FindOccupiedByRFID(r.Context(), rfid)
	if errors.Is(err, repository.ErrNoActiveSession) {
		writeError(w, http.StatusNotFound, "no active parking found")
		return
	}
	if err != nil {
		h.logger.Error("active session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}

	session := redisstore.ActiveSession{
		SlotNumber: slot.Number,
		RFID:       rfid,
	}
	if slot.RiderID != nil {
		session.RiderID = *slot.RiderID
	}
	if slot.EntryTime != nil {
		session.EntryTime = *slot.EntryTime
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "session": session})
}

func riderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rider id")
		return 0, false
	}
	return id, true
}

func respondRiderLookup(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, repository.ErrRiderNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	logger.Error("rider lookup failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to fetch user")
}
