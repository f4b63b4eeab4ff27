package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"parkwise/internal/repository"
	"parkwise/internal/service"
)

// AdminHandler serves the token-protected administrative API.
type AdminHandler struct {
	coordinator *service.Coordinator
	riders      *repository.RiderRepository
	slots       *repository.SlotRepository
	ledger      *repository.WalletRepository
	logger      *zap.Logger
}

// NewAdminHandler builds handler set.
func NewAdminHandler(
	coordinator *service.Coordinator,
	riders *repository.RiderRepository,
	slots *repository.SlotRepository,
	ledger *repository.WalletRepository,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		coordinator: coordinator,
		riders:      riders,
		slots:       slots,
		ledger:      ledger,
		logger:      logger,
	}
}

// HandleForceRelease handles POST /api/admin/slots/{slotNumber}/force-release.
// The slot is vacated with no fee and no ledger entry.
func (h *AdminHandler) HandleForceRelease(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("slotNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot number")
		return
	}

	if err := h.coordinator.ForceRelease(r.Context(), number); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			writeError(w, http.StatusNotFound, "slot not found")
		case errors.Is(err, repository.ErrSlotVacant):
			writeError(w, http.StatusBadRequest, "slot is not occupied")
		default:
			h.logger.Error("force release failed", zap.Int("slot_number", number), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to release slot")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Vehicle forcefully removed from slot",
	})
}

// HandleRiders handles GET /api/admin/riders.
func (h *AdminHandler) HandleRiders(w http.ResponseWriter, r *http.Request) {
	riders, err := h.riders.List(r.Context())
	if err != nil {
		h.logger.Error("list riders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "users": riders})
}

// HandleTransactions handles GET /api/admin/transactions.
func (h *AdminHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.ListRecent(r.Context(), 100)
	if err != nil {
		h.logger.Error("list transactions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "transactions": txs})
}

// HandleSummary handles GET /api/admin/summary.
func (h *AdminHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalRiders, err := h.riders.Count(ctx)
	if err != nil {
		h.logger.Error("rider count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	totalSlots, occupiedSlots, err := h.slots.Occupancy(ctx)
	if err != nil {
		h.logger.Error("slot occupancy query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	totalRevenue, err := h.ledger.FeeRevenueSince(ctx, time.Time{})
	if err != nil {
		h.logger.Error("revenue query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	dailyRevenue, err := h.ledger.FeeRevenueSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		h.logger.Error("daily revenue query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	recent, err := h.ledger.ListRecent(ctx, 10)
	if err != nil {
		h.logger.Error("recent transactions query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":            true,
		"totalUsers":         totalRiders,
		"totalSlots":         totalSlots,
		"occupiedSlots":      occupiedSlots,
		"availableSlots":     totalSlots - occupiedSlots,
		"totalRevenue":       totalRevenue,
		"dailyRevenue":       dailyRevenue,
		"recentTransactions": recent,
	})
}
