package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"parkwise/internal/repository"
)

// SlotHandler serves the read-only slot reporting API.
type SlotHandler struct {
	slots  *repository.SlotRepository
	logger *zap.Logger
}

// NewSlotHandler builds handler set.
func NewSlotHandler(slots *repository.SlotRepository, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{slots: slots, logger: logger}
}

// HandleList handles GET /api/slots.
func (h *SlotHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	slots, err := h.slots.List(r.Context())
	if err != nil {
		h.logger.Error("list slots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "slots": slots})
}

// HandleGet handles GET /api/slots/{slotNumber}.
func (h *SlotHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("slotNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot number")
		return
	}

	slot, err := h.slots.GetByNumber(r.Context(), number)
	if errors.Is(err, repository.ErrSlotNotFound) {
		writeError(w, http.StatusNotFound, "slot not found")
		return
	}
	if err != nil {
		h.logger.Error("get slot failed", zap.Int("slot_number", number), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch slot")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "slot": slot})
}

// HandleAvailability handles GET /api/slots/status/availability.
func (h *SlotHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	total, occupied, err := h.slots.Occupancy(r.Context())
	if err != nil {
		h.logger.Error("slot occupancy query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"totalSlots":     total,
		"occupiedSlots":  occupied,
		"availableSlots": total - occupied,
	})
}
