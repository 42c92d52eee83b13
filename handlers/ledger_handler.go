package handlers

import (
	"net/http"
	"strconv"

	"github.com/alyeaaah/seventy-five-engine/services"
)

type LedgerHandler struct {
	ledgerService services.LedgerService
}

func NewLedgerHandler(ls services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ls}
}

// GetCoins godoc
// @Summary Get a player's coin balance and recent ledger entries
// @Tags players
// @Produce json
// @Param id path int true "Player ID"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /players/{id}/coins [get]
func (h *LedgerHandler) GetCoins(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	balance, err := h.ledgerService.Balance(r.Context(), id)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	entries, err := h.ledgerService.ListByPlayer(r.Context(), id, limit, offset)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"player_id": id,
		"balance":   balance,
		"entries":   entries,
	}, nil)
}
