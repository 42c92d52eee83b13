package handlers

import (
	"net/http"

	"github.com/alyeaaah/seventy-five-engine/services"
)

type GroupHandler struct {
	standingsService services.StandingsService
	bracketService   services.BracketService
}

func NewGroupHandler(ss services.StandingsService, bs services.BracketService) *GroupHandler {
	return &GroupHandler{standingsService: ss, bracketService: bs}
}

// GetStandings godoc
// @Summary Get the group's current standings table
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /groups/{id}/standings [get]
func (h *GroupHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	group, err := h.standingsService.Standings(r.Context(), id)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"group": group}, nil)
}

// ResolveGroup godoc
// @Summary Fill knockout slots fed by a finalized group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Group is not finalized"
// @Router /groups/{id}/resolve [post]
func (h *GroupHandler) ResolveGroup(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var resolutions []services.SlotResolution
	err = withConflictRetry(r.Context(), func() error {
		resolutions, err = h.bracketService.ResolveGroup(r.Context(), id)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"resolutions": resolutions}, nil)
}

// RecomputeStandings godoc
// @Summary Rebuild the group table from its finished matches
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /groups/{id}/standings/recompute [post]
func (h *GroupHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var outcome *services.GroupOutcome
	err = withConflictRetry(r.Context(), func() error {
		outcome, err = h.standingsService.Recompute(r.Context(), id)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"group_id":    outcome.Group.ID,
		"finalized":   outcome.Group.Finalized,
		"standings":   outcome.Standings,
		"resolutions": outcome.Resolutions,
	}, nil)
}
