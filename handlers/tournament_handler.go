package handlers

import (
	"net/http"

	"github.com/alyeaaah/seventy-five-engine/services"
)

type TournamentHandler struct {
	bracketService services.BracketService
}

func NewTournamentHandler(bs services.BracketService) *TournamentHandler {
	return &TournamentHandler{bracketService: bs}
}

// GetBracket godoc
// @Summary Get the tournament's full draw: matches, groups and standings
// @Tags tournaments
// @Produce json
// @Param id path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{id}/bracket [get]
func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snapshot, err := h.bracketService.Snapshot(r.Context(), id)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"bracket": snapshot}, nil)
}

type generateKnockoutInput struct {
	TeamIDs []int                `json:"team_ids"`
	Format  services.MatchFormat `json:"format"`
}

// GenerateKnockout godoc
// @Summary Lay out a single-elimination draw for the given teams
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path int true "Tournament ID"
// @Param body body generateKnockoutInput true "Seeded team ids and match format"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/knockout [post]
func (h *TournamentHandler) GenerateKnockout(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input generateKnockoutInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.GenerateKnockout(r.Context(), id, input.TeamIDs, input.Format)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

type generateGroupFedInput struct {
	NumGroups          int                  `json:"num_groups"`
	QualifiersPerGroup int                  `json:"qualifiers_per_group"`
	Format             services.MatchFormat `json:"format"`
}

// GenerateGroupFedKnockout godoc
// @Summary Lay out a knockout stage whose entrants come from group standings
// @Tags tournaments
// @Accept json
// @Produce json
// @Param id path int true "Tournament ID"
// @Param body body generateGroupFedInput true "Group count, qualifiers per group and match format"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string
// @Router /tournaments/{id}/knockout/group-fed [post]
func (h *TournamentHandler) GenerateGroupFedKnockout(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input generateGroupFedInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.GenerateGroupFedKnockout(r.Context(), id, input.NumGroups, input.QualifiersPerGroup, input.Format)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}

type generateGroupMatchesInput struct {
	TeamIDs []int                `json:"team_ids"`
	Format  services.MatchFormat `json:"format"`
}

// GenerateGroupMatches godoc
// @Summary Lay out a round-robin schedule for a group
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param body body generateGroupMatchesInput true "Group member team ids and match format"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string
// @Router /groups/{id}/matches [post]
func (h *TournamentHandler) GenerateGroupMatches(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input generateGroupMatchesInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.bracketService.GenerateGroupMatches(r.Context(), id, input.TeamIDs, input.Format)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil)
}
