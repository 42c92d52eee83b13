package handlers

import (
	"net/http"

	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// GetMatch godoc
// @Summary Get a match with its sets and transition history
// @Tags matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /matches/{id} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

// StartMatch godoc
// @Summary Start a pending match
// @Tags matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Match is not pending"
// @Failure 422 {object} map[string]string "Match has no court or schedule"
// @Router /matches/{id}/start [post]
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var match *models.Match
	err = withConflictRetry(r.Context(), func() error {
		match, err = h.matchService.StartMatch(r.Context(), id, actorFrom(r))
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type applyPointInput struct {
	Side models.Side `json:"side"`
}

// ApplyPoint godoc
// @Summary Score one rally for a side of the live match
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param body body applyPointInput true "Rally winner side (home or away)"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Match is not live or set is decided"
// @Router /matches/{id}/points [post]
func (h *MatchHandler) ApplyPoint(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input applyPointInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var set *models.Set
	err = withConflictRetry(r.Context(), func() error {
		set, err = h.matchService.ApplyPoint(r.Context(), id, input.Side)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"set": set}, nil)
}

// UndoPoint godoc
// @Summary Undo the last scored rally of the current set
// @Tags matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Nothing to undo"
// @Router /matches/{id}/points/undo [post]
func (h *MatchHandler) UndoPoint(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var set *models.Set
	err = withConflictRetry(r.Context(), func() error {
		set, err = h.matchService.UndoPoint(r.Context(), id)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"set": set}, nil)
}

// RecordSetResult godoc
// @Summary Record a whole completed set as its ordered point sequence
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param body body services.SetResultInput true "Ordered rally winners"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Sequence does not decide the set"
// @Router /matches/{id}/sets [post]
func (h *MatchHandler) RecordSetResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.SetResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var set *models.Set
	err = withConflictRetry(r.Context(), func() error {
		set, err = h.matchService.RecordSetResult(r.Context(), id, input)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"set": set}, nil)
}

// FinishMatch godoc
// @Summary Finish a live match, award points and coins, advance the winner
// @Tags matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Match is not live or not decided"
// @Router /matches/{id}/finish [post]
func (h *MatchHandler) FinishMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var result *services.FinishResult
	err = withConflictRetry(r.Context(), func() error {
		result, err = h.matchService.FinishMatch(r.Context(), id, actorFrom(r))
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}

	response := jsonResponse{
		"match":  result.Match,
		"awards": result.Awards,
	}
	if result.Advancement != nil {
		response["advancement"] = result.Advancement
	}
	if result.Group != nil {
		response["group"] = jsonResponse{
			"id":          result.Group.Group.ID,
			"finalized":   result.Group.Group.Finalized,
			"standings":   result.Group.Standings,
			"resolutions": result.Group.Resolutions,
		}
	}
	writeJSON(w, http.StatusOK, response, nil)
}

type cancelMatchInput struct {
	Reason *string `json:"reason"`
}

// CancelMatch godoc
// @Summary Cancel a pending or live match
// @Tags matches
// @Accept json
// @Produce json
// @Param id path int true "Match ID"
// @Param body body cancelMatchInput false "Optional cancellation reason"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Match already finished or cancelled"
// @Router /matches/{id}/cancel [post]
func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input cancelMatchInput
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	var match *models.Match
	err = withConflictRetry(r.Context(), func() error {
		match, err = h.matchService.CancelMatch(r.Context(), id, actorFrom(r), input.Reason)
		return err
	})
	if err != nil {
		mapServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}
