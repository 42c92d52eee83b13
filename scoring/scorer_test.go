package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alyeaaah/seventy-five-engine/models"
)

func history(sides ...models.Side) models.PointHistory {
	h := make(models.PointHistory, 0, len(sides))
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, s := range sides {
		h = append(h, models.SetPoint{Side: s, At: at.Add(time.Duration(i) * time.Second)})
	}
	return h
}

func repeat(side models.Side, n int) []models.Side {
	out := make([]models.Side, n)
	for i := range out {
		out[i] = side
	}
	return out
}

func TestReplayGoldenPointDecidesGameAtDeuce(t *testing.T) {
	// 3-3 in points, then home takes the sudden-death point.
	points := append(repeat(models.SideHome, 3), repeat(models.SideAway, 3)...)
	points = append(points, models.SideHome)

	sc, err := Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)

	assert.Equal(t, 1, sc.HomeGames)
	assert.Equal(t, 0, sc.AwayGames)
	assert.Equal(t, 0, sc.HomePoints)
	assert.Equal(t, 0, sc.AwayPoints)
	assert.Nil(t, sc.Winner)
}

func TestReplayAdvantageRequiresTwoPointLead(t *testing.T) {
	// 3-3 then one home point: advantage home, game still open.
	points := append(repeat(models.SideHome, 3), repeat(models.SideAway, 3)...)
	points = append(points, models.SideHome)

	sc, err := Replay(models.SetTypeClassic, true, history(points...))
	require.NoError(t, err)
	assert.Equal(t, 0, sc.HomeGames)
	assert.Equal(t, 4, sc.HomePoints)
	assert.Equal(t, 3, sc.AwayPoints)

	// Away levels, home takes two in a row: game closes at last.
	points = append(points, models.SideAway, models.SideHome, models.SideHome)
	sc, err = Replay(models.SetTypeClassic, true, history(points...))
	require.NoError(t, err)
	assert.Equal(t, 1, sc.HomeGames)
	assert.Equal(t, 0, sc.HomePoints)
	assert.Equal(t, 0, sc.AwayPoints)
}

// winGames returns a golden-point sequence where the sides trade whole
// games, four straight points each.
func winGames(sides ...models.Side) []models.Side {
	out := make([]models.Side, 0, len(sides)*4)
	for _, s := range sides {
		out = append(out, repeat(s, 4)...)
	}
	return out
}

func TestReplayClassicSetDecidedAtSixGames(t *testing.T) {
	points := winGames(repeat(models.SideHome, 6)...)

	sc, err := Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	require.NotNil(t, sc.Winner)
	assert.Equal(t, models.SideHome, *sc.Winner)
	assert.Equal(t, 6, sc.HomeGames)
	assert.Equal(t, 0, sc.AwayGames)
}

func TestReplayClassicSetNeedsTwoGameLead(t *testing.T) {
	// 6-5 keeps the set open; 7-5 closes it.
	alternating := make([]models.Side, 0, 10)
	for i := 0; i < 5; i++ {
		alternating = append(alternating, models.SideHome, models.SideAway)
	}
	points := winGames(append(alternating, models.SideHome)...)

	sc, err := Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	assert.Nil(t, sc.Winner)
	assert.Equal(t, 6, sc.HomeGames)
	assert.Equal(t, 5, sc.AwayGames)
	assert.False(t, sc.InTiebreak)

	points = append(points, winGames(models.SideHome)...)
	sc, err = Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	require.NotNil(t, sc.Winner)
	assert.Equal(t, models.SideHome, *sc.Winner)
	assert.Equal(t, 7, sc.HomeGames)
}

func TestReplayClassicTiebreakAtSixAll(t *testing.T) {
	alternating := make([]models.Side, 0, 12)
	for i := 0; i < 6; i++ {
		alternating = append(alternating, models.SideHome, models.SideAway)
	}
	points := winGames(alternating...)

	sc, err := Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	assert.True(t, sc.InTiebreak)
	assert.Equal(t, 6, sc.HomeGames)
	assert.Equal(t, 6, sc.AwayGames)

	// Tiebreak to seven: 6-6 in tiebreak points stays open, 7-6 stays
	// open too, 8-6 ends the set 7-6.
	for i := 0; i < 6; i++ {
		points = append(points, models.SideHome, models.SideAway)
	}
	points = append(points, models.SideHome)
	sc, err = Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	assert.Nil(t, sc.Winner)
	assert.Equal(t, 7, sc.HomePoints)

	points = append(points, models.SideHome)
	sc, err = Replay(models.SetTypeClassic, false, history(points...))
	require.NoError(t, err)
	require.NotNil(t, sc.Winner)
	assert.Equal(t, models.SideHome, *sc.Winner)
	assert.Equal(t, 7, sc.HomeGames)
	assert.Equal(t, 6, sc.AwayGames)
	assert.False(t, sc.InTiebreak)
}

func TestReplayShortSetTiebreakAtFourAll(t *testing.T) {
	alternating := make([]models.Side, 0, 8)
	for i := 0; i < 4; i++ {
		alternating = append(alternating, models.SideHome, models.SideAway)
	}
	sc, err := Replay(models.SetTypeShort, false, history(winGames(alternating...)...))
	require.NoError(t, err)
	assert.True(t, sc.InTiebreak)
	assert.Equal(t, 4, sc.HomeGames)
	assert.Equal(t, 4, sc.AwayGames)
}

func TestReplaySuperTiebreakPlayedToTen(t *testing.T) {
	sc, err := Replay(models.SetTypeSuperTiebreak, false, history())
	require.NoError(t, err)
	assert.True(t, sc.InTiebreak)

	points := repeat(models.SideAway, 9)
	sc, err = Replay(models.SetTypeSuperTiebreak, false, history(points...))
	require.NoError(t, err)
	assert.Nil(t, sc.Winner)

	points = append(points, models.SideAway)
	sc, err = Replay(models.SetTypeSuperTiebreak, false, history(points...))
	require.NoError(t, err)
	require.NotNil(t, sc.Winner)
	assert.Equal(t, models.SideAway, *sc.Winner)
	assert.Equal(t, 1, sc.AwayGames)
}

func TestReplayIsDeterministic(t *testing.T) {
	points := append(winGames(models.SideHome, models.SideAway, models.SideHome), models.SideAway, models.SideHome)
	h := history(points...)

	first, err := Replay(models.SetTypeClassic, true, h)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Replay(models.SetTypeClassic, true, h)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestReplayRejectsPointsPastDecidedSet(t *testing.T) {
	points := append(winGames(repeat(models.SideHome, 6)...), models.SideAway)
	_, err := Replay(models.SetTypeClassic, false, history(points...))
	assert.ErrorIs(t, err, ErrSetAlreadyDecided)
}

func TestReplayRejectsInvalidSide(t *testing.T) {
	h := models.PointHistory{{Side: "middle", At: time.Now()}}
	_, err := Replay(models.SetTypeClassic, false, h)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestApplyPointWritesScoreBack(t *testing.T) {
	set := &models.Set{Type: models.SetTypeClassic, Number: 1}
	at := time.Now()

	for i := 0; i < 4; i++ {
		_, err := ApplyPoint(set, models.SideAway, false, at)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, set.AwayGames)
	assert.Equal(t, 0, set.AwayPoints)
	assert.Len(t, set.History, 4)
	assert.False(t, set.Decided())
}

func TestApplyPointRefusesDecidedSet(t *testing.T) {
	set := &models.Set{Type: models.SetTypeSuperTiebreak, Number: 1}
	for i := 0; i < 10; i++ {
		_, err := ApplyPoint(set, models.SideHome, false, time.Now())
		require.NoError(t, err)
	}
	require.True(t, set.Decided())

	_, err := ApplyPoint(set, models.SideAway, false, time.Now())
	assert.ErrorIs(t, err, ErrSetAlreadyDecided)
	assert.Len(t, set.History, 10)
}

func TestUndoLastPointReproducesPriorScore(t *testing.T) {
	set := &models.Set{Type: models.SetTypeClassic, Number: 1}
	points := append(winGames(models.SideHome), models.SideAway, models.SideAway, models.SideHome)
	for _, side := range points {
		_, err := ApplyPoint(set, side, true, time.Now())
		require.NoError(t, err)
	}
	before := *set

	_, err := ApplyPoint(set, models.SideAway, true, time.Now())
	require.NoError(t, err)
	sc, err := UndoLastPoint(set, true)
	require.NoError(t, err)

	assert.Equal(t, before.HomeGames, sc.HomeGames)
	assert.Equal(t, before.AwayGames, sc.AwayGames)
	assert.Equal(t, before.HomePoints, sc.HomePoints)
	assert.Equal(t, before.AwayPoints, sc.AwayPoints)
	assert.Len(t, set.History, len(before.History))
}

func TestUndoLastPointOnEmptyHistory(t *testing.T) {
	set := &models.Set{Type: models.SetTypeClassic, Number: 1}
	_, err := UndoLastPoint(set, false)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoCanReopenGame(t *testing.T) {
	// A game-closing point, undone, restores the 40-30 score.
	set := &models.Set{Type: models.SetTypeShort, Number: 1}
	points := append(repeat(models.SideHome, 3), repeat(models.SideAway, 2)...)
	points = append(points, models.SideHome)
	for _, side := range points {
		_, err := ApplyPoint(set, side, false, time.Now())
		require.NoError(t, err)
	}
	require.Equal(t, 1, set.HomeGames)

	sc, err := UndoLastPoint(set, false)
	require.NoError(t, err)
	assert.Equal(t, 0, sc.HomeGames)
	assert.Equal(t, 3, sc.HomePoints)
	assert.Equal(t, 2, sc.AwayPoints)
}

func TestFormatForUnknownType(t *testing.T) {
	_, err := FormatFor("marathon")
	assert.Error(t, err)
}

func TestGamePointLabel(t *testing.T) {
	assert.Equal(t, "0", GamePointLabel(0, 0, false))
	assert.Equal(t, "15", GamePointLabel(1, 0, false))
	assert.Equal(t, "30", GamePointLabel(2, 3, false))
	assert.Equal(t, "40", GamePointLabel(3, 3, false))
	assert.Equal(t, "40", GamePointLabel(4, 4, false))
	assert.Equal(t, "AD", GamePointLabel(5, 4, false))
	assert.Equal(t, "7", GamePointLabel(7, 5, true))
}
