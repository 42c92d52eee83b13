// Package scoring implements point, game and set scoring for one set.
// The set's ordered point history is the single source of truth: every
// mutation appends or removes a history entry and recomputes the score by
// replaying the whole sequence, which keeps apply/undo exactly reversible.
package scoring

import (
	"errors"
	"time"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	// ErrSetAlreadyDecided is returned when a point is applied to a set
	// whose winner is already recorded.
	ErrSetAlreadyDecided = errors.New("set is already decided")
	// ErrNothingToUndo is returned when undo is called on an empty history.
	ErrNothingToUndo = errors.New("set has no points to undo")
	// ErrInvalidSide is returned for a side outside home/away.
	ErrInvalidSide = errors.New("invalid side")
)

// Score is the state of a set derived from its point history.
type Score struct {
	HomeGames  int
	AwayGames  int
	HomePoints int
	AwayPoints int
	InTiebreak bool
	Winner     *models.Side
}

func (s Score) games(side models.Side) int {
	if side == models.SideHome {
		return s.HomeGames
	}
	return s.AwayGames
}

// Replay recomputes a set score from an empty board by folding the point
// history in order. It is pure: identical input always yields an identical
// Score.
func Replay(t models.SetType, withAdvantage bool, history models.PointHistory) (Score, error) {
	format, err := FormatFor(t)
	if err != nil {
		return Score{}, err
	}

	var sc Score
	sc.InTiebreak = format.SingleTiebreak

	for _, p := range history {
		if !p.Side.Valid() {
			return Score{}, ErrInvalidSide
		}
		if sc.Winner != nil {
			return Score{}, ErrSetAlreadyDecided
		}
		if p.Side == models.SideHome {
			sc.HomePoints++
		} else {
			sc.AwayPoints++
		}

		if sc.InTiebreak {
			settleTiebreakPoint(&sc, format)
		} else {
			settleGamePoint(&sc, format, withAdvantage)
		}
	}
	return sc, nil
}

// settleGamePoint closes the current game if its threshold was reached and
// then checks whether the game decided the set.
func settleGamePoint(sc *Score, f Format, withAdvantage bool) {
	winner, ok := gameWinner(sc.HomePoints, sc.AwayPoints, f.PointsPerGame, withAdvantage)
	if !ok {
		return
	}
	sc.HomePoints, sc.AwayPoints = 0, 0
	if winner == models.SideHome {
		sc.HomeGames++
	} else {
		sc.AwayGames++
	}
	settleSet(sc, f)
}

// gameWinner decides a regular game. With advantage scoring the game needs
// the threshold and a two-point lead; without it the tie point is sudden
// death (golden point).
func gameWinner(home, away, threshold int, withAdvantage bool) (models.Side, bool) {
	check := func(p, o int) bool {
		if withAdvantage {
			return p >= threshold && p-o >= 2
		}
		return p >= threshold
	}
	if check(home, away) {
		return models.SideHome, true
	}
	if check(away, home) {
		return models.SideAway, true
	}
	return "", false
}

func settleTiebreakPoint(sc *Score, f Format) {
	var winner models.Side
	switch {
	case sc.HomePoints >= f.TiebreakTo && sc.HomePoints-sc.AwayPoints >= 2:
		winner = models.SideHome
	case sc.AwayPoints >= f.TiebreakTo && sc.AwayPoints-sc.HomePoints >= 2:
		winner = models.SideAway
	default:
		return
	}
	sc.HomePoints, sc.AwayPoints = 0, 0
	sc.InTiebreak = false
	if winner == models.SideHome {
		sc.HomeGames++
	} else {
		sc.AwayGames++
	}
	if f.SingleTiebreak {
		sc.Winner = &winner
		return
	}
	// A tiebreak game always closes the set.
	sc.Winner = &winner
}

// settleSet checks whether the games decide the set or push it into a
// tiebreak.
func settleSet(sc *Score, f Format) {
	for _, side := range [...]models.Side{models.SideHome, models.SideAway} {
		if sc.games(side) >= f.GamesPerSet && sc.games(side)-sc.games(side.Opposite()) >= f.LeadRequired {
			s := side
			sc.Winner = &s
			return
		}
	}
	if f.TiebreakAt > 0 && sc.HomeGames == f.TiebreakAt && sc.AwayGames == f.TiebreakAt {
		sc.InTiebreak = true
	}
}

// ApplyPoint appends a point for side to the set's history and recomputes
// the score from it. Returns ErrSetAlreadyDecided when the set has a winner.
func ApplyPoint(set *models.Set, side models.Side, withAdvantage bool, at time.Time) (Score, error) {
	if !side.Valid() {
		return Score{}, ErrInvalidSide
	}
	if set.Decided() {
		return Score{}, ErrSetAlreadyDecided
	}
	history := append(set.History, models.SetPoint{Side: side, At: at})
	sc, err := Replay(set.Type, withAdvantage, history)
	if err != nil {
		return Score{}, err
	}
	set.History = history
	writeBack(set, sc)
	return sc, nil
}

// UndoLastPoint removes the last history entry and recomputes, reproducing
// the exact score the set had before that point.
func UndoLastPoint(set *models.Set, withAdvantage bool) (Score, error) {
	if len(set.History) == 0 {
		return Score{}, ErrNothingToUndo
	}
	history := set.History[:len(set.History)-1]
	sc, err := Replay(set.Type, withAdvantage, history)
	if err != nil {
		return Score{}, err
	}
	set.History = history
	writeBack(set, sc)
	return sc, nil
}

func writeBack(set *models.Set, sc Score) {
	set.HomeGames = sc.HomeGames
	set.AwayGames = sc.AwayGames
	set.HomePoints = sc.HomePoints
	set.AwayPoints = sc.AwayPoints
	set.InTiebreak = sc.InTiebreak
	set.WinnerSide = sc.Winner
}
