package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SetType string

const (
	// SetTypeClassic is a standard set: games to four points, six games,
	// two-game lead, tiebreak at 6-6 played to seven.
	SetTypeClassic SetType = "classic"
	// SetTypeShort is a four-game set with a tiebreak at 4-4.
	SetTypeShort SetType = "short"
	// SetTypeSuperTiebreak is a single deciding tiebreak played to ten.
	SetTypeSuperTiebreak SetType = "super_tiebreak"
)

func (t SetType) Valid() bool {
	switch t {
	case SetTypeClassic, SetTypeShort, SetTypeSuperTiebreak:
		return true
	}
	return false
}

// SetPoint is one rally outcome inside a set. The ordered sequence of
// points is the source of truth for the set score: the score is always
// recomputed by replaying it, never read from mutable counters.
type SetPoint struct {
	Side Side      `json:"side"`
	At   time.Time `json:"at"`
}

// PointHistory is the append-only point sequence of a set, stored as JSONB.
type PointHistory []SetPoint

func (h PointHistory) Value() (driver.Value, error) {
	if h == nil {
		h = PointHistory{}
	}
	return json.Marshal(h)
}

func (h *PointHistory) Scan(src interface{}) error {
	if src == nil {
		*h = PointHistory{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("point history: cannot scan %T", src)
	}
	return json.Unmarshal(b, h)
}

// Set belongs to one match. WinnerSide, once recorded, is immutable.
type Set struct {
	ID         int          `json:"id" db:"id"`
	MatchID    int          `json:"match_id" db:"match_id"`
	Type       SetType      `json:"type" db:"type"`
	Number     int          `json:"number" db:"number"`
	HomeGames  int          `json:"home_games" db:"home_games"`
	AwayGames  int          `json:"away_games" db:"away_games"`
	HomePoints int          `json:"home_points" db:"home_points"`
	AwayPoints int          `json:"away_points" db:"away_points"`
	InTiebreak bool         `json:"in_tiebreak" db:"in_tiebreak"`
	WinnerSide *Side        `json:"winner_side,omitempty" db:"winner_side"`
	History    PointHistory `json:"history" db:"history"`
	State      RecordState  `json:"-" db:"state"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

func (s *Set) Decided() bool {
	return s.WinnerSide != nil
}

// SetLog is the append-only journal of score mutations within a set.
// Rows are never updated or deleted; they exist to reconstruct scoring
// history after the fact.
type SetLog struct {
	ID         int       `json:"id" db:"id"`
	SetID      int       `json:"set_id" db:"set_id"`
	Seq        int       `json:"seq" db:"seq"`
	Kind       string    `json:"kind" db:"kind"` // "point" or "undo"
	Side       Side      `json:"side" db:"side"`
	HomeGames  int       `json:"home_games" db:"home_games"`
	AwayGames  int       `json:"away_games" db:"away_games"`
	HomePoints int       `json:"home_points" db:"home_points"`
	AwayPoints int       `json:"away_points" db:"away_points"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	SetLogKindPoint = "point"
	SetLogKindUndo  = "undo"
)

type GameScoresStatus string

const (
	GameScoresIdle    GameScoresStatus = "idle"
	GameScoresLive    GameScoresStatus = "live"
	GameScoresDone    GameScoresStatus = "done"
	GameScoresDropped GameScoresStatus = "dropped"
)

// GameScores is the structured scoring record carried on a match: current
// status, active set and game numbers, and the full point-by-point history.
// It replaces the free-form scoring document of earlier revisions and is
// validated at every boundary that writes it.
type GameScores struct {
	Status      GameScoresStatus `json:"status"`
	CurrentSet  int              `json:"current_set"`
	CurrentGame int              `json:"current_game"`
	History     PointHistory     `json:"history"`
}

func NewGameScores() GameScores {
	return GameScores{Status: GameScoresIdle, History: PointHistory{}}
}

func (g GameScores) Validate() error {
	switch g.Status {
	case GameScoresIdle, GameScoresLive, GameScoresDone, GameScoresDropped:
	default:
		return fmt.Errorf("game scores: unknown status %q", g.Status)
	}
	if g.CurrentSet < 0 || g.CurrentGame < 0 {
		return errors.New("game scores: set and game numbers must be non-negative")
	}
	for i, p := range g.History {
		if !p.Side.Valid() {
			return fmt.Errorf("game scores: history entry %d has invalid side %q", i, p.Side)
		}
	}
	return nil
}

func (g GameScores) Value() (driver.Value, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.History == nil {
		g.History = PointHistory{}
	}
	return json.Marshal(g)
}

func (g *GameScores) Scan(src interface{}) error {
	if src == nil {
		*g = NewGameScores()
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("game scores: cannot scan %T", src)
	}
	if err := json.Unmarshal(b, g); err != nil {
		return err
	}
	return g.Validate()
}
