package models

import "time"

// MatchPoint is the match-level point/coin configuration for a round,
// shared across tournaments. A row flagged IsDefault serves as the
// fallback when no round-specific configuration exists.
type MatchPoint struct {
	ID        int         `json:"id" db:"id"`
	Round     int         `json:"round" db:"round"`
	WinPoint  int         `json:"win_point" db:"win_point"`
	LosePoint int         `json:"lose_point" db:"lose_point"`
	WinCoin   int         `json:"win_coin" db:"win_coin"`
	LoseCoin  int         `json:"lose_coin" db:"lose_coin"`
	IsDefault bool        `json:"is_default" db:"is_default"`
	State     RecordState `json:"-" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// TournamentMatchPoint is a tournament-scoped flat point/coin configuration
// for a round. When present it takes precedence over the match-level
// configuration for that round.
type TournamentMatchPoint struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Point        int         `json:"point" db:"point"`
	Coin         int         `json:"coin" db:"coin"`
	State        RecordState `json:"-" db:"state"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// Config source labels recorded on awards.
const (
	PointConfigSourceTournament = "tournament"
	PointConfigSourceMatch      = "match"
	PointConfigSourceDefault    = "default"
)

// PlayerMatchPoint records the point/coin actually awarded to one player
// for one match. The database unique index on (match_id, round, player_id)
// is the idempotency guard against duplicate awarding.
type PlayerMatchPoint struct {
	ID           int       `json:"id" db:"id"`
	MatchID      int       `json:"match_id" db:"match_id"`
	Round        int       `json:"round" db:"round"`
	PlayerID     int       `json:"player_id" db:"player_id"`
	TeamID       int       `json:"team_id" db:"team_id"`
	Point        int       `json:"point" db:"point"`
	Coin         int       `json:"coin" db:"coin"`
	ConfigSource string    `json:"config_source" db:"config_source"`
	ConfigID     int       `json:"config_id" db:"config_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
