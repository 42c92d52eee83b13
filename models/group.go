package models

import "time"

// TournamentGroup is one round-robin group within a tournament. Ordinal is
// the group's index within the tournament, used by knockout slots that
// reference a feeding group by index rather than by id.
type TournamentGroup struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Name         string      `json:"name" db:"name"`
	Ordinal      int         `json:"ordinal" db:"ordinal"`
	Finalized    bool        `json:"finalized" db:"finalized"`
	State        RecordState `json:"-" db:"state"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`

	Teams []TournamentGroupTeam `json:"teams,omitempty" db:"-"`
}

// TournamentGroupTeam holds one team's derived standing within a group.
// Rows are rebuilt only from FINISHED matches belonging to the group.
type TournamentGroupTeam struct {
	ID            int       `json:"id" db:"id"`
	GroupID       int       `json:"group_id" db:"group_id"`
	TeamID        int       `json:"team_id" db:"team_id"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	MatchesWon    int       `json:"matches_won" db:"matches_won"`
	GamesWon      int       `json:"games_won" db:"games_won"`
	Points        int       `json:"points" db:"points"`
	Position      int       `json:"position" db:"position"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
