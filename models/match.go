package models

import "time"

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// RecordState is the explicit lifecycle state consulted by every query path.
// It replaces implicit soft-delete timestamp filtering.
type RecordState string

const (
	StateActive  RecordState = "active"
	StateDeleted RecordState = "deleted"
)

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Opposite returns the other side of the court.
func (s Side) Opposite() Side {
	if s == SideHome {
		return SideAway
	}
	return SideHome
}

func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

// Match is one scheduled encounter between two teams. HomeTeamID and
// AwayTeamID stay nil while the slot is a placeholder waiting for a prior
// round winner or a group placement; the feed fields describe where the
// placeholder will be resolved from.
type Match struct {
	ID            int         `json:"id" db:"id"`
	TournamentID  int         `json:"tournament_id" db:"tournament_id"`
	CourtFieldID  *int        `json:"court_field_id,omitempty" db:"court_field_id"`
	ScheduledAt   *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	HomeTeamID    *int        `json:"home_team_id,omitempty" db:"home_team_id"`
	AwayTeamID    *int        `json:"away_team_id,omitempty" db:"away_team_id"`
	WinnerTeamID  *int        `json:"winner_team_id,omitempty" db:"winner_team_id"`
	HomeScore     int         `json:"home_score" db:"home_score"`
	AwayScore     int         `json:"away_score" db:"away_score"`
	GameScores    GameScores  `json:"game_scores" db:"game_scores"`
	Round         int         `json:"round" db:"round"`
	SeedIndex     int         `json:"seed_index" db:"seed_index"`
	Category      string      `json:"category" db:"category"`
	PointConfigID *int        `json:"point_config_id,omitempty" db:"point_config_id"`
	BestOf        int         `json:"best_of" db:"best_of"`
	SetType       SetType     `json:"set_type" db:"set_type"`
	WithAdvantage bool        `json:"with_advantage" db:"with_advantage"`
	Status        MatchStatus `json:"status" db:"status"`

	// Group linkage. GroupID non-nil means the match belongs to a
	// round-robin group; the feed fields mean a knockout slot is filled
	// from a group standing instead of a concrete team.
	GroupID            *int `json:"group_id,omitempty" db:"group_id"`
	HomeFeedGroupID    *int `json:"home_feed_group_id,omitempty" db:"home_feed_group_id"`
	HomeFeedPosition   *int `json:"home_feed_position,omitempty" db:"home_feed_position"`
	AwayFeedGroupID    *int `json:"away_feed_group_id,omitempty" db:"away_feed_group_id"`
	AwayFeedPosition   *int `json:"away_feed_position,omitempty" db:"away_feed_position"`
	HomeFeedGroupIndex *int `json:"home_feed_group_index,omitempty" db:"home_feed_group_index"`
	AwayFeedGroupIndex *int `json:"away_feed_group_index,omitempty" db:"away_feed_group_index"`

	State     RecordState `json:"-" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`

	// Optional linked data, populated by the service layer.
	Sets       []Set          `json:"sets,omitempty" db:"-"`
	History    []MatchHistory `json:"history,omitempty" db:"-"`
	HomeTeam   *Team          `json:"home_team,omitempty" db:"-"`
	AwayTeam   *Team          `json:"away_team,omitempty" db:"-"`
	CourtField *CourtField    `json:"court_field,omitempty" db:"-"`
}

// TeamOnSide returns the team occupying the given side, nil for a
// placeholder slot.
func (m *Match) TeamOnSide(side Side) *int {
	if side == SideHome {
		return m.HomeTeamID
	}
	return m.AwayTeamID
}

// SideOfTeam reports which side a team plays on, false when the team is not
// part of the match.
func (m *Match) SideOfTeam(teamID int) (Side, bool) {
	if m.HomeTeamID != nil && *m.HomeTeamID == teamID {
		return SideHome, true
	}
	if m.AwayTeamID != nil && *m.AwayTeamID == teamID {
		return SideAway, true
	}
	return "", false
}

// Terminal reports whether the status admits no further transitions.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled
}
