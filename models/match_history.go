package models

import "time"

type MatchTransition string

const (
	TransitionStart  MatchTransition = "start"
	TransitionFinish MatchTransition = "finish"
	TransitionCancel MatchTransition = "cancel"
)

// MatchHistory is an append-only audit row recorded for every status
// transition. It exists to diagnose and, if needed, manually reverse
// mis-scored matches.
type MatchHistory struct {
	ID         int             `json:"id" db:"id"`
	MatchID    int             `json:"match_id" db:"match_id"`
	PrevStatus MatchStatus     `json:"prev_status" db:"prev_status"`
	NewStatus  MatchStatus     `json:"new_status" db:"new_status"`
	Transition MatchTransition `json:"transition" db:"transition"`
	Actor      string          `json:"actor" db:"actor"`
	Reason     *string         `json:"reason,omitempty" db:"reason"`
	Ref        string          `json:"ref" db:"ref"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
