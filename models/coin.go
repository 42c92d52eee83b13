package models

import "time"

type CoinDirection string

const (
	CoinDirectionCredit CoinDirection = "credit"
	CoinDirectionDebit  CoinDirection = "debit"
)

type CoinSource string

const (
	CoinSourceMatch  CoinSource = "match"
	CoinSourceOrder  CoinSource = "order"
	CoinSourceReward CoinSource = "reward"
	CoinSourceKudos  CoinSource = "kudos"
)

func (s CoinSource) Valid() bool {
	switch s {
	case CoinSourceMatch, CoinSourceOrder, CoinSourceReward, CoinSourceKudos:
		return true
	}
	return false
}

// CoinLog is one append-only ledger row for a player. Invariants:
// After = Before + Delta, and for any player the Before of a row equals
// the After of that player's immediately preceding row (0 for the first).
type CoinLog struct {
	ID        int           `json:"id" db:"id"`
	PlayerID  int           `json:"player_id" db:"player_id"`
	Delta     int           `json:"delta" db:"delta"`
	Direction CoinDirection `json:"direction" db:"direction"`
	Source    CoinSource    `json:"source" db:"source"`
	Ref       string        `json:"ref" db:"ref"`
	Before    int           `json:"before" db:"before"`
	After     int           `json:"after" db:"after"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
