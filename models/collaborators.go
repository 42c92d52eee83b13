package models

import "time"

// Collaborator records. The engine reads these through injected
// repositories; their CRUD lives outside the engine.

type Player struct {
	ID        int         `json:"id" db:"id"`
	FirstName string      `json:"first_name" db:"first_name"`
	LastName  string      `json:"last_name" db:"last_name"`
	Nickname  *string     `json:"nickname,omitempty" db:"nickname"`
	LevelID   *int        `json:"level_id,omitempty" db:"level_id"`
	State     RecordState `json:"-" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

type Team struct {
	ID        int         `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	State     RecordState `json:"-" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	Players []Player `json:"players,omitempty" db:"-"`
}

type Tournament struct {
	ID        int         `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Category  string      `json:"category" db:"category"`
	State     RecordState `json:"-" db:"state"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

type CourtField struct {
	ID      int         `json:"id" db:"id"`
	CourtID int         `json:"court_id" db:"court_id"`
	Name    string      `json:"name" db:"name"`
	State   RecordState `json:"-" db:"state"`
}
