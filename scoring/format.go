package scoring

import (
	"fmt"

	"github.com/alyeaaah/seventy-five-engine/models"
)

// Format carries the parameters that a set type implies. All scoring
// decisions derive from these values plus the match's advantage flag.
type Format struct {
	// PointsPerGame is the point threshold of a regular game (4 in
	// standard tennis/padel counting).
	PointsPerGame int
	// GamesPerSet is the game threshold of the set.
	GamesPerSet int
	// LeadRequired is the game lead needed to close the set without a
	// tiebreak.
	LeadRequired int
	// TiebreakAt is the game count on both sides that triggers a tiebreak
	// game. Zero means the set has no tiebreak.
	TiebreakAt int
	// TiebreakTo is the point target of the tiebreak game, won by two.
	TiebreakTo int
	// SingleTiebreak marks formats where the whole set is one tiebreak.
	SingleTiebreak bool
}

// FormatFor resolves the scoring parameters of a set type.
func FormatFor(t models.SetType) (Format, error) {
	switch t {
	case models.SetTypeClassic:
		return Format{PointsPerGame: 4, GamesPerSet: 6, LeadRequired: 2, TiebreakAt: 6, TiebreakTo: 7}, nil
	case models.SetTypeShort:
		return Format{PointsPerGame: 4, GamesPerSet: 4, LeadRequired: 2, TiebreakAt: 4, TiebreakTo: 7}, nil
	case models.SetTypeSuperTiebreak:
		return Format{TiebreakTo: 10, SingleTiebreak: true}, nil
	default:
		return Format{}, fmt.Errorf("unknown set type %q", t)
	}
}

// GamePointLabel renders a point count in traditional notation for a
// regular game: 0, 15, 30, 40, AD. Tiebreak points are plain numbers.
func GamePointLabel(points, opponent int, inTiebreak bool) string {
	if inTiebreak {
		return fmt.Sprintf("%d", points)
	}
	switch {
	case points <= 3:
		return [...]string{"0", "15", "30", "40"}[points]
	case points > opponent:
		return "AD"
	default:
		return "40"
	}
}
