package brackets

import (
	"errors"
	"fmt"

	"github.com/alyeaaah/seventy-five-engine/models"
)

// PlannedMatch is one slot of a generated draw before persistence. Team
// references may be nil: later-round knockout slots wait for winners, and
// group-fed slots carry a feeding group index plus finishing position
// instead of a team.
type PlannedMatch struct {
	Round     int
	SeedIndex int

	HomeTeamID *int
	AwayTeamID *int

	HomeFeedGroupIndex *int
	HomeFeedPosition   *int
	AwayFeedGroupIndex *int
	AwayFeedPosition   *int
}

var (
	ErrNotEnoughTeams = errors.New("not enough teams to plan a draw (minimum 2)")
)

// PlanKnockout lays out a full single-elimination draw for the given teams
// in seeding order. When the entrant count is not a power of two the top
// seeds receive byes, one per round-1 pairing: their round-1 match is
// skipped and they are placed directly into their round-2 slot.
func PlanKnockout(teamIDs []int) ([]PlannedMatch, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	size := BracketSize(n)
	rounds := RoundCount(n)
	byes := size - n

	matches := make([]PlannedMatch, 0, size-1)

	type byeSlot struct {
		seed int
		side models.Side
	}

	// Round 1. n > size/2, so at most one side of each pairing is a bye;
	// a team with a bye is placed straight into its round-2 slot, on the
	// side the normal advancement rule would have put the pairing's
	// winner.
	byeWinners := map[byeSlot]*int{}
	next := 0
	for seed := 0; seed < size/2; seed++ {
		home := teamIDs[next]
		next++
		if seed < byes {
			nextSeed, side := NextRoundSlot(seed)
			advanced := home
			byeWinners[byeSlot{nextSeed, side}] = &advanced
			continue
		}
		away := teamIDs[next]
		next++
		h, a := home, away
		matches = append(matches, PlannedMatch{Round: 1, SeedIndex: seed, HomeTeamID: &h, AwayTeamID: &a})
	}

	// Later rounds: empty slots waiting for winners, except where a bye
	// already decided one side.
	for round := 2; round <= rounds; round++ {
		count := RoundMatchCount(size, round)
		for seed := 0; seed < count; seed++ {
			pm := PlannedMatch{Round: round, SeedIndex: seed}
			if round == 2 {
				if t, ok := byeWinners[byeSlot{seed, models.SideHome}]; ok {
					pm.HomeTeamID = t
				}
				if t, ok := byeWinners[byeSlot{seed, models.SideAway}]; ok {
					pm.AwayTeamID = t
				}
			}
			matches = append(matches, pm)
		}
	}
	return matches, nil
}

// PlanGroupRoundRobin pairs every team against every other team once,
// spreading matches over rounds with the circle method so no team plays
// twice in a round.
func PlanGroupRoundRobin(teamIDs []int) ([]PlannedMatch, error) {
	n := len(teamIDs)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}

	ids := make([]int, n)
	copy(ids, teamIDs)
	odd := n%2 == 1
	if odd {
		ids = append(ids, 0) // sentinel: the team paired with it sits out
	}
	size := len(ids)
	roundsTotal := size - 1

	matches := make([]PlannedMatch, 0, n*(n-1)/2)
	for round := 1; round <= roundsTotal; round++ {
		seed := 0
		for i := 0; i < size/2; i++ {
			a, b := ids[i], ids[size-1-i]
			if a == 0 || b == 0 {
				continue
			}
			home, away := a, b
			matches = append(matches, PlannedMatch{
				Round:      round,
				SeedIndex:  seed,
				HomeTeamID: &home,
				AwayTeamID: &away,
			})
			seed++
		}
		// Rotate all but the first element.
		last := ids[size-1]
		copy(ids[2:], ids[1:size-1])
		ids[1] = last
	}
	return matches, nil
}

// PlanGroupFedKnockout lays out the knockout phase fed by group results:
// round 1 cross-pairs group winners against runners-up of the neighbouring
// group (A1 vs B2, B1 vs A2, ...), later rounds stay empty for winners.
func PlanGroupFedKnockout(numGroups, qualifiersPerGroup int) ([]PlannedMatch, error) {
	if numGroups < 2 || numGroups%2 != 0 {
		return nil, fmt.Errorf("group-fed knockout needs an even group count, got %d", numGroups)
	}
	if qualifiersPerGroup != 2 {
		return nil, fmt.Errorf("unsupported qualifiers per group %d (expected 2)", qualifiersPerGroup)
	}

	entrants := numGroups * qualifiersPerGroup
	rounds := RoundCount(entrants)

	matches := make([]PlannedMatch, 0, entrants-1)
	seed := 0
	for pair := 0; pair < numGroups; pair += 2 {
		g1, g2 := pair, pair+1
		first, second := 1, 2
		matches = append(matches,
			plannedFeedMatch(1, seed, g1, first, g2, second),
			plannedFeedMatch(1, seed+1, g2, first, g1, second),
		)
		seed += 2
	}
	for round := 2; round <= rounds; round++ {
		count := RoundMatchCount(BracketSize(entrants), round)
		for s := 0; s < count; s++ {
			matches = append(matches, PlannedMatch{Round: round, SeedIndex: s})
		}
	}
	return matches, nil
}

func plannedFeedMatch(round, seed, homeGroup, homePos, awayGroup, awayPos int) PlannedMatch {
	hg, hp, ag, ap := homeGroup, homePos, awayGroup, awayPos
	return PlannedMatch{
		Round:              round,
		SeedIndex:          seed,
		HomeFeedGroupIndex: &hg,
		HomeFeedPosition:   &hp,
		AwayFeedGroupIndex: &ag,
		AwayFeedPosition:   &ap,
	}
}
