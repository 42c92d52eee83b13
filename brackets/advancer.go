// Package brackets holds the pure placement math of knockout and group-fed
// draws, plus the planners that lay out a tournament's match skeleton.
// Nothing in this package touches storage; services persist the results.
package brackets

import "github.com/alyeaaah/seventy-five-engine/models"

// NextRoundSlot maps a match's seed index to its winner's destination in
// the next round: the match at seedIndex/2, home side for even seeds and
// away side for odd ones.
func NextRoundSlot(seedIndex int) (nextSeed int, side models.Side) {
	if seedIndex%2 == 0 {
		return seedIndex / 2, models.SideHome
	}
	return seedIndex / 2, models.SideAway
}

// RoundMatchCount returns the number of matches in a round of a bracket
// with the given size (a power of two): size/2 in round 1, halving each
// round after.
func RoundMatchCount(bracketSize, round int) int {
	n := bracketSize / 2
	for r := 1; r < round; r++ {
		n /= 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

// BracketSize returns the smallest power of two holding n entrants.
func BracketSize(n int) int {
	size := 1
	for size < n {
		size *= 2
	}
	return size
}

// RoundCount returns the number of knockout rounds for n entrants.
func RoundCount(n int) int {
	rounds := 0
	for size := BracketSize(n); size > 1; size /= 2 {
		rounds++
	}
	return rounds
}
