package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alyeaaah/seventy-five-engine/models"
)

func finishedMatch(f *fixture) *models.Match {
	f.addTeam(1, 101, 102)
	f.addTeam(2, 201, 202)
	m := f.addLiveMatch(1, 10, 1, 2, 1, 0)
	m.Status = models.MatchStatusFinished
	m.WinnerTeamID = intPtr(1)
	return m
}

func TestAwardForMatchPaysBothRosters(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)
	f.addDefaultPointConfig(10, 4, 30, 5)

	awards, err := f.points.AwardForMatch(context.Background(), nil, m)
	require.NoError(t, err)
	require.Len(t, awards, 4)

	byPlayer := map[int]*models.PlayerMatchPoint{}
	for _, a := range awards {
		byPlayer[a.PlayerID] = a
		assert.Equal(t, models.PointConfigSourceDefault, a.ConfigSource)
	}
	assert.Equal(t, 10, byPlayer[101].Point)
	assert.Equal(t, 30, byPlayer[101].Coin)
	assert.Equal(t, 4, byPlayer[201].Point)
	assert.Equal(t, 5, byPlayer[201].Coin)

	// Every award carries a matching ledger entry.
	balance, err := f.ledger.Balance(context.Background(), 102)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)
	balance, err = f.ledger.Balance(context.Background(), 202)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestAwardForMatchTournamentConfigWins(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)
	f.addDefaultPointConfig(10, 4, 30, 5)
	f.pointConfigRepo.byRound[1] = &models.MatchPoint{ID: 2, Round: 1, WinPoint: 20, LosePoint: 8, WinCoin: 60, LoseCoin: 10}
	f.pointConfigRepo.tournament[[2]int{10, 1}] = &models.TournamentMatchPoint{ID: 3, TournamentID: 10, Round: 1, Point: 7, Coin: 2}

	awards, err := f.points.AwardForMatch(context.Background(), nil, m)
	require.NoError(t, err)
	require.Len(t, awards, 4)

	// Tournament configuration is flat: winners and losers get the same.
	for _, a := range awards {
		assert.Equal(t, 7, a.Point)
		assert.Equal(t, 2, a.Coin)
		assert.Equal(t, models.PointConfigSourceTournament, a.ConfigSource)
		assert.Equal(t, 3, a.ConfigID)
	}
}

func TestAwardForMatchRoundConfigBeatsDefault(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)
	f.addDefaultPointConfig(10, 4, 30, 5)
	f.pointConfigRepo.byRound[1] = &models.MatchPoint{ID: 2, Round: 1, WinPoint: 20, LosePoint: 8, WinCoin: 60, LoseCoin: 10}

	awards, err := f.points.AwardForMatch(context.Background(), nil, m)
	require.NoError(t, err)
	for _, a := range awards {
		assert.Equal(t, models.PointConfigSourceMatch, a.ConfigSource)
		if a.TeamID == 1 {
			assert.Equal(t, 20, a.Point)
			assert.Equal(t, 60, a.Coin)
		} else {
			assert.Equal(t, 8, a.Point)
			assert.Equal(t, 10, a.Coin)
		}
	}
}

func TestAwardForMatchNoConfig(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)

	_, err := f.points.AwardForMatch(context.Background(), nil, m)
	assert.ErrorIs(t, err, ErrPointConfigNotFound)
}

func TestAwardForMatchRerunIsIdempotent(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)
	f.addDefaultPointConfig(10, 4, 30, 5)
	ctx := context.Background()

	first, err := f.points.AwardForMatch(ctx, nil, m)
	require.NoError(t, err)
	require.Len(t, first, 4)

	// A rerun finds every row present: no new awards, no new coins.
	second, err := f.points.AwardForMatch(ctx, nil, m)
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Len(t, f.awardRepo.awards, 4)
	assert.Len(t, f.coinLogRepo.entries, 4)

	balance, err := f.ledger.Balance(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, 30, balance)
}

func TestAwardForMatchZeroCoinSkipsLedger(t *testing.T) {
	f := newFixture()
	m := finishedMatch(f)
	f.addDefaultPointConfig(10, 4, 25, 0)

	awards, err := f.points.AwardForMatch(context.Background(), nil, m)
	require.NoError(t, err)
	require.Len(t, awards, 4)

	// Losers earn zero coins, so only the winning roster hits the ledger.
	assert.Len(t, f.coinLogRepo.entries, 2)
}

func TestAwardForMatchRequiresWinner(t *testing.T) {
	f := newFixture()
	f.addTeam(1, 101)
	f.addTeam(2, 201)
	m := f.addLiveMatch(1, 10, 1, 2, 1, 0)

	_, err := f.points.AwardForMatch(context.Background(), nil, m)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
