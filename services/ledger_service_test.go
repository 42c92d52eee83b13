package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alyeaaah/seventy-five-engine/models"
)

func TestLedgerAppendChainsBalances(t *testing.T) {
	f := newFixture()
	f.addTeam(1, 7)
	ctx := context.Background()

	first, err := f.ledger.Append(ctx, nil, 7, 30, models.CoinSourceMatch, "match:1:round:1")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Before)
	assert.Equal(t, 30, first.After)
	assert.Equal(t, models.CoinDirectionCredit, first.Direction)

	second, err := f.ledger.Append(ctx, nil, 7, -10, models.CoinSourceOrder, "order:55")
	require.NoError(t, err)
	assert.Equal(t, 30, second.Before)
	assert.Equal(t, 20, second.After)
	assert.Equal(t, models.CoinDirectionDebit, second.Direction)

	balance, err := f.ledger.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 20, balance)
}

func TestLedgerAppendRejectsOverdraft(t *testing.T) {
	f := newFixture()
	f.addTeam(1, 7)
	ctx := context.Background()

	_, err := f.ledger.Append(ctx, nil, 7, 30, models.CoinSourceReward, "reward:1")
	require.NoError(t, err)

	_, err = f.ledger.Append(ctx, nil, 7, -31, models.CoinSourceOrder, "order:56")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// The rejected debit must leave no trace on the chain.
	entries, err := f.ledger.ListByPlayer(ctx, 7, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 30, entries[0].After)
}

func TestLedgerMatchSourceMayGoNegative(t *testing.T) {
	f := newFixture()
	f.addTeam(1, 7)

	entry, err := f.ledger.Append(context.Background(), nil, 7, -5, models.CoinSourceMatch, "match:9:round:1")
	require.NoError(t, err)
	assert.Equal(t, -5, entry.After)
}

func TestLedgerAppendRejectsUnknownSource(t *testing.T) {
	f := newFixture()
	_, err := f.ledger.Append(context.Background(), nil, 7, 10, "lottery", "x")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLedgerBalanceUnknownPlayer(t *testing.T) {
	f := newFixture()
	_, err := f.ledger.Balance(context.Background(), 404)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLedgerListByPlayerNewestFirst(t *testing.T) {
	f := newFixture()
	f.addTeam(1, 7)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.ledger.Append(ctx, nil, 7, 10, models.CoinSourceKudos, "kudos")
		require.NoError(t, err)
	}

	entries, err := f.ledger.ListByPlayer(ctx, 7, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 30, entries[0].After)
	assert.Equal(t, 20, entries[1].After)
}
