package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alyeaaah/seventy-five-engine/models"
)

const awardInsertPattern = `INSERT INTO player_match_points[\s\S]*ON CONFLICT \(match_id, round, player_id\) DO NOTHING[\s\S]*RETURNING id, created_at`

func testAward(playerID int) *models.PlayerMatchPoint {
	return &models.PlayerMatchPoint{
		MatchID:      1,
		Round:        2,
		PlayerID:     playerID,
		TeamID:       7,
		Point:        10,
		Coin:         30,
		ConfigSource: models.PointConfigSourceDefault,
		ConfigID:     99,
	}
}

func TestCreateAwardAssignsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPlayerMatchPointRepository(db)
	created := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(awardInsertPattern).
		WithArgs(1, 2, 101, 7, 10, 30, models.PointConfigSourceDefault, 99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, created))

	award := testAward(101)
	require.NoError(t, repo.Create(context.Background(), nil, award))
	assert.Equal(t, 5, award.ID)
	assert.Equal(t, created, award.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A duplicate insert resolves through ON CONFLICT DO NOTHING, so it returns
// the sentinel without failing a statement. The transaction stays usable
// and the next award on the same transaction goes through.
func TestCreateAwardDuplicateKeepsTransactionUsable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPlayerMatchPointRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(awardInsertPattern).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectQuery(awardInsertPattern).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(6, time.Now()))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, testAward(101))
	assert.ErrorIs(t, err, ErrPlayerMatchPointDuplicate)

	next := testAward(102)
	require.NoError(t, repo.Create(context.Background(), tx, next))
	assert.Equal(t, 6, next.ID)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
