package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	ErrMatchPointNotFound           = errors.New("match point configuration not found")
	ErrTournamentMatchPointNotFound = errors.New("tournament match point configuration not found")
)

// PointConfigRepository serves the round-keyed point/coin configuration
// lookups, including the designated default fallback.
type PointConfigRepository interface {
	GetMatchPointByRound(ctx context.Context, round int) (*models.MatchPoint, error)
	GetDefaultMatchPoint(ctx context.Context) (*models.MatchPoint, error)
	GetTournamentMatchPoint(ctx context.Context, tournamentID, round int) (*models.TournamentMatchPoint, error)
}

type postgresPointConfigRepository struct {
	db *sql.DB
}

func NewPostgresPointConfigRepository(db *sql.DB) PointConfigRepository {
	return &postgresPointConfigRepository{db: db}
}

func (r *postgresPointConfigRepository) scanMatchPoint(row *sql.Row) (*models.MatchPoint, error) {
	var mp models.MatchPoint
	err := row.Scan(
		&mp.ID, &mp.Round, &mp.WinPoint, &mp.LosePoint,
		&mp.WinCoin, &mp.LoseCoin, &mp.IsDefault, &mp.State, &mp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchPointNotFound
		}
		return nil, err
	}
	return &mp, nil
}

func (r *postgresPointConfigRepository) GetMatchPointByRound(ctx context.Context, round int) (*models.MatchPoint, error) {
	query := `
		SELECT id, round, win_point, lose_point, win_coin, lose_coin, is_default, state, created_at
		FROM match_points
		WHERE round = $1 AND state = 'active'
		ORDER BY id ASC
		LIMIT 1`
	return r.scanMatchPoint(r.db.QueryRowContext(ctx, query, round))
}

func (r *postgresPointConfigRepository) GetDefaultMatchPoint(ctx context.Context) (*models.MatchPoint, error) {
	query := `
		SELECT id, round, win_point, lose_point, win_coin, lose_coin, is_default, state, created_at
		FROM match_points
		WHERE is_default = TRUE AND state = 'active'
		ORDER BY id ASC
		LIMIT 1`
	return r.scanMatchPoint(r.db.QueryRowContext(ctx, query))
}

func (r *postgresPointConfigRepository) GetTournamentMatchPoint(ctx context.Context, tournamentID, round int) (*models.TournamentMatchPoint, error) {
	query := `
		SELECT id, tournament_id, round, point, coin, state, created_at
		FROM tournament_match_points
		WHERE tournament_id = $1 AND round = $2 AND state = 'active'
		ORDER BY id ASC
		LIMIT 1`
	var tmp models.TournamentMatchPoint
	err := r.db.QueryRowContext(ctx, query, tournamentID, round).Scan(
		&tmp.ID, &tmp.TournamentID, &tmp.Round, &tmp.Point, &tmp.Coin, &tmp.State, &tmp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMatchPointNotFound
		}
		return nil, err
	}
	return &tmp, nil
}
