package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	ErrSetNotFound       = errors.New("set not found")
	ErrSetNumberConflict = errors.New("set number already recorded for this match")
)

type SetRepository interface {
	Create(ctx context.Context, exec SQLExecutor, set *models.Set) error
	Update(ctx context.Context, exec SQLExecutor, set *models.Set) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Set, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Set, error)
}

type postgresSetRepository struct {
	db *sql.DB
}

func NewPostgresSetRepository(db *sql.DB) SetRepository {
	return &postgresSetRepository{db: db}
}

func (r *postgresSetRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const setColumns = `
	id, match_id, type, number, home_games, away_games, home_points, away_points,
	in_tiebreak, winner_side, history, state, created_at, updated_at`

func (r *postgresSetRepository) Create(ctx context.Context, exec SQLExecutor, set *models.Set) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO sets
			(match_id, type, number, home_games, away_games, home_points, away_points,
			 in_tiebreak, winner_side, history, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		set.MatchID, set.Type, set.Number, set.HomeGames, set.AwayGames,
		set.HomePoints, set.AwayPoints, set.InTiebreak, set.WinnerSide,
		set.History, models.StateActive,
	).Scan(&set.ID, &set.CreatedAt, &set.UpdatedAt)

	if isUniqueViolation(err) {
		return ErrSetNumberConflict
	}
	return err
}

// Update persists recomputed scores and history. A set whose winner is
// already recorded is immutable; the guard lives in the WHERE clause so a
// violation surfaces as not-found instead of silently overwriting.
func (r *postgresSetRepository) Update(ctx context.Context, exec SQLExecutor, set *models.Set) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE sets
		SET home_games = $1, away_games = $2, home_points = $3, away_points = $4,
		    in_tiebreak = $5, winner_side = $6, history = $7, updated_at = NOW()
		WHERE id = $8 AND winner_side IS NULL AND state = 'active'`
	result, err := executor.ExecContext(ctx, query,
		set.HomeGames, set.AwayGames, set.HomePoints, set.AwayPoints,
		set.InTiebreak, set.WinnerSide, set.History, set.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSetNotFound)
}

func scanSet(rowScanner interface{ Scan(...interface{}) error }) (*models.Set, error) {
	var s models.Set
	err := rowScanner.Scan(
		&s.ID, &s.MatchID, &s.Type, &s.Number, &s.HomeGames, &s.AwayGames,
		&s.HomePoints, &s.AwayPoints, &s.InTiebreak, &s.WinnerSide,
		&s.History, &s.State, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSetNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresSetRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Set, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + setColumns + ` FROM sets WHERE id = $1 AND state = 'active'`
	return scanSet(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresSetRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Set, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + setColumns + ` FROM sets WHERE match_id = $1 AND state = 'active' ORDER BY number ASC`
	rows, err := executor.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]*models.Set, 0)
	for rows.Next() {
		s, scanErr := scanSet(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sets = append(sets, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}
