package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	ErrPlayerMatchPointDuplicate = errors.New("player match point already awarded for this match, round and player")
	ErrPlayerMatchPointInvalid   = errors.New("player match point reference conflict or invalid")
)

type PlayerMatchPointRepository interface {
	// Create inserts one award row. A duplicate on
	// (match_id, round, player_id) returns ErrPlayerMatchPointDuplicate
	// without aborting the surrounding transaction, so a rerun can skip
	// the row and keep writing.
	Create(ctx context.Context, exec SQLExecutor, award *models.PlayerMatchPoint) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.PlayerMatchPoint, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.PlayerMatchPoint, error)
}

type postgresPlayerMatchPointRepository struct {
	db *sql.DB
}

func NewPostgresPlayerMatchPointRepository(db *sql.DB) PlayerMatchPointRepository {
	return &postgresPlayerMatchPointRepository{db: db}
}

func (r *postgresPlayerMatchPointRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerMatchPointRepository) Create(ctx context.Context, exec SQLExecutor, award *models.PlayerMatchPoint) error {
	executor := r.getExecutor(exec)
	// ON CONFLICT DO NOTHING instead of catching 23505: a failed INSERT
	// would poison the enclosing transaction, DO NOTHING just returns no
	// row for the duplicate.
	query := `
		INSERT INTO player_match_points
			(match_id, round, player_id, team_id, point, coin, config_source, config_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id, round, player_id) DO NOTHING
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		award.MatchID, award.Round, award.PlayerID, award.TeamID,
		award.Point, award.Coin, award.ConfigSource, award.ConfigID,
	).Scan(&award.ID, &award.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlayerMatchPointDuplicate
	}
	if isForeignKeyViolation(err) {
		return ErrPlayerMatchPointInvalid
	}
	return err
}

func (r *postgresPlayerMatchPointRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.PlayerMatchPoint, error) {
	query := awardSelect + ` WHERE match_id = $1 ORDER BY round ASC, player_id ASC`
	return r.queryAwards(ctx, query, matchID)
}

func (r *postgresPlayerMatchPointRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.PlayerMatchPoint, error) {
	query := awardSelect + ` WHERE player_id = $1 ORDER BY id DESC`
	return r.queryAwards(ctx, query, playerID)
}

const awardSelect = `
	SELECT id, match_id, round, player_id, team_id, point, coin, config_source, config_id, created_at
	FROM player_match_points`

func (r *postgresPlayerMatchPointRepository) queryAwards(ctx context.Context, query string, args ...interface{}) ([]*models.PlayerMatchPoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := make([]*models.PlayerMatchPoint, 0)
	for rows.Next() {
		var a models.PlayerMatchPoint
		if scanErr := rows.Scan(
			&a.ID, &a.MatchID, &a.Round, &a.PlayerID, &a.TeamID,
			&a.Point, &a.Coin, &a.ConfigSource, &a.ConfigID, &a.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		awards = append(awards, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return awards, nil
}
