package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var ErrSetLogSeqConflict = errors.New("set log sequence already recorded")

// SetLogRepository is append-only: score mutations are journaled and never
// updated or deleted.
type SetLogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, log *models.SetLog) error
	ListBySet(ctx context.Context, setID int) ([]*models.SetLog, error)
}

type postgresSetLogRepository struct {
	db *sql.DB
}

func NewPostgresSetLogRepository(db *sql.DB) SetLogRepository {
	return &postgresSetLogRepository{db: db}
}

func (r *postgresSetLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSetLogRepository) Append(ctx context.Context, exec SQLExecutor, log *models.SetLog) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO set_logs
			(set_id, seq, kind, side, home_games, away_games, home_points, away_points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		log.SetID, log.Seq, log.Kind, log.Side,
		log.HomeGames, log.AwayGames, log.HomePoints, log.AwayPoints,
	).Scan(&log.ID, &log.CreatedAt)

	if isUniqueViolation(err) {
		return ErrSetLogSeqConflict
	}
	return err
}

func (r *postgresSetLogRepository) ListBySet(ctx context.Context, setID int) ([]*models.SetLog, error) {
	query := `
		SELECT id, set_id, seq, kind, side, home_games, away_games, home_points, away_points, created_at
		FROM set_logs
		WHERE set_id = $1
		ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, query, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*models.SetLog, 0)
	for rows.Next() {
		var l models.SetLog
		if scanErr := rows.Scan(
			&l.ID, &l.SetID, &l.Seq, &l.Kind, &l.Side,
			&l.HomeGames, &l.AwayGames, &l.HomePoints, &l.AwayPoints, &l.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
