package repositories

import (
	"context"
	"database/sql"

	"github.com/alyeaaah/seventy-five-engine/models"
)

// MatchHistoryRepository is append-only, one row per status transition.
type MatchHistoryRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.MatchHistory) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchHistory, error)
}

type postgresMatchHistoryRepository struct {
	db *sql.DB
}

func NewPostgresMatchHistoryRepository(db *sql.DB) MatchHistoryRepository {
	return &postgresMatchHistoryRepository{db: db}
}

func (r *postgresMatchHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchHistoryRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.MatchHistory) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_histories
			(match_id, prev_status, new_status, transition, actor, reason, ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		entry.MatchID, entry.PrevStatus, entry.NewStatus,
		entry.Transition, entry.Actor, entry.Reason, entry.Ref,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresMatchHistoryRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchHistory, error) {
	query := `
		SELECT id, match_id, prev_status, new_status, transition, actor, reason, ref, created_at
		FROM match_histories
		WHERE match_id = $1
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.MatchHistory, 0)
	for rows.Next() {
		var h models.MatchHistory
		if scanErr := rows.Scan(
			&h.ID, &h.MatchID, &h.PrevStatus, &h.NewStatus,
			&h.Transition, &h.Actor, &h.Reason, &h.Ref, &h.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, &h)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
