package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var ErrCoinLogNotFound = errors.New("coin log entry not found")

type CoinLogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.CoinLog) error
	// GetLatestByPlayer returns the most recent ledger row for the player,
	// or ErrCoinLogNotFound when the player has no rows yet.
	GetLatestByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.CoinLog, error)
	ListByPlayer(ctx context.Context, playerID int, limit, offset int) ([]*models.CoinLog, error)
}

type postgresCoinLogRepository struct {
	db *sql.DB
}

func NewPostgresCoinLogRepository(db *sql.DB) CoinLogRepository {
	return &postgresCoinLogRepository{db: db}
}

func (r *postgresCoinLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const coinLogColumns = `id, player_id, delta, direction, source, ref, before_balance, after_balance, created_at`

func (r *postgresCoinLogRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.CoinLog) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO coin_logs
			(player_id, delta, direction, source, ref, before_balance, after_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		entry.PlayerID, entry.Delta, entry.Direction, entry.Source,
		entry.Ref, entry.Before, entry.After,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresCoinLogRepository) GetLatestByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.CoinLog, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + coinLogColumns + `
		FROM coin_logs
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT 1`

	entry, err := scanCoinLog(executor.QueryRowContext(ctx, query, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCoinLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *postgresCoinLogRepository) ListByPlayer(ctx context.Context, playerID int, limit, offset int) ([]*models.CoinLog, error) {
	query := `SELECT ` + coinLogColumns + `
		FROM coin_logs
		WHERE player_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.CoinLog, 0)
	for rows.Next() {
		entry, scanErr := scanCoinLog(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanCoinLog(row interface{ Scan(...interface{}) error }) (*models.CoinLog, error) {
	var entry models.CoinLog
	err := row.Scan(
		&entry.ID, &entry.PlayerID, &entry.Delta, &entry.Direction,
		&entry.Source, &entry.Ref, &entry.Before, &entry.After, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
