package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

// Read-side repositories for entities the engine consumes but does not
// manage. Their lifecycle lives in the surrounding platform.

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrCourtFieldNotFound = errors.New("court field not found")
)

type PlayerRepository interface {
	GetByID(ctx context.Context, id int) (*models.Player, error)
}

type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	// ListPlayerIDs returns the ids of the team's active members, ordered.
	ListPlayerIDs(ctx context.Context, exec SQLExecutor, teamID int) ([]int, error)
}

type TournamentRepository interface {
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
}

type CourtFieldRepository interface {
	GetByID(ctx context.Context, id int) (*models.CourtField, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT id, first_name, last_name, nickname, level_id, state, created_at
		FROM players
		WHERE id = $1 AND state = 'active'`

	var player models.Player
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&player.ID, &player.FirstName, &player.LastName,
		&player.Nickname, &player.LevelID, &player.State, &player.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, state, created_at
		FROM teams
		WHERE id = $1 AND state = 'active'`

	var team models.Team
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.State, &team.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *postgresTeamRepository) ListPlayerIDs(ctx context.Context, exec SQLExecutor, teamID int) ([]int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT tp.player_id
		FROM team_players tp
		JOIN players p ON p.id = tp.player_id AND p.state = 'active'
		WHERE tp.team_id = $1 AND tp.state = 'active'
		ORDER BY tp.player_id ASC`

	rows, err := executor.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT id, name, category, state, created_at
		FROM tournaments
		WHERE id = $1 AND state = 'active'`

	var tournament models.Tournament
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tournament.ID, &tournament.Name, &tournament.Category,
		&tournament.State, &tournament.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

type postgresCourtFieldRepository struct {
	db *sql.DB
}

func NewPostgresCourtFieldRepository(db *sql.DB) CourtFieldRepository {
	return &postgresCourtFieldRepository{db: db}
}

func (r *postgresCourtFieldRepository) GetByID(ctx context.Context, id int) (*models.CourtField, error) {
	query := `SELECT id, court_id, name, state
		FROM court_fields
		WHERE id = $1 AND state = 'active'`

	var field models.CourtField
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&field.ID, &field.CourtID, &field.Name, &field.State,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCourtFieldNotFound
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}
