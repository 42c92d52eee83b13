package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	ErrGroupNotFound     = errors.New("tournament group not found")
	ErrGroupTeamNotFound = errors.New("tournament group team not found")
)

type GroupRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentGroup, error)
	GetByTournamentAndOrdinal(ctx context.Context, tournamentID, ordinal int) (*models.TournamentGroup, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error)
	// ListUnfinalized returns groups whose standings have not been locked in
	// yet, for the periodic finalize sweep.
	ListUnfinalized(ctx context.Context) ([]*models.TournamentGroup, error)
	SetFinalized(ctx context.Context, exec SQLExecutor, groupID int, finalized bool) error
}

type GroupTeamRepository interface {
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.TournamentGroupTeam, error)
	GetByGroupAndPosition(ctx context.Context, exec SQLExecutor, groupID, position int) (*models.TournamentGroupTeam, error)
	// ReplaceForGroup swaps the group's standing rows wholesale. Standings
	// are derived data, so recompute always writes the full set.
	ReplaceForGroup(ctx context.Context, exec SQLExecutor, groupID int, teams []*models.TournamentGroupTeam) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const groupColumns = `id, tournament_id, name, ordinal, finalized, state, created_at`

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentGroup, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + groupColumns + `
		FROM tournament_groups
		WHERE id = $1 AND state = 'active'`

	group, err := scanGroup(executor.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) GetByTournamentAndOrdinal(ctx context.Context, tournamentID, ordinal int) (*models.TournamentGroup, error) {
	query := `SELECT ` + groupColumns + `
		FROM tournament_groups
		WHERE tournament_id = $1 AND ordinal = $2 AND state = 'active'`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, tournamentID, ordinal))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *postgresGroupRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	query := `SELECT ` + groupColumns + `
		FROM tournament_groups
		WHERE tournament_id = $1 AND state = 'active'
		ORDER BY ordinal ASC`
	return r.queryGroups(ctx, query, tournamentID)
}

func (r *postgresGroupRepository) ListUnfinalized(ctx context.Context) ([]*models.TournamentGroup, error) {
	query := `SELECT ` + groupColumns + `
		FROM tournament_groups
		WHERE finalized = FALSE AND state = 'active'
		ORDER BY id ASC`
	return r.queryGroups(ctx, query)
}

func (r *postgresGroupRepository) SetFinalized(ctx context.Context, exec SQLExecutor, groupID int, finalized bool) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_groups
		SET finalized = $1
		WHERE id = $2 AND state = 'active'`

	result, err := executor.ExecContext(ctx, query, finalized, groupID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) queryGroups(ctx context.Context, query string, args ...interface{}) ([]*models.TournamentGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*models.TournamentGroup, 0)
	for rows.Next() {
		group, scanErr := scanGroup(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, group)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func scanGroup(row interface{ Scan(...interface{}) error }) (*models.TournamentGroup, error) {
	var group models.TournamentGroup
	err := row.Scan(
		&group.ID, &group.TournamentID, &group.Name, &group.Ordinal,
		&group.Finalized, &group.State, &group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

type postgresGroupTeamRepository struct {
	db *sql.DB
}

func NewPostgresGroupTeamRepository(db *sql.DB) GroupTeamRepository {
	return &postgresGroupTeamRepository{db: db}
}

func (r *postgresGroupTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const groupTeamColumns = `id, group_id, team_id, matches_played, matches_won, games_won, points, position, updated_at`

func (r *postgresGroupTeamRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.TournamentGroupTeam, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + groupTeamColumns + `
		FROM tournament_group_teams
		WHERE group_id = $1
		ORDER BY position ASC`

	rows, err := executor.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.TournamentGroupTeam, 0)
	for rows.Next() {
		team, scanErr := scanGroupTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresGroupTeamRepository) GetByGroupAndPosition(ctx context.Context, exec SQLExecutor, groupID, position int) (*models.TournamentGroupTeam, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + groupTeamColumns + `
		FROM tournament_group_teams
		WHERE group_id = $1 AND position = $2`

	team, err := scanGroupTeam(executor.QueryRowContext(ctx, query, groupID, position))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *postgresGroupTeamRepository) ReplaceForGroup(ctx context.Context, exec SQLExecutor, groupID int, teams []*models.TournamentGroupTeam) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx,
		`DELETE FROM tournament_group_teams WHERE group_id = $1`, groupID); err != nil {
		return err
	}

	query := `
		INSERT INTO tournament_group_teams
			(group_id, team_id, matches_played, matches_won, games_won, points, position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, updated_at`

	for _, team := range teams {
		team.GroupID = groupID
		err := executor.QueryRowContext(ctx, query,
			groupID, team.TeamID, team.MatchesPlayed, team.MatchesWon,
			team.GamesWon, team.Points, team.Position,
		).Scan(&team.ID, &team.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanGroupTeam(row interface{ Scan(...interface{}) error }) (*models.TournamentGroupTeam, error) {
	var team models.TournamentGroupTeam
	err := row.Scan(
		&team.ID, &team.GroupID, &team.TeamID, &team.MatchesPlayed,
		&team.MatchesWon, &team.GamesWon, &team.Points, &team.Position, &team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
