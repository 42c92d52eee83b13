package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/alyeaaah/seventy-five-engine/models"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchTeamInvalid     = errors.New("match team reference conflict or invalid")
	ErrMatchSlotUnavailable = errors.New("match slot reference invalid")
)

const matchColumns = `
	id, tournament_id, court_field_id, scheduled_at, home_team_id, away_team_id,
	winner_team_id, home_score, away_score, game_scores, round, seed_index,
	category, point_config_id, best_of, set_type, with_advantage, status,
	group_id, home_feed_group_id, home_feed_position, away_feed_group_id,
	away_feed_position, home_feed_group_index, away_feed_group_index,
	state, created_at, updated_at`

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByRoundSeed(ctx context.Context, exec SQLExecutor, tournamentID int, category string, round, seedIndex int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int, status *models.MatchStatus) ([]*models.Match, error)
	ListFeedingFromGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error)
	ListFeedingFromGroupIndex(ctx context.Context, exec SQLExecutor, tournamentID, groupIndex int) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, winnerTeamID *int, homeScore, awayScore int) error
	UpdateGameScores(ctx context.Context, exec SQLExecutor, id int, scores models.GameScores) error
	// FillSlot writes a team into an empty placeholder side. The write is
	// guarded by an IS NULL condition so a filled slot stays untouched;
	// the bool reports whether the write happened.
	FillSlot(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, teamID int) (bool, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	executor := r.getExecutor(exec)
	if err := match.GameScores.Validate(); err != nil {
		return err
	}
	query := `
		INSERT INTO matches
			(tournament_id, court_field_id, scheduled_at, home_team_id, away_team_id,
			 winner_team_id, home_score, away_score, game_scores, round, seed_index,
			 category, point_config_id, best_of, set_type, with_advantage, status,
			 group_id, home_feed_group_id, home_feed_position, away_feed_group_id,
			 away_feed_position, home_feed_group_index, away_feed_group_index, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		match.TournamentID, match.CourtFieldID, match.ScheduledAt,
		match.HomeTeamID, match.AwayTeamID, match.WinnerTeamID,
		match.HomeScore, match.AwayScore, match.GameScores,
		match.Round, match.SeedIndex, match.Category, match.PointConfigID,
		match.BestOf, match.SetType, match.WithAdvantage, match.Status,
		match.GroupID, match.HomeFeedGroupID, match.HomeFeedPosition,
		match.AwayFeedGroupID, match.AwayFeedPosition,
		match.HomeFeedGroupIndex, match.AwayFeedGroupIndex, models.StateActive,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	if isForeignKeyViolation(err) {
		return ErrMatchTeamInvalid
	}
	return err
}

func scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.CourtFieldID, &m.ScheduledAt,
		&m.HomeTeamID, &m.AwayTeamID, &m.WinnerTeamID,
		&m.HomeScore, &m.AwayScore, &m.GameScores,
		&m.Round, &m.SeedIndex, &m.Category, &m.PointConfigID,
		&m.BestOf, &m.SetType, &m.WithAdvantage, &m.Status,
		&m.GroupID, &m.HomeFeedGroupID, &m.HomeFeedPosition,
		&m.AwayFeedGroupID, &m.AwayFeedPosition,
		&m.HomeFeedGroupIndex, &m.AwayFeedGroupIndex,
		&m.State, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 AND state = 'active'`
	return scanMatch(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByRoundSeed(ctx context.Context, exec SQLExecutor, tournamentID int, category string, round, seedIndex int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND category = $2 AND round = $3 AND seed_index = $4
		  AND group_id IS NULL AND state = 'active'`
	return scanMatch(executor.QueryRowContext(ctx, query, tournamentID, category, round, seedIndex))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 AND state = 'active'`)

	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *round)
		placeholderIndex++
	}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *status)
		placeholderIndex++
	}
	queryBuilder.WriteString(" ORDER BY round ASC, seed_index ASC, id ASC")

	return r.queryMatches(ctx, r.db, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int, status *models.MatchStatus) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE group_id = $1 AND state = 'active'`
	args := []interface{}{groupID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY round ASC, seed_index ASC, id ASC"
	return r.queryMatches(ctx, executor, query, args...)
}

func (r *postgresMatchRepository) ListFeedingFromGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (home_feed_group_id = $1 OR away_feed_group_id = $1) AND state = 'active'
		ORDER BY round ASC, seed_index ASC, id ASC`
	return r.queryMatches(ctx, executor, query, groupID)
}

func (r *postgresMatchRepository) ListFeedingFromGroupIndex(ctx context.Context, exec SQLExecutor, tournamentID, groupIndex int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		  AND (home_feed_group_index = $2 OR away_feed_group_index = $2)
		  AND state = 'active'
		ORDER BY round ASC, seed_index ASC, id ASC`
	return r.queryMatches(ctx, executor, query, tournamentID, groupIndex)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE matches SET status = $1, updated_at = NOW() WHERE id = $2 AND state = 'active'`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus, winnerTeamID *int, homeScore, awayScore int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE matches
		SET status = $1, winner_team_id = $2, home_score = $3, away_score = $4, updated_at = NOW()
		WHERE id = $5 AND state = 'active'`
	result, err := executor.ExecContext(ctx, query, status, winnerTeamID, homeScore, awayScore, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMatchTeamInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateGameScores(ctx context.Context, exec SQLExecutor, id int, scores models.GameScores) error {
	executor := r.getExecutor(exec)
	if err := scores.Validate(); err != nil {
		return err
	}
	query := `UPDATE matches SET game_scores = $1, updated_at = NOW() WHERE id = $2 AND state = 'active'`
	result, err := executor.ExecContext(ctx, query, scores, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, matchID int, side models.Side, teamID int) (bool, error) {
	executor := r.getExecutor(exec)
	column := "home_team_id"
	if side == models.SideAway {
		column = "away_team_id"
	}
	query := `UPDATE matches SET ` + column + ` = $1, updated_at = NOW()
		WHERE id = $2 AND ` + column + ` IS NULL AND state = 'active'`
	result, err := executor.ExecContext(ctx, query, teamID, matchID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, ErrMatchSlotUnavailable
		}
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
