package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alyeaaah/seventy-five-engine/brackets"
	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// Group table points. Playing a match always earns at least the loss point.
const (
	GroupWinPoints  = 2
	GroupLossPoints = 1
)

// GroupOutcome is the result of a standings recompute: fresh standings,
// whether the recompute finalized the group, and any knockout slots that
// were resolved from the finalized table.
type GroupOutcome struct {
	Group       *models.TournamentGroup
	Standings   []*models.TournamentGroupTeam
	Finalized   bool
	Resolutions []SlotResolution
}

// StandingsService derives group tables from finished matches. Standings
// are never edited directly: every change to the underlying matches is
// followed by a full recompute, which keeps the table a pure function of
// match data.
type StandingsService interface {
	Standings(ctx context.Context, groupID int) (*models.TournamentGroup, error)
	// Recompute rebuilds the group table in its own transaction, finalizing
	// the group and resolving dependent slots when every match is done.
	Recompute(ctx context.Context, groupID int) (*GroupOutcome, error)
	// RecomputeForMatch runs inside the caller's transaction after one of
	// the group's matches finished. The caller holds the match lock and
	// the group lock, and keeps the group lock until its transaction
	// commits so concurrent finishes cannot tally from uncommitted state.
	RecomputeForMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*GroupOutcome, error)
	// SweepFinalizeGroups finalizes every group whose matches have all
	// reached a terminal status. Returns the number of groups finalized.
	SweepFinalizeGroups(ctx context.Context) (int, error)
}

type standingsService struct {
	matchRepo     repositories.MatchRepository
	setRepo       repositories.SetRepository
	groupRepo     repositories.GroupRepository
	groupTeamRepo repositories.GroupTeamRepository
	bracket       BracketService
	uow           UnitOfWork
	locks         *LockManager
	hub           *brackets.Hub
	logger        *slog.Logger
}

func NewStandingsService(
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	groupRepo repositories.GroupRepository,
	groupTeamRepo repositories.GroupTeamRepository,
	bracket BracketService,
	uow UnitOfWork,
	locks *LockManager,
	hub *brackets.Hub,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		matchRepo:     matchRepo,
		setRepo:       setRepo,
		groupRepo:     groupRepo,
		groupTeamRepo: groupTeamRepo,
		bracket:       bracket,
		uow:           uow,
		locks:         locks,
		hub:           hub,
		logger:        logger,
	}
}

func (s *standingsService) Standings(ctx context.Context, groupID int) (*models.TournamentGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}

	standings, err := s.groupTeamRepo.ListByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, fmt.Errorf("list standings of group %d: %w", groupID, err)
	}
	group.Teams = make([]models.TournamentGroupTeam, 0, len(standings))
	for _, st := range standings {
		group.Teams = append(group.Teams, *st)
	}
	return group, nil
}

func (s *standingsService) Recompute(ctx context.Context, groupID int) (*GroupOutcome, error) {
	release, err := s.locks.Acquire(ctx, GroupLockKey(groupID))
	if err != nil {
		return nil, err
	}
	defer release()

	var outcome *GroupOutcome
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		group, err := s.groupRepo.GetByID(ctx, exec, groupID)
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return fmt.Errorf("%w: id %d", ErrGroupNotFound, groupID)
		}
		if err != nil {
			return err
		}
		outcome, err = s.recomputeTx(ctx, exec, group)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(outcome)
	return outcome, nil
}

func (s *standingsService) RecomputeForMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*GroupOutcome, error) {
	if match.GroupID == nil {
		return nil, fmt.Errorf("%w: match %d does not belong to a group", ErrValidationFailed, match.ID)
	}

	group, err := s.groupRepo.GetByID(ctx, exec, *match.GroupID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrGroupNotFound, *match.GroupID)
	}
	if err != nil {
		return nil, err
	}
	return s.recomputeTx(ctx, exec, group)
}

// recomputeTx rebuilds the table from the group's matches, persists it and,
// when every match has reached a terminal status, finalizes the group and
// resolves the knockout slots it feeds.
func (s *standingsService) recomputeTx(ctx context.Context, exec repositories.SQLExecutor, group *models.TournamentGroup) (*GroupOutcome, error) {
	matches, err := s.matchRepo.ListByGroup(ctx, exec, group.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("list matches of group %d: %w", group.ID, err)
	}

	standings, err := s.tally(ctx, exec, matches)
	if err != nil {
		return nil, err
	}
	if err := s.groupTeamRepo.ReplaceForGroup(ctx, exec, group.ID, standings); err != nil {
		return nil, fmt.Errorf("persist standings of group %d: %w", group.ID, err)
	}

	outcome := &GroupOutcome{Group: group, Standings: standings}

	if !group.Finalized && groupComplete(matches) {
		if err := s.groupRepo.SetFinalized(ctx, exec, group.ID, true); err != nil {
			return nil, fmt.Errorf("finalize group %d: %w", group.ID, err)
		}
		group.Finalized = true
		outcome.Finalized = true

		resolutions, err := s.bracket.ResolveGroupPlacement(ctx, exec, group)
		if err != nil {
			return nil, err
		}
		outcome.Resolutions = resolutions
	}
	return outcome, nil
}

// groupComplete reports whether the group has played out: at least one
// finished match and nothing still pending or live. Cancelled matches do
// not block finalization, they just never enter the tally.
func groupComplete(matches []*models.Match) bool {
	finished := 0
	for _, m := range matches {
		if !m.Status.Terminal() {
			return false
		}
		if m.Status == models.MatchStatusFinished {
			finished++
		}
	}
	return finished > 0
}

func (s *standingsService) tally(ctx context.Context, exec repositories.SQLExecutor, matches []*models.Match) ([]*models.TournamentGroupTeam, error) {
	rows := make(map[int]*models.TournamentGroupTeam)
	rowFor := func(teamID int) *models.TournamentGroupTeam {
		if row, ok := rows[teamID]; ok {
			return row
		}
		row := &models.TournamentGroupTeam{TeamID: teamID}
		rows[teamID] = row
		return row
	}

	for _, m := range matches {
		if m.HomeTeamID != nil {
			rowFor(*m.HomeTeamID)
		}
		if m.AwayTeamID != nil {
			rowFor(*m.AwayTeamID)
		}
		if m.Status != models.MatchStatusFinished || m.WinnerTeamID == nil {
			continue
		}
		if m.HomeTeamID == nil || m.AwayTeamID == nil {
			continue
		}

		home, away := rowFor(*m.HomeTeamID), rowFor(*m.AwayTeamID)
		home.MatchesPlayed++
		away.MatchesPlayed++

		winner, loser := home, away
		if *m.WinnerTeamID == *m.AwayTeamID {
			winner, loser = away, home
		}
		winner.MatchesWon++
		winner.Points += GroupWinPoints
		loser.Points += GroupLossPoints

		sets, err := s.setRepo.ListByMatch(ctx, exec, m.ID)
		if err != nil {
			return nil, fmt.Errorf("list sets of match %d: %w", m.ID, err)
		}
		for _, set := range sets {
			home.GamesWon += set.HomeGames
			away.GamesWon += set.AwayGames
		}
	}

	standings := make([]*models.TournamentGroupTeam, 0, len(rows))
	for _, row := range rows {
		standings = append(standings, row)
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GamesWon != b.GamesWon {
			return a.GamesWon > b.GamesWon
		}
		if a.MatchesWon != b.MatchesWon {
			return a.MatchesWon > b.MatchesWon
		}
		return a.TeamID < b.TeamID
	})
	for i, row := range standings {
		row.Position = i + 1
	}
	return standings, nil
}

func (s *standingsService) SweepFinalizeGroups(ctx context.Context) (int, error) {
	groups, err := s.groupRepo.ListUnfinalized(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unfinalized groups: %w", err)
	}

	finalized := 0
	for _, group := range groups {
		matches, err := s.matchRepo.ListByGroup(ctx, nil, group.ID, nil)
		if err != nil {
			return finalized, fmt.Errorf("list matches of group %d: %w", group.ID, err)
		}
		if !groupComplete(matches) {
			continue
		}

		outcome, err := s.Recompute(ctx, group.ID)
		if err != nil {
			s.logger.Error("group finalize sweep failed",
				slog.Int("group_id", group.ID),
				slog.Any("error", err),
			)
			continue
		}
		if outcome.Finalized {
			finalized++
		}
	}
	return finalized, nil
}

func (s *standingsService) broadcast(outcome *GroupOutcome) {
	if outcome == nil {
		return
	}
	room := brackets.TournamentRoom(outcome.Group.TournamentID)
	s.hub.BroadcastToRoom(room, brackets.EventStandingsUpdated, map[string]interface{}{
		"group_id":  outcome.Group.ID,
		"finalized": outcome.Group.Finalized,
		"standings": outcome.Standings,
	})
	for _, res := range outcome.Resolutions {
		s.hub.BroadcastToRoom(room, brackets.EventSlotResolved, res)
	}
}
