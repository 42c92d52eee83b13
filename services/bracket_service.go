package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alyeaaah/seventy-five-engine/brackets"
	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// MatchFormat bundles the scoring parameters applied to every match of a
// generated draw.
type MatchFormat struct {
	BestOf        int            `json:"best_of"`
	SetType       models.SetType `json:"set_type"`
	WithAdvantage bool           `json:"with_advantage"`
	Category      string         `json:"category"`
}

func (f MatchFormat) validate() error {
	if f.BestOf < 1 || f.BestOf%2 == 0 {
		return fmt.Errorf("%w: best_of must be a positive odd number", ErrValidationFailed)
	}
	if !f.SetType.Valid() {
		return fmt.Errorf("%w: unknown set type %q", ErrValidationFailed, f.SetType)
	}
	return nil
}

// SlotResolution reports one placeholder slot filled with a concrete team.
type SlotResolution struct {
	MatchID   int         `json:"match_id"`
	Round     int         `json:"round"`
	SeedIndex int         `json:"seed_index"`
	Side      models.Side `json:"side"`
	TeamID    int         `json:"team_id"`
}

// BracketSnapshot is the full read model of a tournament's draw.
type BracketSnapshot struct {
	Tournament *models.Tournament        `json:"tournament"`
	Matches    []*models.Match           `json:"matches"`
	Groups     []*models.TournamentGroup `json:"groups"`
}

// BracketService moves winners through the knockout draw and resolves
// group-fed placeholder slots. All slot writes are write-once: a slot
// already holding a team is never overwritten, which makes every
// advancement path safe to repeat.
type BracketService interface {
	// AdvanceWinner places a finished knockout match's winner into the next
	// round. Returns nil for group matches and for the final.
	AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*SlotResolution, error)
	// ResolveGroupPlacement fills every placeholder slot fed by the group
	// from its finalized standings. Transaction-scoped; callers lock.
	ResolveGroupPlacement(ctx context.Context, exec repositories.SQLExecutor, group *models.TournamentGroup) ([]SlotResolution, error)
	// ResolveGroup is the command-surface entry point: it locks the group,
	// requires finalized standings and runs the placement in its own
	// transaction.
	ResolveGroup(ctx context.Context, groupID int) ([]SlotResolution, error)

	GenerateKnockout(ctx context.Context, tournamentID int, teamIDs []int, format MatchFormat) ([]*models.Match, error)
	GenerateGroupFedKnockout(ctx context.Context, tournamentID, numGroups, qualifiersPerGroup int, format MatchFormat) ([]*models.Match, error)
	GenerateGroupMatches(ctx context.Context, groupID int, teamIDs []int, format MatchFormat) ([]*models.Match, error)

	Snapshot(ctx context.Context, tournamentID int) (*BracketSnapshot, error)
}

type bracketService struct {
	matchRepo      repositories.MatchRepository
	groupRepo      repositories.GroupRepository
	groupTeamRepo  repositories.GroupTeamRepository
	tournamentRepo repositories.TournamentRepository
	uow            UnitOfWork
	locks          *LockManager
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	matchRepo repositories.MatchRepository,
	groupRepo repositories.GroupRepository,
	groupTeamRepo repositories.GroupTeamRepository,
	tournamentRepo repositories.TournamentRepository,
	uow UnitOfWork,
	locks *LockManager,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		matchRepo:      matchRepo,
		groupRepo:      groupRepo,
		groupTeamRepo:  groupTeamRepo,
		tournamentRepo: tournamentRepo,
		uow:            uow,
		locks:          locks,
		hub:            hub,
		logger:         logger,
	}
}

func (s *bracketService) AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*SlotResolution, error) {
	if match.GroupID != nil {
		return nil, nil
	}
	if match.WinnerTeamID == nil {
		return nil, fmt.Errorf("%w: match %d has no winner to advance", ErrValidationFailed, match.ID)
	}

	nextSeed, side := brackets.NextRoundSlot(match.SeedIndex)
	next, err := s.matchRepo.GetByRoundSeed(ctx, exec, match.TournamentID, match.Category, match.Round+1, nextSeed)
	if errors.Is(err, repositories.ErrMatchNotFound) {
		// The final has no destination slot.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load next round match: %w", err)
	}

	filled, err := s.matchRepo.FillSlot(ctx, exec, next.ID, side, *match.WinnerTeamID)
	if err != nil {
		return nil, fmt.Errorf("fill slot of match %d: %w", next.ID, err)
	}
	if !filled {
		s.logger.Info("advancement slot already filled",
			slog.Int("match_id", next.ID),
			slog.String("side", string(side)),
		)
		return nil, nil
	}

	return &SlotResolution{
		MatchID:   next.ID,
		Round:     next.Round,
		SeedIndex: next.SeedIndex,
		Side:      side,
		TeamID:    *match.WinnerTeamID,
	}, nil
}

func (s *bracketService) ResolveGroupPlacement(ctx context.Context, exec repositories.SQLExecutor, group *models.TournamentGroup) ([]SlotResolution, error) {
	if !group.Finalized {
		return nil, fmt.Errorf("%w: group %d", ErrGroupNotFinalized, group.ID)
	}

	byID, err := s.matchRepo.ListFeedingFromGroup(ctx, exec, group.ID)
	if err != nil {
		return nil, fmt.Errorf("list matches fed by group %d: %w", group.ID, err)
	}
	byIndex, err := s.matchRepo.ListFeedingFromGroupIndex(ctx, exec, group.TournamentID, group.Ordinal)
	if err != nil {
		return nil, fmt.Errorf("list matches fed by group index %d: %w", group.Ordinal, err)
	}

	seen := make(map[int]bool, len(byID)+len(byIndex))
	resolutions := make([]SlotResolution, 0)
	for _, match := range append(byID, byIndex...) {
		if seen[match.ID] {
			continue
		}
		seen[match.ID] = true

		for _, side := range [...]models.Side{models.SideHome, models.SideAway} {
			position, feeds := s.feedPosition(match, side, group)
			if !feeds || match.TeamOnSide(side) != nil {
				continue
			}
			res, err := s.fillFromStanding(ctx, exec, group, match, side, position)
			if err != nil {
				return nil, err
			}
			if res != nil {
				resolutions = append(resolutions, *res)
			}
		}
	}
	return resolutions, nil
}

// feedPosition reports whether the match's side is fed by the group, and
// from which finishing position.
func (s *bracketService) feedPosition(match *models.Match, side models.Side, group *models.TournamentGroup) (int, bool) {
	var feedGroupID, feedGroupIndex, feedPos *int
	if side == models.SideHome {
		feedGroupID, feedGroupIndex, feedPos = match.HomeFeedGroupID, match.HomeFeedGroupIndex, match.HomeFeedPosition
	} else {
		feedGroupID, feedGroupIndex, feedPos = match.AwayFeedGroupID, match.AwayFeedGroupIndex, match.AwayFeedPosition
	}
	if feedPos == nil {
		return 0, false
	}
	if feedGroupID != nil && *feedGroupID == group.ID {
		return *feedPos, true
	}
	if feedGroupIndex != nil && *feedGroupIndex == group.Ordinal {
		return *feedPos, true
	}
	return 0, false
}

func (s *bracketService) fillFromStanding(ctx context.Context, exec repositories.SQLExecutor, group *models.TournamentGroup, match *models.Match, side models.Side, position int) (*SlotResolution, error) {
	standing, err := s.groupTeamRepo.GetByGroupAndPosition(ctx, exec, group.ID, position)
	if errors.Is(err, repositories.ErrGroupTeamNotFound) {
		s.logger.Warn("group has no standing at requested position",
			slog.Int("group_id", group.ID),
			slog.Int("position", position),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read standing of group %d position %d: %w", group.ID, position, err)
	}

	filled, err := s.matchRepo.FillSlot(ctx, exec, match.ID, side, standing.TeamID)
	if err != nil {
		return nil, fmt.Errorf("fill slot of match %d: %w", match.ID, err)
	}
	if !filled {
		return nil, nil
	}
	return &SlotResolution{
		MatchID:   match.ID,
		Round:     match.Round,
		SeedIndex: match.SeedIndex,
		Side:      side,
		TeamID:    standing.TeamID,
	}, nil
}

func (s *bracketService) ResolveGroup(ctx context.Context, groupID int) ([]SlotResolution, error) {
	release, err := s.locks.Acquire(ctx, GroupLockKey(groupID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		resolutions  []SlotResolution
		tournamentID int
	)
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		group, err := s.groupRepo.GetByID(ctx, exec, groupID)
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return fmt.Errorf("%w: id %d", ErrGroupNotFound, groupID)
		}
		if err != nil {
			return err
		}
		tournamentID = group.TournamentID
		resolutions, err = s.ResolveGroupPlacement(ctx, exec, group)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, res := range resolutions {
		s.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.EventSlotResolved, res)
	}
	return resolutions, nil
}

func (s *bracketService) GenerateKnockout(ctx context.Context, tournamentID int, teamIDs []int, format MatchFormat) ([]*models.Match, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	planned, err := brackets.PlanKnockout(teamIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return s.persistPlan(ctx, tournamentID, nil, planned, format)
}

func (s *bracketService) GenerateGroupFedKnockout(ctx context.Context, tournamentID, numGroups, qualifiersPerGroup int, format MatchFormat) ([]*models.Match, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	planned, err := brackets.PlanGroupFedKnockout(numGroups, qualifiersPerGroup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return s.persistPlan(ctx, tournamentID, nil, planned, format)
}

func (s *bracketService) GenerateGroupMatches(ctx context.Context, groupID int, teamIDs []int, format MatchFormat) ([]*models.Match, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	planned, err := brackets.PlanGroupRoundRobin(teamIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, err
	}
	return s.persistPlan(ctx, group.TournamentID, &group.ID, planned, format)
}

func (s *bracketService) persistPlan(ctx context.Context, tournamentID int, groupID *int, planned []brackets.PlannedMatch, format MatchFormat) ([]*models.Match, error) {
	created := make([]*models.Match, 0, len(planned))
	err := s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		for _, p := range planned {
			match := &models.Match{
				TournamentID:       tournamentID,
				HomeTeamID:         p.HomeTeamID,
				AwayTeamID:         p.AwayTeamID,
				GameScores:         models.NewGameScores(),
				Round:              p.Round,
				SeedIndex:          p.SeedIndex,
				Category:           format.Category,
				BestOf:             format.BestOf,
				SetType:            format.SetType,
				WithAdvantage:      format.WithAdvantage,
				Status:             models.MatchStatusPending,
				GroupID:            groupID,
				HomeFeedGroupIndex: p.HomeFeedGroupIndex,
				HomeFeedPosition:   p.HomeFeedPosition,
				AwayFeedGroupIndex: p.AwayFeedGroupIndex,
				AwayFeedPosition:   p.AwayFeedPosition,
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return fmt.Errorf("create planned match r%d s%d: %w", p.Round, p.SeedIndex, err)
			}
			created = append(created, match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Snapshot assembles the tournament read model: matches, groups and their
// standings are fetched concurrently.
func (s *bracketService) Snapshot(ctx context.Context, tournamentID int) (*BracketSnapshot, error) {
	snapshot := &BracketSnapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournament, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("%w: id %d", ErrTournamentNotFound, tournamentID)
		}
		if err != nil {
			return err
		}
		snapshot.Tournament = tournament
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, tournamentID, nil, nil)
		if err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		snapshot.Matches = matches
		return nil
	})
	g.Go(func() error {
		groups, err := s.groupRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("list groups: %w", err)
		}
		for _, group := range groups {
			standings, err := s.groupTeamRepo.ListByGroup(gctx, nil, group.ID)
			if err != nil {
				return fmt.Errorf("list standings of group %d: %w", group.ID, err)
			}
			group.Teams = make([]models.TournamentGroupTeam, 0, len(standings))
			for _, st := range standings {
				group.Teams = append(group.Teams, *st)
			}
		}
		snapshot.Groups = groups
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}
