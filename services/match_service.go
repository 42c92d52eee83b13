package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alyeaaah/seventy-five-engine/brackets"
	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
	"github.com/alyeaaah/seventy-five-engine/scoring"
	"github.com/alyeaaah/seventy-five-engine/storage"
)

// SetResultInput is a whole set recorded as its ordered point sequence.
// The score is derived by replaying the sequence, never taken from the
// caller, so a submitted set can only ever contain a reachable score.
type SetResultInput struct {
	Points []models.Side `json:"points"`
}

// FinishResult carries everything a finish produced in one transaction.
type FinishResult struct {
	Match       *models.Match
	Sets        []*models.Set
	Awards      []*models.PlayerMatchPoint
	Advancement *SlotResolution
	Group       *GroupOutcome
}

// MatchService drives a match through its lifecycle and, on completion,
// triggers awarding, ledger writes and bracket or standings updates inside
// the same transaction. Every mutating call runs under the match's lock.
type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	StartMatch(ctx context.Context, id int, actor string) (*models.Match, error)
	ApplyPoint(ctx context.Context, matchID int, side models.Side) (*models.Set, error)
	UndoPoint(ctx context.Context, matchID int) (*models.Set, error)
	RecordSetResult(ctx context.Context, matchID int, input SetResultInput) (*models.Set, error)
	FinishMatch(ctx context.Context, id int, actor string) (*FinishResult, error)
	CancelMatch(ctx context.Context, id int, actor string, reason *string) (*models.Match, error)
}

type matchService struct {
	matchRepo    repositories.MatchRepository
	setRepo      repositories.SetRepository
	setLogRepo   repositories.SetLogRepository
	historyRepo  repositories.MatchHistoryRepository
	teamRepo     repositories.TeamRepository
	courtRepo    repositories.CourtFieldRepository
	points       PointsService
	bracket      BracketService
	standings    StandingsService
	uow          UnitOfWork
	locks        *LockManager
	hub          *brackets.Hub
	uploader     storage.FileUploader
	logger       *slog.Logger
	archiveDelay time.Duration
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	setLogRepo repositories.SetLogRepository,
	historyRepo repositories.MatchHistoryRepository,
	teamRepo repositories.TeamRepository,
	courtRepo repositories.CourtFieldRepository,
	points PointsService,
	bracket BracketService,
	standings StandingsService,
	uow UnitOfWork,
	locks *LockManager,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:    matchRepo,
		setRepo:      setRepo,
		setLogRepo:   setLogRepo,
		historyRepo:  historyRepo,
		teamRepo:     teamRepo,
		courtRepo:    courtRepo,
		points:       points,
		bracket:      bracket,
		standings:    standings,
		uow:          uow,
		locks:        locks,
		hub:          hub,
		uploader:     uploader,
		logger:       logger,
		archiveDelay: 15 * time.Second,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.getMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	sets, err := s.setRepo.ListByMatch(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("list sets of match %d: %w", id, err)
	}
	match.Sets = make([]models.Set, 0, len(sets))
	for _, set := range sets {
		match.Sets = append(match.Sets, *set)
	}

	history, err := s.historyRepo.ListByMatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history of match %d: %w", id, err)
	}
	match.History = make([]models.MatchHistory, 0, len(history))
	for _, entry := range history {
		match.History = append(match.History, *entry)
	}

	if match.HomeTeamID != nil {
		if team, err := s.teamRepo.GetByID(ctx, *match.HomeTeamID); err == nil {
			match.HomeTeam = team
		}
	}
	if match.AwayTeamID != nil {
		if team, err := s.teamRepo.GetByID(ctx, *match.AwayTeamID); err == nil {
			match.AwayTeam = team
		}
	}
	if match.CourtFieldID != nil {
		if field, err := s.courtRepo.GetByID(ctx, *match.CourtFieldID); err == nil {
			match.CourtField = field
		}
	}
	return match, nil
}

func (s *matchService) getMatch(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, id)
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) StartMatch(ctx context.Context, id int, actor string) (*models.Match, error) {
	release, err := s.locks.Acquire(ctx, MatchLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var match *models.Match
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err = s.getMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusPending {
			return fmt.Errorf("%w: cannot start a %s match", ErrInvalidStateTransition, match.Status)
		}
		if match.CourtFieldID == nil || match.ScheduledAt == nil {
			return fmt.Errorf("%w: match %d", ErrMatchNotSchedulable, id)
		}
		if match.HomeTeamID == nil || match.AwayTeamID == nil {
			return fmt.Errorf("%w: match %d has unresolved team slots", ErrValidationFailed, id)
		}

		if err := s.matchRepo.UpdateStatus(ctx, exec, id, models.MatchStatusInProgress); err != nil {
			return err
		}
		if err := s.recordTransition(ctx, exec, match, models.MatchStatusInProgress, models.TransitionStart, actor, nil); err != nil {
			return err
		}

		match.GameScores.Status = models.GameScoresLive
		match.GameScores.CurrentSet = 1
		match.GameScores.CurrentGame = 1
		if err := s.matchRepo.UpdateGameScores(ctx, exec, id, match.GameScores); err != nil {
			return err
		}
		match.Status = models.MatchStatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match, brackets.EventMatchStarted, match)
	return match, nil
}

func (s *matchService) recordTransition(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, to models.MatchStatus, transition models.MatchTransition, actor string, reason *string) error {
	entry := &models.MatchHistory{
		MatchID:    match.ID,
		PrevStatus: match.Status,
		NewStatus:  to,
		Transition: transition,
		Actor:      actor,
		Reason:     reason,
		Ref:        uuid.NewString(),
	}
	if err := s.historyRepo.Append(ctx, exec, entry); err != nil {
		return fmt.Errorf("append match history: %w", err)
	}
	return nil
}

// setWins counts decided sets per side.
func setWins(sets []*models.Set) (home, away int) {
	for _, set := range sets {
		if set.WinnerSide == nil {
			continue
		}
		if *set.WinnerSide == models.SideHome {
			home++
		} else {
			away++
		}
	}
	return home, away
}

func majority(bestOf int) int { return bestOf/2 + 1 }

func (s *matchService) ApplyPoint(ctx context.Context, matchID int, side models.Side) (*models.Set, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side must be home or away", ErrValidationFailed)
	}

	release, err := s.locks.Acquire(ctx, MatchLockKey(matchID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		match   *models.Match
		current *models.Set
	)
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err = s.getMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusInProgress {
			return fmt.Errorf("%w: match %d is %s", ErrInvalidStateTransition, matchID, match.Status)
		}

		sets, err := s.setRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}

		created := false
		if n := len(sets); n > 0 && !sets[n-1].Decided() {
			current = sets[n-1]
		} else {
			homeWins, awayWins := setWins(sets)
			if homeWins >= majority(match.BestOf) || awayWins >= majority(match.BestOf) {
				return fmt.Errorf("%w: match %d already has a decided outcome", ErrValidationFailed, matchID)
			}
			current = &models.Set{
				MatchID: matchID,
				Type:    match.SetType,
				Number:  len(sets) + 1,
				History: models.PointHistory{},
			}
			created = true
		}

		if _, err := scoring.ApplyPoint(current, side, match.WithAdvantage, time.Now().UTC()); err != nil {
			return err
		}

		if created {
			if err := s.setRepo.Create(ctx, exec, current); err != nil {
				return err
			}
			sets = append(sets, current)
		} else if err := s.setRepo.Update(ctx, exec, current); err != nil {
			return err
		}

		if err := s.journalMutation(ctx, exec, current, models.SetLogKindPoint, side); err != nil {
			return err
		}
		return s.syncLiveScore(ctx, exec, match, sets, current)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match, brackets.EventScoreUpdated, current)
	if current.Decided() {
		s.broadcast(match, brackets.EventSetRecorded, current)
	}
	return current, nil
}

func (s *matchService) UndoPoint(ctx context.Context, matchID int) (*models.Set, error) {
	release, err := s.locks.Acquire(ctx, MatchLockKey(matchID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		match   *models.Match
		current *models.Set
	)
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err = s.getMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusInProgress {
			return fmt.Errorf("%w: match %d is %s", ErrInvalidStateTransition, matchID, match.Status)
		}

		sets, err := s.setRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		n := len(sets)
		if n == 0 {
			return scoring.ErrNothingToUndo
		}
		current = sets[n-1]
		// A decided set is immutable, undo cannot cross back into it.
		if current.Decided() {
			return fmt.Errorf("%w: set %d", ErrSetAlreadyDecided, current.Number)
		}
		if len(current.History) == 0 {
			return scoring.ErrNothingToUndo
		}

		removed := current.History[len(current.History)-1].Side
		if _, err := scoring.UndoLastPoint(current, match.WithAdvantage); err != nil {
			return err
		}
		if err := s.setRepo.Update(ctx, exec, current); err != nil {
			return err
		}
		if err := s.journalMutation(ctx, exec, current, models.SetLogKindUndo, removed); err != nil {
			return err
		}
		return s.syncLiveScore(ctx, exec, match, sets, current)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match, brackets.EventScoreUpdated, current)
	return current, nil
}

func (s *matchService) RecordSetResult(ctx context.Context, matchID int, input SetResultInput) (*models.Set, error) {
	if len(input.Points) == 0 {
		return nil, fmt.Errorf("%w: set result needs at least one point", ErrValidationFailed)
	}

	release, err := s.locks.Acquire(ctx, MatchLockKey(matchID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		match *models.Match
		set   *models.Set
	)
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err = s.getMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusInProgress {
			return fmt.Errorf("%w: match %d is %s", ErrInvalidStateTransition, matchID, match.Status)
		}

		sets, err := s.setRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		if n := len(sets); n > 0 && !sets[n-1].Decided() {
			return fmt.Errorf("%w: set %d is still open", ErrValidationFailed, sets[n-1].Number)
		}
		homeWins, awayWins := setWins(sets)
		if homeWins >= majority(match.BestOf) || awayWins >= majority(match.BestOf) {
			return fmt.Errorf("%w: match %d already has a decided outcome", ErrValidationFailed, matchID)
		}

		set = &models.Set{
			MatchID: matchID,
			Type:    match.SetType,
			Number:  len(sets) + 1,
			History: models.PointHistory{},
		}

		// Replay the submitted sequence point by point so the journal gets
		// a score snapshot after every rally.
		snapshots := make([]models.SetLog, 0, len(input.Points))
		at := time.Now().UTC()
		for _, side := range input.Points {
			if !side.Valid() {
				return fmt.Errorf("%w: invalid side %q in point sequence", ErrValidationFailed, side)
			}
			if _, err := scoring.ApplyPoint(set, side, match.WithAdvantage, at); err != nil {
				if errors.Is(err, scoring.ErrSetAlreadyDecided) {
					return fmt.Errorf("%w: point sequence continues past the decided set", ErrValidationFailed)
				}
				return err
			}
			snapshots = append(snapshots, models.SetLog{
				Kind:       models.SetLogKindPoint,
				Side:       side,
				HomeGames:  set.HomeGames,
				AwayGames:  set.AwayGames,
				HomePoints: set.HomePoints,
				AwayPoints: set.AwayPoints,
			})
		}
		if !set.Decided() {
			return fmt.Errorf("%w: point sequence does not decide the set", ErrValidationFailed)
		}

		if err := s.setRepo.Create(ctx, exec, set); err != nil {
			return err
		}
		for i := range snapshots {
			entry := snapshots[i]
			entry.SetID = set.ID
			entry.Seq = i + 1
			if err := s.setLogRepo.Append(ctx, exec, &entry); err != nil {
				return fmt.Errorf("journal set point %d: %w", i+1, err)
			}
		}

		sets = append(sets, set)
		return s.syncLiveScore(ctx, exec, match, sets, set)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match, brackets.EventSetRecorded, set)
	return set, nil
}

// journalMutation appends one set log row, numbering it after the rows
// already committed for the set.
func (s *matchService) journalMutation(ctx context.Context, exec repositories.SQLExecutor, set *models.Set, kind string, side models.Side) error {
	logs, err := s.setLogRepo.ListBySet(ctx, set.ID)
	if err != nil {
		return fmt.Errorf("list set logs: %w", err)
	}
	entry := &models.SetLog{
		SetID:      set.ID,
		Seq:        len(logs) + 1,
		Kind:       kind,
		Side:       side,
		HomeGames:  set.HomeGames,
		AwayGames:  set.AwayGames,
		HomePoints: set.HomePoints,
		AwayPoints: set.AwayPoints,
	}
	if err := s.setLogRepo.Append(ctx, exec, entry); err != nil {
		return fmt.Errorf("journal set mutation: %w", err)
	}
	return nil
}

// syncLiveScore writes the aggregate set score and the structured live
// scoring record back onto the match row.
func (s *matchService) syncLiveScore(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, sets []*models.Set, current *models.Set) error {
	homeWins, awayWins := setWins(sets)
	match.HomeScore, match.AwayScore = homeWins, awayWins
	if err := s.matchRepo.UpdateResult(ctx, exec, match.ID, match.Status, match.WinnerTeamID, homeWins, awayWins); err != nil {
		return err
	}

	match.GameScores.Status = models.GameScoresLive
	match.GameScores.CurrentSet = current.Number
	match.GameScores.CurrentGame = current.HomeGames + current.AwayGames + 1
	match.GameScores.History = current.History
	return s.matchRepo.UpdateGameScores(ctx, exec, match.ID, match.GameScores)
}

func (s *matchService) FinishMatch(ctx context.Context, id int, actor string) (*FinishResult, error) {
	release, err := s.locks.Acquire(ctx, MatchLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	// The player and group locks must outlive the transaction. A competing
	// finish reads ledger chains and group tables inside its own
	// transaction and cannot see this one's uncommitted rows, so releasing
	// before commit would let it compute from stale state.
	scopeKeys, err := s.finishScopeKeys(ctx, id)
	if err != nil {
		return nil, err
	}
	releaseScope, err := s.locks.AcquireAll(ctx, scopeKeys)
	if err != nil {
		return nil, err
	}
	defer releaseScope()

	result := &FinishResult{}
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.getMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		if match.Status != models.MatchStatusInProgress {
			return fmt.Errorf("%w: cannot finish a %s match", ErrInvalidStateTransition, match.Status)
		}

		sets, err := s.setRepo.ListByMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		homeWins, awayWins := setWins(sets)
		needed := majority(match.BestOf)
		if homeWins < needed && awayWins < needed {
			return fmt.Errorf("%w: match %d at %d-%d in a best of %d", ErrMatchNotDecided, id, homeWins, awayWins, match.BestOf)
		}

		winnerTeamID := *match.HomeTeamID
		if awayWins > homeWins {
			winnerTeamID = *match.AwayTeamID
		}

		if err := s.matchRepo.UpdateResult(ctx, exec, id, models.MatchStatusFinished, &winnerTeamID, homeWins, awayWins); err != nil {
			return err
		}
		if err := s.recordTransition(ctx, exec, match, models.MatchStatusFinished, models.TransitionFinish, actor, nil); err != nil {
			return err
		}

		match.GameScores.Status = models.GameScoresDone
		if err := s.matchRepo.UpdateGameScores(ctx, exec, id, match.GameScores); err != nil {
			return err
		}

		match.Status = models.MatchStatusFinished
		match.WinnerTeamID = &winnerTeamID
		match.HomeScore, match.AwayScore = homeWins, awayWins
		result.Match = match
		result.Sets = sets

		result.Awards, err = s.points.AwardForMatch(ctx, exec, match)
		if err != nil {
			return err
		}

		if match.GroupID != nil {
			result.Group, err = s.standings.RecomputeForMatch(ctx, exec, match)
		} else {
			result.Advancement, err = s.bracket.AdvanceWinner(ctx, exec, match)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishFinish(result)
	s.archiveScoreSheet(result)
	return result, nil
}

// finishScopeKeys lists every lock a finish must hold until its transaction
// commits: one per roster player whose ledger chain it extends, plus the
// group whose table it recomputes. Keys are sorted so concurrent finishes
// over overlapping rosters acquire them in one global order.
func (s *matchService) finishScopeKeys(ctx context.Context, id int) ([]string, error) {
	match, err := s.getMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, 8)
	if match.GroupID != nil {
		keys = append(keys, GroupLockKey(*match.GroupID))
	}
	for _, teamID := range []*int{match.HomeTeamID, match.AwayTeamID} {
		if teamID == nil {
			continue
		}
		playerIDs, err := s.teamRepo.ListPlayerIDs(ctx, nil, *teamID)
		if err != nil {
			return nil, fmt.Errorf("list players of team %d: %w", *teamID, err)
		}
		for _, playerID := range playerIDs {
			keys = append(keys, PlayerLockKey(playerID))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *matchService) publishFinish(result *FinishResult) {
	match := result.Match
	s.broadcast(match, brackets.EventMatchFinished, match)
	if result.Advancement != nil {
		s.broadcast(match, brackets.EventSlotResolved, result.Advancement)
	}
	if result.Group != nil {
		s.broadcast(match, brackets.EventStandingsUpdated, map[string]interface{}{
			"group_id":  result.Group.Group.ID,
			"finalized": result.Group.Group.Finalized,
			"standings": result.Group.Standings,
		})
		for _, res := range result.Group.Resolutions {
			s.broadcast(match, brackets.EventSlotResolved, res)
		}
	}
}

// archiveScoreSheet serializes the finished match and uploads it to object
// storage. Best effort: archival runs after commit and a failure only logs.
func (s *matchService) archiveScoreSheet(result *FinishResult) {
	if s.uploader == nil {
		return
	}
	match := result.Match
	sheet := map[string]interface{}{
		"match":  match,
		"sets":   result.Sets,
		"awards": result.Awards,
	}
	body, err := json.Marshal(sheet)
	if err != nil {
		s.logger.Error("score sheet marshal failed", slog.Int("match_id", match.ID), slog.Any("error", err))
		return
	}

	key := fmt.Sprintf("scoresheets/%d/%d.json", match.TournamentID, match.ID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.archiveDelay)
		defer cancel()
		if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
			s.logger.Error("score sheet upload failed", slog.String("key", key), slog.Any("error", err))
			return
		}
		s.logger.Info("score sheet archived", slog.String("key", key))
	}()
}

func (s *matchService) CancelMatch(ctx context.Context, id int, actor string, reason *string) (*models.Match, error) {
	release, err := s.locks.Acquire(ctx, MatchLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		match   *models.Match
		outcome *GroupOutcome
	)
	err = s.uow.Do(ctx, func(exec repositories.SQLExecutor) error {
		match, err = s.getMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		if match.Status.Terminal() {
			return fmt.Errorf("%w: cannot cancel a %s match", ErrInvalidStateTransition, match.Status)
		}

		if err := s.matchRepo.UpdateStatus(ctx, exec, id, models.MatchStatusCancelled); err != nil {
			return err
		}
		if err := s.recordTransition(ctx, exec, match, models.MatchStatusCancelled, models.TransitionCancel, actor, reason); err != nil {
			return err
		}

		match.GameScores.Status = models.GameScoresDropped
		if err := s.matchRepo.UpdateGameScores(ctx, exec, id, match.GameScores); err != nil {
			return err
		}
		match.Status = models.MatchStatusCancelled

		// A cancellation can be the group's last open match.
		if match.GroupID != nil {
			outcome, err = s.standings.RecomputeForMatch(ctx, exec, match)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match, brackets.EventMatchCancelled, match)
	if outcome != nil && outcome.Finalized {
		s.broadcast(match, brackets.EventStandingsUpdated, map[string]interface{}{
			"group_id":  outcome.Group.ID,
			"finalized": true,
			"standings": outcome.Standings,
		})
		for _, res := range outcome.Resolutions {
			s.broadcast(match, brackets.EventSlotResolved, res)
		}
	}
	return match, nil
}

func (s *matchService) broadcast(match *models.Match, event string, payload interface{}) {
	s.hub.BroadcastToRoom(brackets.TournamentRoom(match.TournamentID), event, payload)
}
