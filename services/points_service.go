package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// PointsService awards ranking points and coins to every roster player of a
// finished match. The unique index on (match_id, round, player_id) makes the
// whole operation idempotent: a rerun finds its rows already present and
// skips both the award and the ledger entry.
type PointsService interface {
	AwardForMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) ([]*models.PlayerMatchPoint, error)
}

// roundAward is the per-side outcome of config resolution.
type roundAward struct {
	Point  int
	Coin   int
	Source string
	ID     int
}

type pointsService struct {
	pointConfigRepo repositories.PointConfigRepository
	awardRepo       repositories.PlayerMatchPointRepository
	teamRepo        repositories.TeamRepository
	ledger          LedgerService
	logger          *slog.Logger
}

func NewPointsService(
	pointConfigRepo repositories.PointConfigRepository,
	awardRepo repositories.PlayerMatchPointRepository,
	teamRepo repositories.TeamRepository,
	ledger LedgerService,
	logger *slog.Logger,
) PointsService {
	return &pointsService{
		pointConfigRepo: pointConfigRepo,
		awardRepo:       awardRepo,
		teamRepo:        teamRepo,
		ledger:          ledger,
		logger:          logger,
	}
}

func (s *pointsService) AwardForMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) ([]*models.PlayerMatchPoint, error) {
	if match.WinnerTeamID == nil {
		return nil, fmt.Errorf("%w: match %d has no winner", ErrValidationFailed, match.ID)
	}
	if match.HomeTeamID == nil || match.AwayTeamID == nil {
		return nil, fmt.Errorf("%w: match %d has unresolved team slots", ErrValidationFailed, match.ID)
	}

	winAward, loseAward, err := s.resolveConfig(ctx, match)
	if err != nil {
		return nil, err
	}

	awards := make([]*models.PlayerMatchPoint, 0, 4)
	for _, teamID := range []int{*match.HomeTeamID, *match.AwayTeamID} {
		award := loseAward
		if teamID == *match.WinnerTeamID {
			award = winAward
		}

		playerIDs, err := s.teamRepo.ListPlayerIDs(ctx, exec, teamID)
		if err != nil {
			return nil, fmt.Errorf("list players of team %d: %w", teamID, err)
		}
		sort.Ints(playerIDs)

		for _, playerID := range playerIDs {
			row, err := s.awardPlayer(ctx, exec, match, teamID, playerID, award)
			if err != nil {
				return nil, err
			}
			if row != nil {
				awards = append(awards, row)
			}
		}
	}
	return awards, nil
}

// resolveConfig picks the point/coin configuration for the match's round.
// Tournament-level flat configuration wins over the match-level win/lose
// table; the default match-level row is the last resort.
func (s *pointsService) resolveConfig(ctx context.Context, match *models.Match) (win, lose roundAward, err error) {
	tournamentCfg, err := s.pointConfigRepo.GetTournamentMatchPoint(ctx, match.TournamentID, match.Round)
	if err == nil {
		flat := roundAward{
			Point:  tournamentCfg.Point,
			Coin:   tournamentCfg.Coin,
			Source: models.PointConfigSourceTournament,
			ID:     tournamentCfg.ID,
		}
		return flat, flat, nil
	}
	if !errors.Is(err, repositories.ErrTournamentMatchPointNotFound) {
		return roundAward{}, roundAward{}, fmt.Errorf("resolve tournament point config: %w", err)
	}

	matchCfg, err := s.pointConfigRepo.GetMatchPointByRound(ctx, match.Round)
	source := models.PointConfigSourceMatch
	if errors.Is(err, repositories.ErrMatchPointNotFound) {
		matchCfg, err = s.pointConfigRepo.GetDefaultMatchPoint(ctx)
		source = models.PointConfigSourceDefault
		if errors.Is(err, repositories.ErrMatchPointNotFound) {
			return roundAward{}, roundAward{}, fmt.Errorf("%w: round %d", ErrPointConfigNotFound, match.Round)
		}
	}
	if err != nil {
		return roundAward{}, roundAward{}, fmt.Errorf("resolve match point config: %w", err)
	}

	win = roundAward{Point: matchCfg.WinPoint, Coin: matchCfg.WinCoin, Source: source, ID: matchCfg.ID}
	lose = roundAward{Point: matchCfg.LosePoint, Coin: matchCfg.LoseCoin, Source: source, ID: matchCfg.ID}
	return win, lose, nil
}

// awardPlayer writes one award row and its ledger entry. A duplicate award
// is recovered silently: the row already exists, so neither points nor
// coins are written again. Returns nil on a skipped duplicate.
func (s *pointsService) awardPlayer(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, teamID, playerID int, award roundAward) (*models.PlayerMatchPoint, error) {
	row := &models.PlayerMatchPoint{
		MatchID:      match.ID,
		Round:        match.Round,
		PlayerID:     playerID,
		TeamID:       teamID,
		Point:        award.Point,
		Coin:         award.Coin,
		ConfigSource: award.Source,
		ConfigID:     award.ID,
	}

	err := s.awardRepo.Create(ctx, exec, row)
	if errors.Is(err, repositories.ErrPlayerMatchPointDuplicate) {
		s.logger.Warn("duplicate point award skipped",
			slog.Int("match_id", match.ID),
			slog.Int("round", match.Round),
			slog.Int("player_id", playerID),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create point award for player %d: %w", playerID, err)
	}

	if award.Coin != 0 {
		ref := fmt.Sprintf("match:%d:round:%d", match.ID, match.Round)
		if _, err := s.ledger.Append(ctx, exec, playerID, award.Coin, models.CoinSourceMatch, ref); err != nil {
			return nil, fmt.Errorf("append coins for player %d: %w", playerID, err)
		}
	}
	return row, nil
}
