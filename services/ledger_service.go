package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// LedgerService maintains each player's append-only coin ledger. Rows are
// chained: every Append reads the player's latest after balance and writes
// before = that value, after = before + delta.
type LedgerService interface {
	// Append writes one chained ledger entry. The caller must hold the
	// player's lock (PlayerLockKey) until the transaction behind exec
	// commits: the chain read cannot see rows another open transaction
	// has not committed yet, so releasing earlier would let a concurrent
	// writer fork the chain.
	Append(ctx context.Context, exec repositories.SQLExecutor, playerID, delta int, source models.CoinSource, ref string) (*models.CoinLog, error)
	Balance(ctx context.Context, playerID int) (int, error)
	ListByPlayer(ctx context.Context, playerID, limit, offset int) ([]*models.CoinLog, error)
}

type ledgerService struct {
	coinLogRepo repositories.CoinLogRepository
	playerRepo  repositories.PlayerRepository
	logger      *slog.Logger
}

func NewLedgerService(coinLogRepo repositories.CoinLogRepository, playerRepo repositories.PlayerRepository, logger *slog.Logger) LedgerService {
	return &ledgerService{
		coinLogRepo: coinLogRepo,
		playerRepo:  playerRepo,
		logger:      logger,
	}
}

func (s *ledgerService) requirePlayer(ctx context.Context, playerID int) error {
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("%w: id %d", ErrPlayerNotFound, playerID)
		}
		return err
	}
	return nil
}

func (s *ledgerService) Append(ctx context.Context, exec repositories.SQLExecutor, playerID, delta int, source models.CoinSource, ref string) (*models.CoinLog, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown coin source %q", ErrValidationFailed, source)
	}

	before := 0
	latest, err := s.coinLogRepo.GetLatestByPlayer(ctx, exec, playerID)
	switch {
	case err == nil:
		before = latest.After
	case errors.Is(err, repositories.ErrCoinLogNotFound):
		// First entry for this player, chain starts at zero.
	default:
		return nil, fmt.Errorf("read latest coin log for player %d: %w", playerID, err)
	}

	after := before + delta
	// Match awards may not be blocked by balance; every other source is a
	// real spend or grant and must not drive the balance negative.
	if after < 0 && source != models.CoinSourceMatch {
		return nil, fmt.Errorf("%w: player %d balance %d, delta %d", ErrInsufficientBalance, playerID, before, delta)
	}

	direction := models.CoinDirectionCredit
	if delta < 0 {
		direction = models.CoinDirectionDebit
	}

	entry := &models.CoinLog{
		PlayerID:  playerID,
		Delta:     delta,
		Direction: direction,
		Source:    source,
		Ref:       ref,
		Before:    before,
		After:     after,
	}
	if err := s.coinLogRepo.Append(ctx, exec, entry); err != nil {
		return nil, fmt.Errorf("append coin log for player %d: %w", playerID, err)
	}

	s.logger.Debug("coin ledger entry appended",
		slog.Int("player_id", playerID),
		slog.Int("delta", delta),
		slog.Int("after", after),
		slog.String("source", string(source)),
		slog.String("ref", ref),
	)
	return entry, nil
}

func (s *ledgerService) Balance(ctx context.Context, playerID int) (int, error) {
	if err := s.requirePlayer(ctx, playerID); err != nil {
		return 0, err
	}
	latest, err := s.coinLogRepo.GetLatestByPlayer(ctx, nil, playerID)
	if errors.Is(err, repositories.ErrCoinLogNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance for player %d: %w", playerID, err)
	}
	return latest.After, nil
}

func (s *ledgerService) ListByPlayer(ctx context.Context, playerID, limit, offset int) ([]*models.CoinLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.coinLogRepo.ListByPlayer(ctx, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list coin logs for player %d: %w", playerID, err)
	}
	return entries, nil
}
