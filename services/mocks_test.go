package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alyeaaah/seventy-five-engine/brackets"
	"github.com/alyeaaah/seventy-five-engine/models"
	"github.com/alyeaaah/seventy-five-engine/repositories"
)

// In-memory repository fakes. They run every service under test without a
// database; the unit of work hands them a nil executor.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUOW runs the unit of work against the in-memory repositories. onDo,
// when set, fires while the transaction is considered open, letting tests
// observe what a concurrent caller would see mid-commit.
type fakeUOW struct {
	onDo func()
}

func (u *fakeUOW) Do(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if u.onDo != nil {
		u.onDo()
	}
	return fn(nil)
}

type memMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *memMatchRepo) add(m *models.Match) *models.Match {
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
	} else if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	if m.State == "" {
		m.State = models.StateActive
	}
	r.matches[m.ID] = m
	return m
}

func (r *memMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.add(match)
	return nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *memMatchRepo) GetByRoundSeed(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, category string, round, seedIndex int) (*models.Match, error) {
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.Category == category &&
			m.Round == round && m.SeedIndex == seedIndex && m.GroupID == nil {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *memMatchRepo) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memMatchRepo) ListByGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int, status *models.MatchStatus) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.GroupID == nil || *m.GroupID != groupID {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memMatchRepo) ListFeedingFromGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		feeds := (m.HomeFeedGroupID != nil && *m.HomeFeedGroupID == groupID) ||
			(m.AwayFeedGroupID != nil && *m.AwayFeedGroupID == groupID)
		if feeds {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memMatchRepo) ListFeedingFromGroupIndex(ctx context.Context, exec repositories.SQLExecutor, tournamentID, groupIndex int) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		feeds := (m.HomeFeedGroupIndex != nil && *m.HomeFeedGroupIndex == groupIndex) ||
			(m.AwayFeedGroupIndex != nil && *m.AwayFeedGroupIndex == groupIndex)
		if feeds {
			copied := *m
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *memMatchRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus, winnerTeamID *int, homeScore, awayScore int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	m.WinnerTeamID = winnerTeamID
	m.HomeScore = homeScore
	m.AwayScore = awayScore
	return nil
}

func (r *memMatchRepo) UpdateGameScores(ctx context.Context, exec repositories.SQLExecutor, id int, scores models.GameScores) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.GameScores = scores
	return nil
}

func (r *memMatchRepo) FillSlot(ctx context.Context, exec repositories.SQLExecutor, matchID int, side models.Side, teamID int) (bool, error) {
	m, ok := r.matches[matchID]
	if !ok {
		return false, repositories.ErrMatchNotFound
	}
	if side == models.SideHome {
		if m.HomeTeamID != nil {
			return false, nil
		}
		m.HomeTeamID = &teamID
		return true, nil
	}
	if m.AwayTeamID != nil {
		return false, nil
	}
	m.AwayTeamID = &teamID
	return true, nil
}

type memSetRepo struct {
	sets   map[int]*models.Set
	nextID int
}

func newMemSetRepo() *memSetRepo {
	return &memSetRepo{sets: make(map[int]*models.Set), nextID: 1}
}

func (r *memSetRepo) Create(ctx context.Context, exec repositories.SQLExecutor, set *models.Set) error {
	for _, existing := range r.sets {
		if existing.MatchID == set.MatchID && existing.Number == set.Number {
			return repositories.ErrSetNumberConflict
		}
	}
	set.ID = r.nextID
	r.nextID++
	copied := *set
	r.sets[set.ID] = &copied
	return nil
}

func (r *memSetRepo) Update(ctx context.Context, exec repositories.SQLExecutor, set *models.Set) error {
	stored, ok := r.sets[set.ID]
	if !ok || stored.WinnerSide != nil {
		return repositories.ErrSetNotFound
	}
	copied := *set
	r.sets[set.ID] = &copied
	return nil
}

func (r *memSetRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Set, error) {
	s, ok := r.sets[id]
	if !ok {
		return nil, repositories.ErrSetNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memSetRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Set, error) {
	out := make([]*models.Set, 0)
	for id := 1; id < r.nextID; id++ {
		s, ok := r.sets[id]
		if !ok || s.MatchID != matchID {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

type memSetLogRepo struct {
	logs []*models.SetLog
}

func (r *memSetLogRepo) Append(ctx context.Context, exec repositories.SQLExecutor, log *models.SetLog) error {
	for _, existing := range r.logs {
		if existing.SetID == log.SetID && existing.Seq == log.Seq {
			return repositories.ErrSetLogSeqConflict
		}
	}
	log.ID = len(r.logs) + 1
	copied := *log
	r.logs = append(r.logs, &copied)
	return nil
}

func (r *memSetLogRepo) ListBySet(ctx context.Context, setID int) ([]*models.SetLog, error) {
	out := make([]*models.SetLog, 0)
	for _, l := range r.logs {
		if l.SetID == setID {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memHistoryRepo struct {
	entries []*models.MatchHistory
}

func (r *memHistoryRepo) Append(ctx context.Context, exec repositories.SQLExecutor, entry *models.MatchHistory) error {
	entry.ID = len(r.entries) + 1
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memHistoryRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchHistory, error) {
	out := make([]*models.MatchHistory, 0)
	for _, e := range r.entries {
		if e.MatchID == matchID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memTeamRepo struct {
	teams   map[int]*models.Team
	rosters map[int][]int
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{teams: make(map[int]*models.Team), rosters: make(map[int][]int)}
}

func (r *memTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTeamRepo) ListPlayerIDs(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]int, error) {
	return append([]int(nil), r.rosters[teamID]...), nil
}

type memPlayerRepo struct {
	players map[int]*models.Player
}

func (r *memPlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *p
	return &copied, nil
}

type memCourtFieldRepo struct {
	fields map[int]*models.CourtField
}

func (r *memCourtFieldRepo) GetByID(ctx context.Context, id int) (*models.CourtField, error) {
	f, ok := r.fields[id]
	if !ok {
		return nil, repositories.ErrCourtFieldNotFound
	}
	copied := *f
	return &copied, nil
}

type memTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func (r *memTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

type memPointConfigRepo struct {
	tournament map[[2]int]*models.TournamentMatchPoint
	byRound    map[int]*models.MatchPoint
	fallback   *models.MatchPoint
}

func newMemPointConfigRepo() *memPointConfigRepo {
	return &memPointConfigRepo{
		tournament: make(map[[2]int]*models.TournamentMatchPoint),
		byRound:    make(map[int]*models.MatchPoint),
	}
}

func (r *memPointConfigRepo) GetMatchPointByRound(ctx context.Context, round int) (*models.MatchPoint, error) {
	cfg, ok := r.byRound[round]
	if !ok {
		return nil, repositories.ErrMatchPointNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (r *memPointConfigRepo) GetDefaultMatchPoint(ctx context.Context) (*models.MatchPoint, error) {
	if r.fallback == nil {
		return nil, repositories.ErrMatchPointNotFound
	}
	copied := *r.fallback
	return &copied, nil
}

func (r *memPointConfigRepo) GetTournamentMatchPoint(ctx context.Context, tournamentID, round int) (*models.TournamentMatchPoint, error) {
	cfg, ok := r.tournament[[2]int{tournamentID, round}]
	if !ok {
		return nil, repositories.ErrTournamentMatchPointNotFound
	}
	copied := *cfg
	return &copied, nil
}

type memAwardRepo struct {
	awards []*models.PlayerMatchPoint
}

func (r *memAwardRepo) Create(ctx context.Context, exec repositories.SQLExecutor, award *models.PlayerMatchPoint) error {
	for _, existing := range r.awards {
		if existing.MatchID == award.MatchID && existing.Round == award.Round && existing.PlayerID == award.PlayerID {
			return repositories.ErrPlayerMatchPointDuplicate
		}
	}
	award.ID = len(r.awards) + 1
	copied := *award
	r.awards = append(r.awards, &copied)
	return nil
}

func (r *memAwardRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.PlayerMatchPoint, error) {
	out := make([]*models.PlayerMatchPoint, 0)
	for _, a := range r.awards {
		if a.MatchID == matchID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memAwardRepo) ListByPlayer(ctx context.Context, playerID int) ([]*models.PlayerMatchPoint, error) {
	out := make([]*models.PlayerMatchPoint, 0)
	for _, a := range r.awards {
		if a.PlayerID == playerID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memCoinLogRepo struct {
	entries []*models.CoinLog
}

func (r *memCoinLogRepo) Append(ctx context.Context, exec repositories.SQLExecutor, entry *models.CoinLog) error {
	entry.ID = len(r.entries) + 1
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memCoinLogRepo) GetLatestByPlayer(ctx context.Context, exec repositories.SQLExecutor, playerID int) (*models.CoinLog, error) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].PlayerID == playerID {
			copied := *r.entries[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrCoinLogNotFound
}

func (r *memCoinLogRepo) ListByPlayer(ctx context.Context, playerID int, limit, offset int) ([]*models.CoinLog, error) {
	out := make([]*models.CoinLog, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].PlayerID == playerID {
			copied := *r.entries[i]
			out = append(out, &copied)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memGroupRepo struct {
	groups map[int]*models.TournamentGroup
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{groups: make(map[int]*models.TournamentGroup)}
}

func (r *memGroupRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentGroup, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *memGroupRepo) GetByTournamentAndOrdinal(ctx context.Context, tournamentID, ordinal int) (*models.TournamentGroup, error) {
	for _, g := range r.groups {
		if g.TournamentID == tournamentID && g.Ordinal == ordinal {
			copied := *g
			return &copied, nil
		}
	}
	return nil, repositories.ErrGroupNotFound
}

func (r *memGroupRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	out := make([]*models.TournamentGroup, 0)
	for _, g := range r.groups {
		if g.TournamentID == tournamentID {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memGroupRepo) ListUnfinalized(ctx context.Context) ([]*models.TournamentGroup, error) {
	out := make([]*models.TournamentGroup, 0)
	for _, g := range r.groups {
		if !g.Finalized {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memGroupRepo) SetFinalized(ctx context.Context, exec repositories.SQLExecutor, groupID int, finalized bool) error {
	g, ok := r.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.Finalized = finalized
	return nil
}

type memGroupTeamRepo struct {
	byGroup map[int][]*models.TournamentGroupTeam
}

func newMemGroupTeamRepo() *memGroupTeamRepo {
	return &memGroupTeamRepo{byGroup: make(map[int][]*models.TournamentGroupTeam)}
}

func (r *memGroupTeamRepo) ListByGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int) ([]*models.TournamentGroupTeam, error) {
	out := make([]*models.TournamentGroupTeam, 0)
	for _, t := range r.byGroup[groupID] {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memGroupTeamRepo) GetByGroupAndPosition(ctx context.Context, exec repositories.SQLExecutor, groupID, position int) (*models.TournamentGroupTeam, error) {
	for _, t := range r.byGroup[groupID] {
		if t.Position == position {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrGroupTeamNotFound
}

func (r *memGroupTeamRepo) ReplaceForGroup(ctx context.Context, exec repositories.SQLExecutor, groupID int, teams []*models.TournamentGroupTeam) error {
	stored := make([]*models.TournamentGroupTeam, 0, len(teams))
	for i, t := range teams {
		t.GroupID = groupID
		t.ID = i + 1
		copied := *t
		stored = append(stored, &copied)
	}
	r.byGroup[groupID] = stored
	return nil
}

// fixture wires every service over the in-memory fakes.
type fixture struct {
	matchRepo       *memMatchRepo
	setRepo         *memSetRepo
	setLogRepo      *memSetLogRepo
	historyRepo     *memHistoryRepo
	teamRepo        *memTeamRepo
	playerRepo      *memPlayerRepo
	courtRepo       *memCourtFieldRepo
	tournamentRepo  *memTournamentRepo
	pointConfigRepo *memPointConfigRepo
	awardRepo       *memAwardRepo
	coinLogRepo     *memCoinLogRepo
	groupRepo       *memGroupRepo
	groupTeamRepo   *memGroupTeamRepo

	locks *LockManager
	hub   *brackets.Hub
	uow   *fakeUOW

	ledger    LedgerService
	points    PointsService
	bracket   BracketService
	standings StandingsService
	matches   MatchService
}

func newFixture() *fixture {
	f := &fixture{
		matchRepo:       newMemMatchRepo(),
		setRepo:         newMemSetRepo(),
		setLogRepo:      &memSetLogRepo{},
		historyRepo:     &memHistoryRepo{},
		teamRepo:        newMemTeamRepo(),
		playerRepo:      &memPlayerRepo{players: make(map[int]*models.Player)},
		courtRepo:       &memCourtFieldRepo{fields: make(map[int]*models.CourtField)},
		tournamentRepo:  &memTournamentRepo{tournaments: make(map[int]*models.Tournament)},
		pointConfigRepo: newMemPointConfigRepo(),
		awardRepo:       &memAwardRepo{},
		coinLogRepo:     &memCoinLogRepo{},
		groupRepo:       newMemGroupRepo(),
		groupTeamRepo:   newMemGroupTeamRepo(),
	}

	logger := testLogger()
	f.locks = NewLockManager(time.Second)
	f.hub = brackets.NewHub(logger)
	f.uow = &fakeUOW{}

	f.ledger = NewLedgerService(f.coinLogRepo, f.playerRepo, logger)
	f.points = NewPointsService(f.pointConfigRepo, f.awardRepo, f.teamRepo, f.ledger, logger)
	f.bracket = NewBracketService(f.matchRepo, f.groupRepo, f.groupTeamRepo, f.tournamentRepo, f.uow, f.locks, f.hub, logger)
	f.standings = NewStandingsService(f.matchRepo, f.setRepo, f.groupRepo, f.groupTeamRepo, f.bracket, f.uow, f.locks, f.hub, logger)
	f.matches = NewMatchService(
		f.matchRepo, f.setRepo, f.setLogRepo, f.historyRepo, f.teamRepo, f.courtRepo,
		f.points, f.bracket, f.standings,
		f.uow, f.locks, f.hub, nil, logger,
	)
	return f
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

// addTeam registers a team with its roster and players.
func (f *fixture) addTeam(teamID int, playerIDs ...int) {
	f.teamRepo.teams[teamID] = &models.Team{ID: teamID, State: models.StateActive}
	f.teamRepo.rosters[teamID] = playerIDs
	for _, pid := range playerIDs {
		f.playerRepo.players[pid] = &models.Player{ID: pid, State: models.StateActive}
	}
}

// addDefaultPointConfig installs a fallback win/lose configuration.
func (f *fixture) addDefaultPointConfig(winPoint, losePoint, winCoin, loseCoin int) {
	f.pointConfigRepo.fallback = &models.MatchPoint{
		ID: 99, WinPoint: winPoint, LosePoint: losePoint,
		WinCoin: winCoin, LoseCoin: loseCoin, IsDefault: true,
	}
}

// addLiveMatch seeds a started knockout match between two teams.
func (f *fixture) addLiveMatch(id, tournamentID, homeTeam, awayTeam, round, seed int) *models.Match {
	return f.matchRepo.add(&models.Match{
		ID:            id,
		TournamentID:  tournamentID,
		CourtFieldID:  intPtr(1),
		ScheduledAt:   timePtr(time.Now()),
		HomeTeamID:    intPtr(homeTeam),
		AwayTeamID:    intPtr(awayTeam),
		GameScores:    models.NewGameScores(),
		Round:         round,
		SeedIndex:     seed,
		Category:      "open",
		BestOf:        3,
		SetType:       models.SetTypeShort,
		WithAdvantage: false,
		Status:        models.MatchStatusInProgress,
	})
}

// winSetPoints returns a point sequence where side wins a short set to four
// games without dropping a game (16 straight rally wins).
func winSetPoints(side models.Side) []models.Side {
	points := make([]models.Side, 0, 16)
	for i := 0; i < 16; i++ {
		points = append(points, side)
	}
	return points
}
