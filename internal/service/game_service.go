package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/engine"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/repository"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/rules"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/websocket"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request-rejection errors: client-correctable, never mutate state.
var (
	ErrGameNotFound    = errors.New("invalid game")
	ErrGameFinished    = errors.New("game already finished")
	ErrInvalidMove     = errors.New("invalid move")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrLiveGameExists  = errors.New("a game is already in progress")
	ErrInvalidOpponent = errors.New("invalid opponent")
	ErrInvalidSide     = errors.New("invalid side")
)

// ErrEngineUnavailable is the retryable collaborator-failure class: the
// engine process is unreachable or timed out. Any ply applied before
// the failure is already persisted.
var ErrEngineUnavailable = errors.New("engine temporarily unavailable")

const WinnerNone = "none"

// GameService owns the game lifecycle and the turn-resolution state
// machine. Moves for one game are strictly serialized by a per-game
// mutex around read-validate-append; the engine collaborator is called
// while holding only the submitting game's lock.
type GameService struct {
	gameRepo      repository.GameRepository
	userRepo      repository.UserRepository
	notifier      Notifier
	searcher      engine.MoveSearcher
	engineTimeout time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewGameService(gameRepo repository.GameRepository, userRepo repository.UserRepository, notifier Notifier, searcher engine.MoveSearcher, engineTimeout time.Duration) *GameService {
	return &GameService{
		gameRepo:      gameRepo,
		userRepo:      userRepo,
		notifier:      notifier,
		searcher:      searcher,
		engineTimeout: engineTimeout,
		locks:         make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing updates for one key. Game ids
// and host ids share the table; the key spaces never collide because
// both are random UUIDs.
func (s *GameService) lockFor(key uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

type CreateGameInput struct {
	HostSide     domain.Side
	OpponentType domain.OpponentType
	Opponent     string
}

// CreateGame creates a new game for the host. It fails with a conflict
// if the host already has a game in progress. When the opponent is the
// engine and the host plays black, the engine (as White) opens the
// game before the game record is persisted.
func (s *GameService) CreateGame(ctx context.Context, hostID uuid.UUID, input CreateGameInput) (*domain.Game, error) {
	if input.HostSide == "" {
		input.HostSide = domain.SideWhite
	}
	if input.HostSide != domain.SideWhite && input.HostSide != domain.SideBlack {
		return nil, ErrInvalidSide
	}

	host, err := s.userRepo.GetByID(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("loading host: %w", err)
	}

	var (
		opponentUser *domain.User
		engineDepth  int
	)
	switch input.OpponentType {
	case domain.OpponentUser:
		opponentUser, err = s.userRepo.GetByUsername(ctx, input.Opponent)
		if err != nil || opponentUser.ID == hostID {
			return nil, ErrInvalidOpponent
		}
	case domain.OpponentEngine:
		if s.searcher == nil {
			return nil, ErrEngineUnavailable
		}
		engineDepth, err = engine.DepthFromTag(input.Opponent)
		if err != nil {
			return nil, ErrInvalidOpponent
		}
	case domain.OpponentGuest:
		if input.Opponent == "" {
			input.Opponent = "guest"
		}
	default:
		return nil, ErrInvalidOpponent
	}

	// Serialize creation per host so two racing requests cannot both
	// pass the single-live-game check.
	hostLock := s.lockFor(hostID)
	hostLock.Lock()
	defer hostLock.Unlock()

	if _, err := s.gameRepo.GetLiveByHost(ctx, hostID); err == nil {
		return nil, ErrLiveGameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking live games: %w", err)
	}

	g := &domain.Game{
		ID:           uuid.New(),
		HostID:       hostID,
		HostSide:     input.HostSide,
		OpponentType: input.OpponentType,
		Opponent:     input.Opponent,
		Moves:        datatypes.JSONSlice[string]{},
		Result:       domain.ResultInProgress,
		Status:       domain.GameStatusInProgress,
		CreatedAt:    time.Now(),
	}

	// Engine plays White when the host chose black: it owes the
	// opening ply before the host ever moves.
	var opening *rules.State
	if input.OpponentType == domain.OpponentEngine && input.HostSide == domain.SideBlack {
		start, err := rules.Replay(nil)
		if err != nil {
			return nil, err
		}
		best, err := s.bestMove(ctx, start.FEN, engineDepth)
		if err != nil {
			return nil, err
		}
		opening, err = rules.Apply(g.Moves, best)
		if err != nil {
			log.Printf("game %s: engine opening move %s unplayable: %v", g.ID, best, err)
			return nil, ErrEngineUnavailable
		}
		g.Moves = append(g.Moves, best)
	}

	if err := s.gameRepo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	created := websocket.GameCreatedPayload{
		GameID:       g.ID.String(),
		Host:         host.Username,
		HostSide:     string(g.HostSide),
		OpponentType: string(g.OpponentType),
		Opponent:     g.Opponent,
	}
	s.notifier.SendToUser(hostID, string(websocket.MessageTypeGameCreated), created)
	if opponentUser != nil {
		s.notifier.SendToUser(opponentUser.ID, string(websocket.MessageTypeGameCreated), created)
	}
	if opening != nil {
		s.notifyMove(g, g.Moves[0], opening, domain.SideWhite, []uuid.UUID{hostID})
	}

	return g, nil
}

// MoveResult is what the submitter gets back: the accepted move, the
// engine's reply when one was owed, and the end-of-game outcome.
type MoveResult struct {
	GameID     uuid.UUID `json:"gameId"`
	Move       string    `json:"move"`
	EngineMove *string   `json:"engineMove,omitempty"`
	FEN        string    `json:"fen"`
	Ended      bool      `json:"ended"`
	Winner     string    `json:"winner"`
}

// turnPolicy parameterizes the single transition function with the
// opponent-type specifics: who hears about each ply, who hears about
// the end of the game, and whether a counter-move is owed.
type turnPolicy struct {
	participants    []uuid.UUID
	moveAudience    func(submitter uuid.UUID) []uuid.UUID
	engineReplyOwed bool
	engineDepth     int
}

func (s *GameService) policyFor(ctx context.Context, g *domain.Game) (*turnPolicy, error) {
	switch g.OpponentType {
	case domain.OpponentUser:
		opp, err := s.userRepo.GetByUsername(ctx, g.Opponent)
		if err != nil {
			return nil, fmt.Errorf("resolving opponent %q: %w", g.Opponent, err)
		}
		host, other := g.HostID, opp.ID
		return &turnPolicy{
			participants: []uuid.UUID{host, other},
			moveAudience: func(submitter uuid.UUID) []uuid.UUID {
				if submitter == host {
					return []uuid.UUID{other}
				}
				return []uuid.UUID{host}
			},
		}, nil

	case domain.OpponentEngine:
		depth, err := engine.DepthFromTag(g.Opponent)
		if err != nil {
			return nil, err
		}
		return &turnPolicy{
			participants:    []uuid.UUID{g.HostID},
			moveAudience:    func(uuid.UUID) []uuid.UUID { return []uuid.UUID{g.HostID} },
			engineReplyOwed: true,
			engineDepth:     depth,
		}, nil

	default: // guest: both sides share the host's session(s)
		return &turnPolicy{
			participants: []uuid.UUID{g.HostID},
			moveAudience: func(uuid.UUID) []uuid.UUID { return []uuid.UUID{g.HostID} },
		}, nil
	}
}

// SubmitMove runs one turn of the state machine: validate the ply,
// check turn ownership, append and persist, notify, evaluate the end
// of the game after every ply, and request the engine's counter-move
// when one is owed. Rejections mutate nothing.
func (s *GameService) SubmitMove(ctx context.Context, callerID, gameID uuid.UUID, from, to string) (*MoveResult, error) {
	lock := s.lockFor(gameID)
	lock.Lock()
	defer lock.Unlock()

	g, caller, err := s.loadForParticipant(ctx, callerID, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status == domain.GameStatusCompleted {
		return nil, ErrGameFinished
	}

	mv := from + to

	// An ENGINE game can be left waiting on the engine: a search failed
	// after the host's ply was already persisted. Resubmitting that ply
	// resumes the game by requesting the owed reply; any other move on
	// the engine's turn is the host reaching for the engine's pieces.
	if g.OpponentType == domain.OpponentEngine {
		cur, err := rules.Replay(g.Moves)
		if err != nil {
			return nil, fmt.Errorf("reconstructing game %s: %w", g.ID, err)
		}
		if cur.Turn != g.HostSide {
			if len(g.Moves) == 0 || g.Moves[len(g.Moves)-1] != mv {
				return nil, ErrNotYourTurn
			}
			return s.resumeEngineReply(ctx, caller.ID, g, cur, mv)
		}
	}

	state, err := rules.Apply(g.Moves, mv)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			return nil, ErrInvalidMove
		}
		return nil, fmt.Errorf("reconstructing game %s: %w", g.ID, err)
	}
	movedBy := state.Turn.Opposite()

	if g.OpponentType != domain.OpponentGuest && g.SideOf(caller.ID) != movedBy {
		return nil, ErrNotYourTurn
	}

	policy, err := s.policyFor(ctx, g)
	if err != nil {
		return nil, err
	}

	res := &MoveResult{GameID: g.ID, Move: mv, FEN: state.FEN, Winner: WinnerNone}

	if err := s.applyPly(ctx, g, mv, state, movedBy, policy.moveAudience(caller.ID), policy.participants); err != nil {
		return nil, err
	}
	if state.Terminal() {
		res.Ended = true
		res.Winner = winnerString(state)
		return res, nil
	}
	if !policy.engineReplyOwed {
		return res, nil
	}

	// The human ply is already persisted; an engine failure from here
	// on means "no reply yet", never a torn game.
	best, err := s.bestMove(ctx, state.FEN, policy.engineDepth)
	if err != nil {
		return nil, err
	}
	replyState, err := rules.Apply(g.Moves, best)
	if err != nil {
		log.Printf("game %s: engine move %s unplayable: %v", g.ID, best, err)
		return nil, ErrEngineUnavailable
	}
	if err := s.applyPly(ctx, g, best, replyState, state.Turn, policy.moveAudience(caller.ID), policy.participants); err != nil {
		return nil, err
	}

	res.EngineMove = &best
	res.FEN = replyState.FEN
	if replyState.Terminal() {
		res.Ended = true
		res.Winner = winnerString(replyState)
	}
	return res, nil
}

// resumeEngineReply settles an engine game stuck on the engine's turn.
// The caller's ply is already on the transcript, so only the owed
// counter-move is searched and applied; the result mirrors what the
// original submission would have returned.
func (s *GameService) resumeEngineReply(ctx context.Context, callerID uuid.UUID, g *domain.Game, cur *rules.State, mv string) (*MoveResult, error) {
	policy, err := s.policyFor(ctx, g)
	if err != nil {
		return nil, err
	}

	best, err := s.bestMove(ctx, cur.FEN, policy.engineDepth)
	if err != nil {
		return nil, err
	}
	replyState, err := rules.Apply(g.Moves, best)
	if err != nil {
		log.Printf("game %s: engine move %s unplayable: %v", g.ID, best, err)
		return nil, ErrEngineUnavailable
	}
	if err := s.applyPly(ctx, g, best, replyState, cur.Turn, policy.moveAudience(callerID), policy.participants); err != nil {
		return nil, err
	}

	res := &MoveResult{GameID: g.ID, Move: mv, EngineMove: &best, FEN: replyState.FEN, Winner: WinnerNone}
	if replyState.Terminal() {
		res.Ended = true
		res.Winner = winnerString(replyState)
	}
	return res, nil
}

// applyPly is the single parameterized transition: append the ply,
// complete the game if the position is terminal, persist, then notify.
// The terminal check runs here for every ply, so the checkmate re-check
// after an engine reply can never be skipped.
func (s *GameService) applyPly(ctx context.Context, g *domain.Game, mv string, state *rules.State, by domain.Side, moveAudience, endAudience []uuid.UUID) error {
	g.Moves = append(g.Moves, mv)
	if state.Terminal() {
		now := time.Now()
		g.Status = domain.GameStatusCompleted
		g.Result = state.Result()
		g.CompletedAt = &now
	}

	if err := s.gameRepo.Update(ctx, g); err != nil {
		return fmt.Errorf("persisting move: %w", err)
	}

	s.notifyMove(g, mv, state, by, moveAudience)
	if state.Terminal() {
		payload := websocket.GameEndedPayload{
			GameID: g.ID.String(),
			Winner: winnerString(state),
			Result: string(g.Result),
		}
		for _, userID := range endAudience {
			s.notifier.SendToUser(userID, string(websocket.MessageTypeGameEnded), payload)
		}
	}
	return nil
}

func (s *GameService) notifyMove(g *domain.Game, mv string, state *rules.State, by domain.Side, audience []uuid.UUID) {
	payload := websocket.MovePayload{
		GameID: g.ID.String(),
		From:   mv[:2],
		To:     mv[2:4],
		Move:   mv,
		FEN:    state.FEN,
		By:     string(by),
	}
	for _, userID := range audience {
		s.notifier.SendToUser(userID, string(websocket.MessageTypeMove), payload)
	}
}

func (s *GameService) bestMove(ctx context.Context, fen string, depth int) (string, error) {
	if s.searcher == nil {
		return "", ErrEngineUnavailable
	}
	engineCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	best, err := s.searcher.BestMove(engineCtx, fen, depth)
	if err != nil {
		log.Printf("engine search failed: %v", err)
		return "", ErrEngineUnavailable
	}
	return best, nil
}

func (s *GameService) evaluate(ctx context.Context, fen string, depth int) (engine.Score, error) {
	engineCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	defer cancel()

	score, err := s.searcher.Evaluate(engineCtx, fen, depth)
	if err != nil {
		log.Printf("engine evaluation failed: %v", err)
		return engine.Score{}, ErrEngineUnavailable
	}
	return score, nil
}

func winnerString(state *rules.State) string {
	if w := state.Winner(); w != nil {
		return string(*w)
	}
	return WinnerNone
}

// GameView is a game plus its reconstructed position.
type GameView struct {
	Game *domain.Game
	FEN  string
	Turn domain.Side
}

// GetGame returns a game visible to the caller. Visibility is scoped
// to participants: everyone else gets not-found, not forbidden.
func (s *GameService) GetGame(ctx context.Context, callerID, gameID uuid.UUID) (*GameView, error) {
	g, _, err := s.loadForParticipant(ctx, callerID, gameID)
	if err != nil {
		return nil, err
	}
	return s.view(g)
}

// GetLiveGame returns the caller's in-progress game, if any.
func (s *GameService) GetLiveGame(ctx context.Context, callerID uuid.UUID) (*GameView, error) {
	g, err := s.gameRepo.GetLiveByHost(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("loading live game: %w", err)
	}
	return s.view(g)
}

// GetCompletedGames returns the caller's finished games, newest first.
func (s *GameService) GetCompletedGames(ctx context.Context, callerID uuid.UUID, limit, offset int) ([]*domain.Game, error) {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("loading caller: %w", err)
	}
	return s.gameRepo.GetCompletedForUser(ctx, callerID, caller.Username, limit, offset)
}

// defaultScoreDepth is the search depth for position evaluation when
// the caller does not ask for one.
const defaultScoreDepth = 10

// MoveScore is the engine's evaluation after one ply, in centipawns
// from White's point of view. Score is nil when the position is a
// forced mate, which has no centipawn value.
type MoveScore struct {
	Move  string `json:"move"`
	Score *int   `json:"score"`
}

// Scores evaluates every position of a participant-visible game's
// transcript with the engine, one search per ply.
func (s *GameService) Scores(ctx context.Context, callerID, gameID uuid.UUID, depth int) ([]MoveScore, error) {
	g, _, err := s.loadForParticipant(ctx, callerID, gameID)
	if err != nil {
		return nil, err
	}
	if s.searcher == nil {
		return nil, ErrEngineUnavailable
	}
	if depth < engine.MinDepth {
		depth = defaultScoreDepth
	}
	if depth > engine.MaxDepth {
		depth = engine.MaxDepth
	}

	scores := make([]MoveScore, 0, len(g.Moves))
	for i, mv := range g.Moves {
		state, err := rules.Replay(g.Moves[:i+1])
		if err != nil {
			return nil, fmt.Errorf("reconstructing game %s: %w", g.ID, err)
		}

		score, err := s.evaluate(ctx, state.FEN, depth)
		if err != nil {
			return nil, err
		}

		entry := MoveScore{Move: mv}
		if score.Mate == 0 {
			// The engine scores for the side to move; flip to White's
			// point of view.
			cp := score.CP
			if state.Turn == domain.SideBlack {
				cp = -cp
			}
			entry.Score = &cp
		}
		scores = append(scores, entry)
	}
	return scores, nil
}

// PGN renders a participant-visible game's transcript as PGN.
func (s *GameService) PGN(ctx context.Context, callerID, gameID uuid.UUID) (string, error) {
	g, _, err := s.loadForParticipant(ctx, callerID, gameID)
	if err != nil {
		return "", err
	}
	return rules.PGN(g.Moves)
}

func (s *GameService) loadForParticipant(ctx context.Context, callerID, gameID uuid.UUID) (*domain.Game, *domain.User, error) {
	g, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, fmt.Errorf("loading game: %w", err)
	}

	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading caller: %w", err)
	}

	participant := callerID == g.HostID ||
		(g.OpponentType == domain.OpponentUser && caller.Username == g.Opponent)
	if !participant {
		return nil, nil, ErrGameNotFound
	}
	return g, caller, nil
}

func (s *GameService) view(g *domain.Game) (*GameView, error) {
	state, err := rules.Replay(g.Moves)
	if err != nil {
		return nil, fmt.Errorf("reconstructing game %s: %w", g.ID, err)
	}
	return &GameView{Game: g, FEN: state.FEN, Turn: state.Turn}, nil
}
