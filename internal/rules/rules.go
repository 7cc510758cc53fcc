// Package rules wraps the chess rules library behind the small surface
// the game service needs: transcript replay, move legality, outcome
// detection and notation export. It never mutates stored state.
package rules

import (
	"errors"
	"fmt"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/notnil/chess"
)

var (
	// ErrIllegalMove covers both unparseable and illegal candidate
	// moves; callers surface them uniformly as "invalid move".
	ErrIllegalMove = errors.New("illegal move")
)

// State is a snapshot of a reconstructed board position.
type State struct {
	FEN     string
	Turn    domain.Side
	Outcome chess.Outcome
	Method  chess.Method
}

// Terminal reports whether the position ends the game.
func (s *State) Terminal() bool {
	return s.Outcome != chess.NoOutcome
}

// Result maps the position's outcome onto the game result enum.
func (s *State) Result() domain.GameResult {
	switch s.Outcome {
	case chess.WhiteWon:
		return domain.ResultWhiteWins
	case chess.BlackWon:
		return domain.ResultBlackWins
	case chess.Draw:
		return domain.ResultDraw
	default:
		return domain.ResultInProgress
	}
}

// Winner returns the mating side, or nil for draws and live games.
func (s *State) Winner() *domain.Side {
	var w domain.Side
	switch s.Outcome {
	case chess.WhiteWon:
		w = domain.SideWhite
	case chess.BlackWon:
		w = domain.SideBlack
	default:
		return nil
	}
	return &w
}

func replay(history []string) (*chess.Game, error) {
	game := chess.NewGame(chess.UseNotation(chess.UCINotation{}))
	for i, m := range history {
		if err := game.MoveStr(m); err != nil {
			return nil, fmt.Errorf("replaying move %d (%s): %w", i+1, m, err)
		}
	}
	return game, nil
}

func snapshot(game *chess.Game) *State {
	turn := domain.SideWhite
	if game.Position().Turn() == chess.Black {
		turn = domain.SideBlack
	}
	return &State{
		FEN:     game.Position().String(),
		Turn:    turn,
		Outcome: game.Outcome(),
		Method:  game.Method(),
	}
}

// Replay reconstructs the position after the given transcript. An error
// means the stored transcript is corrupt, not a client mistake.
func Replay(history []string) (*State, error) {
	game, err := replay(history)
	if err != nil {
		return nil, err
	}
	return snapshot(game), nil
}

// Apply replays the transcript and plays one candidate ply on top of
// it. A malformed or illegal candidate yields ErrIllegalMove.
func Apply(history []string, candidate string) (*State, error) {
	game, err := replay(history)
	if err != nil {
		return nil, err
	}
	if err := game.MoveStr(candidate); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, candidate)
	}
	return snapshot(game), nil
}

// IsLegal reports whether candidate is playable after history.
func IsLegal(history []string, candidate string) bool {
	_, err := Apply(history, candidate)
	return err == nil
}

// SideToMove derives the color to move from the replayed position.
// For a valid transcript this equals white-on-even half-move parity.
func SideToMove(history []string) (domain.Side, error) {
	state, err := Replay(history)
	if err != nil {
		return "", err
	}
	return state.Turn, nil
}

// PGN renders the transcript in portable game notation.
func PGN(history []string) (string, error) {
	game, err := replay(history)
	if err != nil {
		return "", err
	}
	return game.String(), nil
}
