// Package engine wraps the external UCI move-search process the game
// service consults for engine opponents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MoveSearcher is the collaborator interface injected into the game
// service. One shared instance serves all games; implementations must
// be safe for concurrent callers.
type MoveSearcher interface {
	BestMove(ctx context.Context, fen string, depth int) (string, error)
	Evaluate(ctx context.Context, fen string, depth int) (Score, error)
}

// Score is a search evaluation from the point of view of the side to
// move in the analyzed position.
type Score struct {
	CP   int // centipawns; meaningless when Mate is set
	Mate int // moves until mate when nonzero, negative when being mated
}

const (
	strengthTagPrefix = "engine_"

	MinDepth = 1
	MaxDepth = 20
)

var ErrInvalidStrengthTag = errors.New("invalid engine strength tag")

// DepthFromTag extracts the search depth from an opponent strength tag
// such as "engine_4".
func DepthFromTag(tag string) (int, error) {
	raw, ok := strings.CutPrefix(tag, strengthTagPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrengthTag, tag)
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < MinDepth || depth > MaxDepth {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrengthTag, tag)
	}
	return depth, nil
}

// StrengthTag renders a depth back into the stored opponent tag.
func StrengthTag(depth int) string {
	return strengthTagPrefix + strconv.Itoa(depth)
}
