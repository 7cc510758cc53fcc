package rules_test

import (
	"testing"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/rules"
	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Fool's mate: the fastest possible checkmate, Black mates on move two.
var foolsMate = []string{"f2f3", "e7e5", "g2g4", "d8h4"}

// Scholar's mate: White mates on f7 on move four.
var scholarsMate = []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}

// Loyd's ten-move stalemate.
var loydStalemate = []string{
	"e2e3", "a7a5",
	"d1h5", "a8a6",
	"h5a5", "h7h5",
	"a5c7", "a6h6",
	"h2h4", "f7f6",
	"c7d7", "e8f7",
	"d7b7", "d8d3",
	"b7b8", "d3h7",
	"b8c8", "f7g6",
	"c8e6",
}

func TestReplayEmptyTranscript(t *testing.T) {
	state, err := rules.Replay(nil)
	require.NoError(t, err)

	assert.Equal(t, startFEN, state.FEN)
	assert.Equal(t, domain.SideWhite, state.Turn)
	assert.False(t, state.Terminal())
	assert.Equal(t, domain.ResultInProgress, state.Result())
	assert.Nil(t, state.Winner())
}

func TestReplayAlternatesTurn(t *testing.T) {
	state, err := rules.Replay([]string{"e2e4"})
	require.NoError(t, err)
	assert.Equal(t, domain.SideBlack, state.Turn)

	state, err = rules.Replay([]string{"e2e4", "e7e5"})
	require.NoError(t, err)
	assert.Equal(t, domain.SideWhite, state.Turn)
}

func TestReplayCorruptTranscript(t *testing.T) {
	_, err := rules.Replay([]string{"e2e4", "e2e4"})
	require.Error(t, err)

	_, err = rules.Replay([]string{"not-a-move"})
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		history   []string
		candidate string
		wantErr   error
	}{
		{
			name:      "legal opening move",
			history:   nil,
			candidate: "e2e4",
		},
		{
			name:      "legal reply",
			history:   []string{"e2e4"},
			candidate: "e7e5",
		},
		{
			name:      "moving out of turn is illegal",
			history:   []string{"e2e4"},
			candidate: "d2d4",
			wantErr:   rules.ErrIllegalMove,
		},
		{
			name:      "illegal piece movement",
			history:   nil,
			candidate: "e2e5",
			wantErr:   rules.ErrIllegalMove,
		},
		{
			name:      "malformed move",
			history:   nil,
			candidate: "zz99",
			wantErr:   rules.ErrIllegalMove,
		},
		{
			name:      "empty move",
			history:   nil,
			candidate: "",
			wantErr:   rules.ErrIllegalMove,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := rules.Apply(tt.history, tt.candidate)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, state.FEN)
		})
	}
}

func TestApplyCorruptHistoryIsNotIllegalMove(t *testing.T) {
	_, err := rules.Apply([]string{"e2e5"}, "e7e5")
	require.Error(t, err)
	assert.NotErrorIs(t, err, rules.ErrIllegalMove)
}

func TestIsLegal(t *testing.T) {
	assert.True(t, rules.IsLegal(nil, "g1f3"))
	assert.False(t, rules.IsLegal(nil, "g1g3"))
}

func TestCheckmateBlackWins(t *testing.T) {
	state, err := rules.Apply(foolsMate[:3], foolsMate[3])
	require.NoError(t, err)

	assert.True(t, state.Terminal())
	assert.Equal(t, chess.Checkmate, state.Method)
	assert.Equal(t, domain.ResultBlackWins, state.Result())
	require.NotNil(t, state.Winner())
	assert.Equal(t, domain.SideBlack, *state.Winner())
}

func TestCheckmateWhiteWins(t *testing.T) {
	state, err := rules.Replay(scholarsMate)
	require.NoError(t, err)

	assert.True(t, state.Terminal())
	assert.Equal(t, chess.Checkmate, state.Method)
	assert.Equal(t, domain.ResultWhiteWins, state.Result())
	require.NotNil(t, state.Winner())
	assert.Equal(t, domain.SideWhite, *state.Winner())
}

func TestStalemateIsDraw(t *testing.T) {
	state, err := rules.Replay(loydStalemate)
	require.NoError(t, err)

	assert.True(t, state.Terminal())
	assert.Equal(t, chess.Stalemate, state.Method)
	assert.Equal(t, domain.ResultDraw, state.Result())
	assert.Nil(t, state.Winner())
}

func TestSideToMoveMatchesParity(t *testing.T) {
	history := []string{"e2e4", "e7e5", "g1f3", "b8c6"}

	for i := 0; i <= len(history); i++ {
		side, err := rules.SideToMove(history[:i])
		require.NoError(t, err)

		want := domain.SideWhite
		if i%2 == 1 {
			want = domain.SideBlack
		}
		assert.Equal(t, want, side, "after %d plies", i)
	}
}

func TestPGN(t *testing.T) {
	pgn, err := rules.PGN([]string{"e2e4", "e7e5"})
	require.NoError(t, err)
	assert.Contains(t, pgn, "1.e4 e5")

	pgn, err = rules.PGN(foolsMate)
	require.NoError(t, err)
	assert.Contains(t, pgn, "0-1")
}
