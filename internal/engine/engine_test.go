package engine_test

import (
	"testing"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthFromTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		want    int
		wantErr bool
	}{
		{name: "minimum depth", tag: "engine_1", want: 1},
		{name: "typical depth", tag: "engine_4", want: 4},
		{name: "maximum depth", tag: "engine_20", want: 20},
		{name: "below minimum", tag: "engine_0", wantErr: true},
		{name: "above maximum", tag: "engine_21", wantErr: true},
		{name: "negative", tag: "engine_-3", wantErr: true},
		{name: "not a number", tag: "engine_hard", wantErr: true},
		{name: "missing prefix", tag: "4", wantErr: true},
		{name: "wrong prefix", tag: "stockfish_4", wantErr: true},
		{name: "empty", tag: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, err := engine.DepthFromTag(tt.tag)
			if tt.wantErr {
				require.ErrorIs(t, err, engine.ErrInvalidStrengthTag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, depth)
		})
	}
}

func TestStrengthTagRoundTrip(t *testing.T) {
	for depth := engine.MinDepth; depth <= engine.MaxDepth; depth++ {
		got, err := engine.DepthFromTag(engine.StrengthTag(depth))
		require.NoError(t, err)
		assert.Equal(t, depth, got)
	}
}
