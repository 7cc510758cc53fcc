package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/repository/postgres"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGameRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(db.DB)
	ctx := context.Background()

	t.Run("create and get by id", func(t *testing.T) {
		db.Truncate(t)
		host := testutil.NewUserBuilder().WithUsername("alice").Build(t, db.DB)

		game := testutil.NewGameBuilder(host.ID).
			WithMoves("e2e4", "e7e5").
			Build(t, db.DB)

		got, err := repos.Game.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, game.ID, got.ID)
		assert.Equal(t, []string{"e2e4", "e7e5"}, []string(got.Moves))
		assert.Equal(t, domain.GameStatusInProgress, got.Status)
		require.NotNil(t, got.Host)
		assert.Equal(t, "alice", got.Host.Username)
	})

	t.Run("get by id not found", func(t *testing.T) {
		db.Truncate(t)

		_, err := repos.Game.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("live game lookup", func(t *testing.T) {
		db.Truncate(t)
		host := testutil.NewUserBuilder().Build(t, db.DB)

		_, err := repos.Game.GetLiveByHost(ctx, host.ID)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)

		// A finished game does not count as live
		testutil.NewGameBuilder(host.ID).
			Completed(domain.ResultWhiteWins).
			Build(t, db.DB)
		_, err = repos.Game.GetLiveByHost(ctx, host.ID)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)

		live := testutil.NewGameBuilder(host.ID).Build(t, db.DB)
		got, err := repos.Game.GetLiveByHost(ctx, host.ID)
		require.NoError(t, err)
		assert.Equal(t, live.ID, got.ID)
	})

	t.Run("update persists transcript and completion", func(t *testing.T) {
		db.Truncate(t)
		host := testutil.NewUserBuilder().Build(t, db.DB)

		game := testutil.NewGameBuilder(host.ID).WithMoves("e2e4").Build(t, db.DB)

		now := time.Now()
		game.Moves = append(game.Moves, "e7e5")
		game.Status = domain.GameStatusCompleted
		game.Result = domain.ResultDraw
		game.CompletedAt = &now
		require.NoError(t, repos.Game.Update(ctx, game))

		got, err := repos.Game.GetByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"e2e4", "e7e5"}, []string(got.Moves))
		assert.Equal(t, domain.GameStatusCompleted, got.Status)
		assert.Equal(t, domain.ResultDraw, got.Result)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("completed games for user", func(t *testing.T) {
		db.Truncate(t)
		alice := testutil.NewUserBuilder().WithUsername("alice").Build(t, db.DB)
		bob := testutil.NewUserBuilder().WithUsername("bob").Build(t, db.DB)

		base := time.Now().Add(-time.Hour)

		hosted := testutil.NewGameBuilder(alice.ID).
			Completed(domain.ResultWhiteWins).
			WithCreatedAt(base).
			Build(t, db.DB)

		// Alice played in bob's game as a registered opponent
		asOpponent := testutil.NewGameBuilder(bob.ID).
			WithOpponent(domain.OpponentUser, "alice").
			Completed(domain.ResultBlackWins).
			WithCreatedAt(base.Add(time.Minute)).
			Build(t, db.DB)

		// Noise: alice's live game, bob's guest game
		testutil.NewGameBuilder(alice.ID).WithCreatedAt(base.Add(2 * time.Minute)).Build(t, db.DB)
		testutil.NewGameBuilder(bob.ID).
			Completed(domain.ResultDraw).
			WithCreatedAt(base.Add(3 * time.Minute)).
			Build(t, db.DB)

		games, err := repos.Game.GetCompletedForUser(ctx, alice.ID, "alice", 10, 0)
		require.NoError(t, err)
		require.Len(t, games, 2)

		// Newest first
		assert.Equal(t, asOpponent.ID, games[0].ID)
		assert.Equal(t, hosted.ID, games[1].ID)

		// Pagination
		games, err = repos.Game.GetCompletedForUser(ctx, alice.ID, "alice", 1, 1)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, hosted.ID, games[0].ID)

		games, err = repos.Game.GetCompletedForUser(ctx, bob.ID, "bob", 10, 0)
		require.NoError(t, err)
		require.Len(t, games, 2)
	})
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(db.DB)
	ctx := context.Background()

	t.Run("lookup by id username and email", func(t *testing.T) {
		db.Truncate(t)
		user := testutil.NewUserBuilder().
			WithUsername("alice").
			WithEmail("alice@example.com").
			WithBoardID("board-7").
			Build(t, db.DB)

		byID, err := repos.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)
		assert.Equal(t, "board-7", byID.BoardID)

		byName, err := repos.User.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		byEmail, err := repos.User.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		db.Truncate(t)

		_, err := repos.User.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)

		_, err = repos.User.GetByUsername(ctx, "ghost")
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}
