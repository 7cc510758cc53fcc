package repository

import (
	"context"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type GameRepository interface {
	Create(ctx context.Context, game *domain.Game) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error)
	// GetLiveByHost returns the host's in-progress game, if any.
	GetLiveByHost(ctx context.Context, hostID uuid.UUID) (*domain.Game, error)
	// GetCompletedForUser returns finished games the user hosted or
	// played in as a registered opponent, newest first.
	GetCompletedForUser(ctx context.Context, userID uuid.UUID, username string, limit, offset int) ([]*domain.Game, error)
	Update(ctx context.Context, game *domain.Game) error
}

type Repositories struct {
	User    UserRepository
	Session SessionRepository
	Game    GameRepository
}
