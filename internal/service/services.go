package service

import (
	"github.com/Shataranj/rolling-pawn-chess-api/internal/config"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/engine"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/repository"
	"github.com/google/uuid"
)

// Notifier is the delivery side of the platform: it routes a named
// event to every live session of a user, or to everyone. Implemented
// by the websocket hub; delivery to offline users is a silent no-op.
type Notifier interface {
	SendToUser(userID uuid.UUID, event string, payload interface{})
	Broadcast(event string, payload interface{})
}

type Services struct {
	Auth *AuthService
	Game *GameService
}

func NewServices(repos *repository.Repositories, notifier Notifier, searcher engine.MoveSearcher, cfg *config.Config) *Services {
	return &Services{
		Auth: NewAuthService(repos.User, repos.Session, cfg),
		Game: NewGameService(repos.Game, repos.User, notifier, searcher, cfg.EngineMoveTimeout),
	}
}
