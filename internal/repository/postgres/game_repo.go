package postgres

import (
	"context"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) *gameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) Create(ctx context.Context, game *domain.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

func (r *gameRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	var game domain.Game
	err := r.db.WithContext(ctx).
		Preload("Host").
		First(&game, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) GetLiveByHost(ctx context.Context, hostID uuid.UUID) (*domain.Game, error) {
	var game domain.Game
	err := r.db.WithContext(ctx).
		First(&game, "host_id = ? AND status = ?", hostID, domain.GameStatusInProgress).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *gameRepository) GetCompletedForUser(ctx context.Context, userID uuid.UUID, username string, limit, offset int) ([]*domain.Game, error) {
	var games []*domain.Game
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.GameStatusCompleted).
		Where("host_id = ? OR (opponent_type = ? AND opponent = ?)", userID, domain.OpponentUser, username).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *gameRepository) Update(ctx context.Context, game *domain.Game) error {
	return r.db.WithContext(ctx).Save(game).Error
}
