package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

// Opposite returns the other color.
func (s Side) Opposite() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

type OpponentType string

const (
	OpponentEngine OpponentType = "engine"
	OpponentUser   OpponentType = "user"
	OpponentGuest  OpponentType = "guest"
)

type GameStatus string

const (
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusCompleted  GameStatus = "completed"
)

type GameResult string

const (
	ResultWhiteWins  GameResult = "white_wins"
	ResultBlackWins  GameResult = "black_wins"
	ResultDraw       GameResult = "draw"
	ResultInProgress GameResult = "in_progress"
)

// Game is the central entity. Moves is the append-only UCI transcript
// ("e2e4", "e7e5", ...) from which board state is reconstructed; it is
// never truncated or reordered. Result is decided exactly once, at the
// same transition that sets Status to completed.
type Game struct {
	ID           uuid.UUID                   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HostID       uuid.UUID                   `json:"hostId" gorm:"type:uuid;not null;index"`
	HostSide     Side                        `json:"hostSide" gorm:"not null;default:'white'"`
	OpponentType OpponentType                `json:"opponentType" gorm:"not null"`
	Opponent     string                      `json:"opponent" gorm:"not null"`
	Moves        datatypes.JSONSlice[string] `json:"moves"`
	Result       GameResult                  `json:"result" gorm:"not null;default:'in_progress'"`
	Status       GameStatus                  `json:"status" gorm:"not null;default:'in_progress';index"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
	CompletedAt  *time.Time                  `json:"completedAt"`

	// Relations
	Host *User `json:"host,omitempty" gorm:"foreignKey:HostID"`
}

// SideOf returns the color a participant plays in this game. The host
// plays HostSide; any other participant plays the opposite color.
func (g *Game) SideOf(userID uuid.UUID) Side {
	if userID == g.HostID {
		return g.HostSide
	}
	return g.HostSide.Opposite()
}
