package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserBuilder helps create test users
type UserBuilder struct {
	username string
	email    string
	password string
	boardID  string
}

func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: fmt.Sprintf("player_%s", suffix),
		email:    fmt.Sprintf("player_%s@example.com", suffix),
		password: "password123",
	}
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithBoardID(boardID string) *UserBuilder {
	b.boardID = boardID
	return b
}

// Build creates the user directly in the database
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		Email:        b.email,
		PasswordHash: string(hash),
		BoardID:      b.boardID,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// AuthenticatedUser is a registered user plus their tokens
type AuthenticatedUser struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// BuildAndAuthenticate registers the user through the API and returns tokens
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) *AuthenticatedUser {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": b.username,
		"email":    b.email,
		"password": b.password,
		"boardId":  b.boardID,
	})

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}

	var authResp struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
			BoardID  string `json:"boardId"`
		} `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode auth response: %v", err)
	}

	userID, err := uuid.Parse(authResp.User.ID)
	if err != nil {
		t.Fatalf("invalid user ID in auth response: %v", err)
	}

	return &AuthenticatedUser{
		User: &domain.User{
			ID:       userID,
			Username: authResp.User.Username,
			Email:    authResp.User.Email,
			BoardID:  authResp.User.BoardID,
		},
		AccessToken:  authResp.AccessToken,
		RefreshToken: authResp.RefreshToken,
	}
}

// GameBuilder helps create test games
type GameBuilder struct {
	hostID       uuid.UUID
	hostSide     domain.Side
	opponentType domain.OpponentType
	opponent     string
	moves        []string
	status       domain.GameStatus
	result       domain.GameResult
	createdAt    time.Time
}

func NewGameBuilder(hostID uuid.UUID) *GameBuilder {
	return &GameBuilder{
		hostID:       hostID,
		hostSide:     domain.SideWhite,
		opponentType: domain.OpponentGuest,
		opponent:     "guest",
		status:       domain.GameStatusInProgress,
		result:       domain.ResultInProgress,
	}
}

func (b *GameBuilder) WithHostSide(side domain.Side) *GameBuilder {
	b.hostSide = side
	return b
}

func (b *GameBuilder) WithOpponent(opponentType domain.OpponentType, opponent string) *GameBuilder {
	b.opponentType = opponentType
	b.opponent = opponent
	return b
}

func (b *GameBuilder) WithMoves(moves ...string) *GameBuilder {
	b.moves = moves
	return b
}

func (b *GameBuilder) WithCreatedAt(ts time.Time) *GameBuilder {
	b.createdAt = ts
	return b
}

func (b *GameBuilder) Completed(result domain.GameResult) *GameBuilder {
	b.status = domain.GameStatusCompleted
	b.result = result
	return b
}

// Build creates the game directly in the database
func (b *GameBuilder) Build(t *testing.T, db *gorm.DB) *domain.Game {
	t.Helper()

	game := &domain.Game{
		ID:           uuid.New(),
		HostID:       b.hostID,
		HostSide:     b.hostSide,
		OpponentType: b.opponentType,
		Opponent:     b.opponent,
		Moves:        datatypes.JSONSlice[string](b.moves),
		Status:       b.status,
		Result:       b.result,
		CreatedAt:    b.createdAt,
	}

	if err := db.Create(game).Error; err != nil {
		t.Fatalf("failed to create test game: %v", err)
	}

	return game
}
