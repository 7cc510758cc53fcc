package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/api/middleware"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/domain"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type GameHandler struct {
	gameService *service.GameService
}

func NewGameHandler(gameService *service.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type CreateGameRequest struct {
	HostSide     string `json:"hostSide"`
	OpponentType string `json:"opponentType"`
	Opponent     string `json:"opponent"`
}

type SubmitMoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GameResponse struct {
	ID           string   `json:"id"`
	HostID       string   `json:"hostId"`
	HostSide     string   `json:"hostSide"`
	OpponentType string   `json:"opponentType"`
	Opponent     string   `json:"opponent"`
	Moves        []string `json:"moves"`
	Result       string   `json:"result"`
	Status       string   `json:"status"`
	FEN          string   `json:"fen,omitempty"`
	Turn         string   `json:"turn,omitempty"`
	CreatedAt    int64    `json:"createdAt"`
}

func gameResponse(g *domain.Game) GameResponse {
	return GameResponse{
		ID:           g.ID.String(),
		HostID:       g.HostID.String(),
		HostSide:     string(g.HostSide),
		OpponentType: string(g.OpponentType),
		Opponent:     g.Opponent,
		Moves:        g.Moves,
		Result:       string(g.Result),
		Status:       string(g.Status),
		CreatedAt:    g.CreatedAt.UnixMilli(),
	}
}

func gameViewResponse(v *service.GameView) GameResponse {
	resp := gameResponse(v.Game)
	resp.FEN = v.FEN
	resp.Turn = string(v.Turn)
	return resp
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), userID, service.CreateGameInput{
		HostSide:     domain.Side(req.HostSide),
		OpponentType: domain.OpponentType(req.OpponentType),
		Opponent:     req.Opponent,
	})
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(gameResponse(game))
}

func (h *GameHandler) SubmitMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	var req SubmitMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.gameService.SubmitMove(r.Context(), userID, gameID, req.From, req.To)
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	view, err := h.gameService.GetGame(r.Context(), userID, gameID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gameViewResponse(view))
}

func (h *GameHandler) GetPGN(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	pgn, err := h.gameService.PGN(r.Context(), userID, gameID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"pgn": pgn})
}

func (h *GameHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gameID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	scores, err := h.gameService.Scores(r.Context(), userID, gameID, queryInt(r, "depth", 0, 1))
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"scores": scores})
}

func (h *GameHandler) GetMyGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// A zero limit is not a page size; fall back to the default
	limit := queryInt(r, "limit", 20, 1)
	offset := queryInt(r, "offset", 0, 0)

	games, err := h.gameService.GetCompletedGames(r.Context(), userID, limit, offset)
	if err != nil {
		writeGameError(w, err)
		return
	}

	resp := make([]GameResponse, 0, len(games))
	for _, g := range games {
		resp = append(resp, gameResponse(g))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"games": resp})
}

func (h *GameHandler) GetLiveGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.gameService.GetLiveGame(r.Context(), userID)
	if err != nil {
		writeGameError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(gameViewResponse(view))
}

func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		http.Error(w, "Game not found", http.StatusNotFound)
	case errors.Is(err, service.ErrLiveGameExists):
		http.Error(w, "A game is already in progress", http.StatusConflict)
	case errors.Is(err, service.ErrGameFinished):
		http.Error(w, "Game already finished", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidMove):
		http.Error(w, "Invalid move", http.StatusBadRequest)
	case errors.Is(err, service.ErrNotYourTurn):
		http.Error(w, "Not your turn", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidOpponent):
		http.Error(w, "Invalid opponent", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidSide):
		http.Error(w, "Invalid side", http.StatusBadRequest)
	case errors.Is(err, service.ErrEngineUnavailable):
		http.Error(w, "Engine temporarily unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback, min int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= min {
			return v
		}
	}
	return fallback
}
