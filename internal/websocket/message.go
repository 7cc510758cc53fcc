package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Server to Client
	MessageTypeGameCreated MessageType = "game_created"
	MessageTypeMove        MessageType = "move"
	MessageTypeGameEnded   MessageType = "game_ended"
	MessageTypeError       MessageType = "error"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

type GameCreatedPayload struct {
	GameID       string `json:"gameId"`
	Host         string `json:"host"`
	HostSide     string `json:"hostSide"`
	OpponentType string `json:"opponentType"`
	Opponent     string `json:"opponent"`
}

type MovePayload struct {
	GameID string `json:"gameId"`
	From   string `json:"from"`
	To     string `json:"to"`
	Move   string `json:"move"`
	FEN    string `json:"fen"`
	By     string `json:"by"` // color that played the move
}

type GameEndedPayload struct {
	GameID string `json:"gameId"`
	Winner string `json:"winner"` // "white", "black" or "none"
	Result string `json:"result"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
