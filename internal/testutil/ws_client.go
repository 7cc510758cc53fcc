package testutil

import (
	"encoding/json"
	"testing"
	"time"

	appws "github.com/Shataranj/rolling-pawn-chess-api/internal/websocket"
	"github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *websocket.Conn
	Messages chan appws.Message
	done     chan struct{}
}

// NewWSClient connects to the test server's WebSocket endpoint
func NewWSClient(t *testing.T, ts *TestServer, token string) *WSClient {
	t.Helper()

	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	conn, _, err := dialer.Dial(ts.WebSocketURL(token), nil)
	if err != nil {
		t.Fatalf("failed to connect websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		Messages: make(chan appws.Message, 32),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func (c *WSClient) readPump() {
	defer close(c.Messages)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg appws.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.t.Logf("failed to decode websocket message: %v", err)
			continue
		}

		select {
		case c.Messages <- msg:
		case <-c.done:
			return
		}
	}
}

// WaitForMessage blocks until a message of the given type arrives or
// the timeout elapses.
func (c *WSClient) WaitForMessage(msgType appws.MessageType, timeout time.Duration) (appws.Message, bool) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-c.Messages:
			if !ok {
				return appws.Message{}, false
			}
			if msg.Type == msgType {
				return msg, true
			}
		case <-deadline:
			return appws.Message{}, false
		}
	}
}

// ExpectNoMessage asserts that no message arrives within the window.
func (c *WSClient) ExpectNoMessage(window time.Duration) {
	c.t.Helper()

	select {
	case msg, ok := <-c.Messages:
		if ok {
			c.t.Fatalf("expected no message, got %s", msg.Type)
		}
	case <-time.After(window):
	}
}

// Close shuts down the connection
func (c *WSClient) Close() {
	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}

	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.conn.Close()
}
