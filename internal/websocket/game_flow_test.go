package websocket_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Shataranj/rolling-pawn-chess-api/internal/testutil"
	"github.com/Shataranj/rolling-pawn-chess-api/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createGame(t *testing.T, ts *testutil.TestServer, token string, body map[string]string) string {
	t.Helper()

	var game struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, ts.APIURL("/games"), token, body, &game)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, game.ID)
	return game.ID
}

type moveResponse struct {
	GameID     string  `json:"gameId"`
	Move       string  `json:"move"`
	EngineMove *string `json:"engineMove"`
	FEN        string  `json:"fen"`
	Ended      bool    `json:"ended"`
	Winner     string  `json:"winner"`
}

func submitMove(t *testing.T, ts *testutil.TestServer, token, gameID, from, to string) (moveResponse, int) {
	t.Helper()

	var res moveResponse
	status := doJSON(t, http.MethodPost, ts.APIURL(fmt.Sprintf("/games/%s/moves", gameID)), token,
		map[string]string{"from": from, "to": to}, &res)
	return res, status
}

// waitForSession blocks until the user's websocket session is bound in
// the hub, so events emitted right after cannot be dropped as offline.
func waitForSession(t *testing.T, ts *testutil.TestServer, userID uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(ts.Hub.Registry().SessionsFor(userID)) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGameFlowBetweenTwoUsers(t *testing.T) {
	ts := testutil.NewTestServer(t)

	host := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)
	opponent := testutil.NewUserBuilder().WithUsername("bob").BuildAndAuthenticate(t, ts)

	wsHost := testutil.NewWSClient(t, ts, host.AccessToken)
	wsOpponent := testutil.NewWSClient(t, ts, opponent.AccessToken)
	waitForSession(t, ts, host.User.ID)
	waitForSession(t, ts, opponent.User.ID)

	gameID := createGame(t, ts, host.AccessToken, map[string]string{
		"opponentType": "user",
		"opponent":     "bob",
	})

	// Both players hear about the new game
	for _, ws := range []*testutil.WSClient{wsHost, wsOpponent} {
		msg, ok := ws.WaitForMessage(websocket.MessageTypeGameCreated, 2*time.Second)
		require.True(t, ok)

		var payload websocket.GameCreatedPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, gameID, payload.GameID)
		assert.Equal(t, "alice", payload.Host)
	}

	res, status := submitMove(t, ts, host.AccessToken, gameID, "e2", "e4")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "e2e4", res.Move)
	assert.False(t, res.Ended)

	// The opponent hears the ply; the submitter already has it
	msg, ok := wsOpponent.WaitForMessage(websocket.MessageTypeMove, 2*time.Second)
	require.True(t, ok)
	var movePayload websocket.MovePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &movePayload))
	assert.Equal(t, "e2e4", movePayload.Move)
	assert.Equal(t, "white", movePayload.By)

	// Out of turn: white just moved
	_, status = submitMove(t, ts, host.AccessToken, gameID, "d2", "d4")
	assert.Equal(t, http.StatusBadRequest, status)

	_, status = submitMove(t, ts, opponent.AccessToken, gameID, "e7", "e5")
	require.Equal(t, http.StatusCreated, status)

	msg, ok = wsHost.WaitForMessage(websocket.MessageTypeMove, 2*time.Second)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg.Payload, &movePayload))
	assert.Equal(t, "e7e5", movePayload.Move)
}

func TestGameFlowCheckmateEndsGame(t *testing.T) {
	ts := testutil.NewTestServer(t)

	host := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	ws := testutil.NewWSClient(t, ts, host.AccessToken)
	waitForSession(t, ts, host.User.ID)

	gameID := createGame(t, ts, host.AccessToken, map[string]string{
		"opponentType": "guest",
	})

	plies := [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}}
	for _, ply := range plies {
		_, status := submitMove(t, ts, host.AccessToken, gameID, ply[0], ply[1])
		require.Equal(t, http.StatusCreated, status)
	}

	res, status := submitMove(t, ts, host.AccessToken, gameID, "d8", "h4")
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, res.Ended)
	assert.Equal(t, "black", res.Winner)

	msg, ok := ws.WaitForMessage(websocket.MessageTypeGameEnded, 2*time.Second)
	require.True(t, ok)
	var payload websocket.GameEndedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, gameID, payload.GameID)
	assert.Equal(t, "black", payload.Winner)

	// The finished game shows up in history
	var history struct {
		Games []struct {
			ID     string `json:"id"`
			Result string `json:"result"`
		} `json:"games"`
	}
	status = doJSON(t, http.MethodGet, ts.APIURL("/users/me/games"), host.AccessToken, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history.Games, 1)
	assert.Equal(t, gameID, history.Games[0].ID)
	assert.Equal(t, "black_wins", history.Games[0].Result)

	// A zero page size is not honored; the default applies
	status = doJSON(t, http.MethodGet, ts.APIURL("/users/me/games?limit=0"), host.AccessToken, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history.Games, 1)

	// And further moves are rejected
	_, status = submitMove(t, ts, host.AccessToken, gameID, "a2", "a3")
	assert.Equal(t, http.StatusConflict, status)
}

func TestGameFlowAgainstEngine(t *testing.T) {
	ts := testutil.NewTestServer(t, "e7e5")

	host := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	ws := testutil.NewWSClient(t, ts, host.AccessToken)
	waitForSession(t, ts, host.User.ID)

	gameID := createGame(t, ts, host.AccessToken, map[string]string{
		"opponentType": "engine",
		"opponent":     "engine_2",
	})

	res, status := submitMove(t, ts, host.AccessToken, gameID, "e2", "e4")
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, res.EngineMove)
	assert.Equal(t, "e7e5", *res.EngineMove)

	// Own ply first, then the engine's reply
	msg, ok := ws.WaitForMessage(websocket.MessageTypeMove, 2*time.Second)
	require.True(t, ok)
	var payload websocket.MovePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "e2e4", payload.Move)

	msg, ok = ws.WaitForMessage(websocket.MessageTypeMove, 2*time.Second)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "e7e5", payload.Move)
	assert.Equal(t, "black", payload.By)

	// Every ply of the transcript gets an evaluation
	var evaluation struct {
		Scores []struct {
			Move  string `json:"move"`
			Score *int   `json:"score"`
		} `json:"scores"`
	}
	status = doJSON(t, http.MethodGet, ts.APIURL(fmt.Sprintf("/games/%s/score", gameID)), host.AccessToken, nil, &evaluation)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, evaluation.Scores, 2)
	assert.Equal(t, "e2e4", evaluation.Scores[0].Move)
	assert.Equal(t, "e7e5", evaluation.Scores[1].Move)
}

func TestGameFlowOfflineOpponentStillWorks(t *testing.T) {
	ts := testutil.NewTestServer(t)

	host := testutil.NewUserBuilder().WithUsername("alice").BuildAndAuthenticate(t, ts)
	testutil.NewUserBuilder().WithUsername("bob").BuildAndAuthenticate(t, ts)

	// Nobody is connected over websocket; delivery is silently dropped
	gameID := createGame(t, ts, host.AccessToken, map[string]string{
		"opponentType": "user",
		"opponent":     "bob",
	})

	_, status := submitMove(t, ts, host.AccessToken, gameID, "e2", "e4")
	assert.Equal(t, http.StatusCreated, status)
}
