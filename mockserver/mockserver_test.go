package mockserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStub(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	stub := New([]byte("test-secret"))
	server := httptest.NewServer(stub.Router())
	t.Cleanup(server.Close)

	token, err := stub.MintToken("test-user")
	require.NoError(t, err)
	return stub, server, token
}

func get(t *testing.T, url, token string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doRequest(t, req)
}

func post(t *testing.T, url, token string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestRejectsMissingOrInvalidToken(t *testing.T) {
	_, server, _ := newStub(t)

	code, body := get(t, server.URL+"/streak/stats", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	code, _ = get(t, server.URL+"/streak/stats", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDailyQuestsAndCompletionFlow(t *testing.T) {
	stub, server, token := newStub(t)

	code, body := get(t, server.URL+"/daily-quests/today", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	quests := body["data"].([]any)
	require.Len(t, quests, 3)

	questID := stub.QuestIDs()[0]

	code, body = post(t, server.URL+"/daily-quests/"+questID+"/complete", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["message"])

	// Second completion of the same quest is rejected, not an HTTP error.
	code, body = post(t, server.URL+"/daily-quests/"+questID+"/complete", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "already completed")

	code, body = post(t, server.URL+"/daily-quests/nope/complete", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "not found")
}

func TestStatsReflectCompletions(t *testing.T) {
	stub, server, token := newStub(t)

	_, before := get(t, server.URL+"/streak/stats", token)
	beforeData := before["data"].(map[string]any)
	require.Equal(t, float64(0), beforeData["dailyCompleted"])
	streakBefore := beforeData["currentStreak"].(float64)

	code, body := post(t, server.URL+"/daily-quests/"+stub.QuestIDs()[1]+"/complete", token)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["success"])

	_, after := get(t, server.URL+"/streak/stats", token)
	afterData := after["data"].(map[string]any)
	assert.Equal(t, float64(1), afterData["dailyCompleted"])
	assert.Equal(t, streakBefore+1, afterData["currentStreak"], "first completion of the day extends the streak")
	assert.Greater(t, afterData["totalPoints"], beforeData["totalPoints"])
	assert.GreaterOrEqual(t, afterData["longestStreak"], afterData["currentStreak"])
}

func TestLeaderboardHonorsLimit(t *testing.T) {
	_, server, token := newStub(t)

	code, body := get(t, server.URL+"/streak/leaderboard?limit=3", token)
	require.Equal(t, http.StatusOK, code)
	entries := body["data"].([]any)
	require.Len(t, entries, 3)

	for i, raw := range entries {
		entry := raw.(map[string]any)
		assert.Equal(t, float64(i+1), entry["rank"])
	}
}
