package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questStreakApp/internal/credentials"
)

func TestGatewayAttachesBearerCredential(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, statsBody())
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok-123"), 0)
	_, err := g.StreakStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestGatewayOmitsHeaderWithoutCredential(t *testing.T) {
	var gotAuth string
	var hadHeader bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadHeader = r.Header["Authorization"]
		writeJSON(w, statsBody())
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static(""), 0)
	_, err := g.StreakStats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.False(t, hadHeader, "no credential means no Authorization header at all")
}

func TestStreakStatsAcceptsBothShapes(t *testing.T) {
	topLevel := `{"currentStreak": 6, "longestStreak": 14, "dailyCompleted": 2, "totalPoints": 3400, "multiplier": 2.0, "nextReset": {"hours": 5, "minutes": 30}}`
	for name, body := range map[string]string{
		"enveloped": `{"success": true, "data": ` + topLevel + `}`,
		"top-level": topLevel,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, body)
			}))
			defer server.Close()

			g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
			stats, err := g.StreakStats(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 6, stats.CurrentStreak)
			assert.Equal(t, 14, stats.LongestStreak)
			assert.Equal(t, 3400, stats.TotalPoints)
			assert.Equal(t, 5, stats.NextReset.Hours)
			assert.Equal(t, 30, stats.NextReset.Minutes)
		})
	}
}

func TestStreakStatsDefaultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success": true, "data": {"currentStreak": 2}}`)
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
	stats, err := g.StreakStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, 1.0, stats.Multiplier, "missing multiplier defaults to 1.0")
}

func TestStreakStatsServerRejectionIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success": false, "error": "session expired"}`)
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
	_, err := g.StreakStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
}

func TestDailyQuestsFoldsBothCompletionFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success": true, "data": [
			{"id": "q1", "name": "A", "isCompleted": true},
			{"id": "q2", "name": "B", "completed": true},
			{"id": "q3", "name": "C"}
		]}`)
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
	quests, err := g.DailyQuests(context.Background())
	require.NoError(t, err)
	require.Len(t, quests, 3)
	assert.True(t, quests[0].Completed)
	assert.True(t, quests[1].Completed)
	assert.False(t, quests[2].Completed)
}

func TestDecodeLeaderboardShapes(t *testing.T) {
	bare := []byte(`  [{"id": "u1", "name": "Ava", "rank": 1}]`)
	enveloped := []byte(`{"data": [{"id": "u1", "name": "Ava", "rank": 1}]}`)

	fromBare, err := decodeLeaderboard(bare)
	require.NoError(t, err)
	fromEnvelope, err := decodeLeaderboard(enveloped)
	require.NoError(t, err)
	assert.Equal(t, fromBare, fromEnvelope)

	empty, err := decodeLeaderboard([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeLeaderboard([]byte(`not json`))
	assert.Error(t, err)
}

func TestLeaderboardPassesLimit(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		writeJSON(w, `[]`)
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
	_, err := g.Leaderboard(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, "25", gotLimit)
}

func TestGatewayTimeoutSurfacesAsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, statsBody())
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 50*time.Millisecond)
	_, err := g.StreakStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCompleteQuestReturnsNegativeAnswerWithoutError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/daily-quests/q7/complete", r.URL.Path)
		writeJSON(w, `{"success": false, "error": "quest already completed"}`)
	}))
	defer server.Close()

	g := NewEngagementGateway(server.URL, credentials.Static("tok"), 0)
	resp, err := g.CompleteQuest(context.Background(), "q7")
	require.NoError(t, err, "a well-formed rejection is data, not a transport error")
	assert.False(t, resp.Success)
	assert.Equal(t, "quest already completed", resp.Error)
}
