package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"questStreakApp/internal/credentials"
	"questStreakApp/internal/types/leaderboard"
	"questStreakApp/internal/types/quest"
	"questStreakApp/internal/types/streak"
)

const defaultRequestTimeout = 5 * time.Second

// EngagementGateway is a thin transport wrapper around the remote
// engagement service. It attaches the bearer credential when one is
// available and returns parsed payloads or a normalized error; it holds
// no state of its own.
type EngagementGateway struct {
	baseURL string
	creds   credentials.Provider
	client  *http.Client
}

func NewEngagementGateway(baseURL string, creds credentials.Provider, timeout time.Duration) *EngagementGateway {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &EngagementGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *EngagementGateway) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	// Proceed without a credential if none is available; the server will
	// reject and the caller handles that like any other failure.
	cred, err := g.creds.Credential(ctx)
	if err == nil && cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%s %s timed out: %w", method, path, err)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	return data, nil
}

// --- wire payloads ---

type nextResetPayload struct {
	Time    time.Time `json:"time"`
	Hours   int       `json:"hours"`
	Minutes int       `json:"minutes"`
}

type streakStatsPayload struct {
	CurrentStreak  int              `json:"currentStreak"`
	LongestStreak  int              `json:"longestStreak"`
	DailyCompleted int              `json:"dailyCompleted"`
	TotalPoints    int              `json:"totalPoints"`
	NextReset      nextResetPayload `json:"nextReset"`
	Multiplier     float64          `json:"multiplier"`
}

func (p streakStatsPayload) toStats() streak.Stats {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}
	return streak.Stats{
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		DailyCompleted: p.DailyCompleted,
		TotalPoints:    p.TotalPoints,
		NextReset: streak.NextReset{
			Time:    p.NextReset.Time,
			Hours:   p.NextReset.Hours,
			Minutes: p.NextReset.Minutes,
		},
		Multiplier: multiplier,
	}
}

// questPayload accepts both completion flag spellings the server has used
// over time and folds them into the one canonical Completed field.
type questPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Points       int    `json:"points"`
	Requirements string `json:"requirements"`
	IsCompleted  *bool  `json:"isCompleted"`
	Completed    *bool  `json:"completed"`
}

func (p questPayload) toQuest() quest.Quest {
	completed := (p.IsCompleted != nil && *p.IsCompleted) || (p.Completed != nil && *p.Completed)
	points := p.Points
	if points < 0 {
		points = 0
	}
	return quest.Quest{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Points:       points,
		Requirements: p.Requirements,
		Completed:    completed,
	}
}

type entryPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Streak      int    `json:"streak"`
	TotalPoints int    `json:"totalPoints"`
	Rank        int    `json:"rank"`
}

func (p entryPayload) toEntry() leaderboard.Entry {
	return leaderboard.Entry{
		ID:          p.ID,
		Name:        p.Name,
		Streak:      p.Streak,
		TotalPoints: p.TotalPoints,
		Rank:        p.Rank,
	}
}

// CompletionResponse is the server's answer to a quest completion request.
type CompletionResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
}

// --- endpoints ---

// StreakStats fetches the current streak statistics. The server has
// historically delivered the fields either inside a {success, data} envelope
// or directly at the top level; both shapes are accepted.
func (g *EngagementGateway) StreakStats(ctx context.Context) (streak.Stats, error) {
	body, err := g.do(ctx, http.MethodGet, "/streak/stats", nil)
	if err != nil {
		return streak.Stats{}, err
	}

	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return streak.Stats{}, fmt.Errorf("malformed streak stats payload: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return streak.Stats{}, serverError("streak stats", env.Error)
	}

	var payload streakStatsPayload
	raw := body
	if len(env.Data) > 0 {
		raw = env.Data
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return streak.Stats{}, fmt.Errorf("malformed streak stats payload: %w", err)
	}
	return payload.toStats(), nil
}

// DailyQuests fetches today's quest list.
func (g *EngagementGateway) DailyQuests(ctx context.Context) ([]quest.Quest, error) {
	body, err := g.do(ctx, http.MethodGet, "/daily-quests/today", nil)
	if err != nil {
		return nil, err
	}

	var env struct {
		Success *bool          `json:"success"`
		Data    []questPayload `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed daily quests payload: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, serverError("daily quests", env.Error)
	}

	quests := make([]quest.Quest, 0, len(env.Data))
	for _, p := range env.Data {
		quests = append(quests, p.toQuest())
	}
	return quests, nil
}

// CompleteQuest reports a quest as completed. A well-formed negative
// answer is returned as a CompletionResponse with Success false, not as
// an error; errors are reserved for transport-level failures.
func (g *EngagementGateway) CompleteQuest(ctx context.Context, questID string) (CompletionResponse, error) {
	body, err := g.do(ctx, http.MethodPost, "/daily-quests/"+questID+"/complete", map[string]string{})
	if err != nil {
		return CompletionResponse{}, err
	}

	var resp CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CompletionResponse{}, fmt.Errorf("malformed completion payload: %w", err)
	}
	return resp, nil
}

// Leaderboard fetches the top participants. The response is either a bare
// ranked array or a {data: [...]} envelope; decodeLeaderboard normalizes
// both to the same list.
func (g *EngagementGateway) Leaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	body, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/streak/leaderboard?limit=%d", limit), nil)
	if err != nil {
		return nil, err
	}

	payloads, err := decodeLeaderboard(body)
	if err != nil {
		return nil, err
	}
	entries := make([]leaderboard.Entry, 0, len(payloads))
	for _, p := range payloads {
		entries = append(entries, p.toEntry())
	}
	return entries, nil
}

// decodeLeaderboard is the one place that sniffs response shape: a bare
// JSON array wins, anything else is tried as a {data: [...]} envelope.
func decodeLeaderboard(body []byte) ([]entryPayload, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var payloads []entryPayload
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("malformed leaderboard payload: %w", err)
		}
		return payloads, nil
	}

	var env struct {
		Data []entryPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed leaderboard payload: %w", err)
	}
	return env.Data, nil
}

func serverError(what, reason string) error {
	if reason == "" {
		reason = "server reported failure"
	}
	return fmt.Errorf("%s request rejected: %s", what, reason)
}
