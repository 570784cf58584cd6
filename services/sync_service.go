package services

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"questStreakApp/internal/credentials"
	"questStreakApp/internal/types/leaderboard"
	"questStreakApp/internal/types/quest"
	"questStreakApp/internal/types/streak"
	"questStreakApp/monitoring"
)

const (
	defaultThrottleInterval = time.Second
	defaultLeaderboardLimit = 10
)

type SyncConfig struct {
	BaseURL          string
	Credentials      credentials.Provider
	RequestTimeout   time.Duration // per-request timeout, default 5s
	ThrottleInterval time.Duration // minimum gap between fetches of one resource, default 1s
}

// CompletionResult is what a quest completion attempt resolves to. Failure
// is reported here, never as a panic or an escaping error.
type CompletionResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// SyncService is the sole writer of the three resource stores. It enforces
// fetch throttling, at-most-one in-flight fetch per resource, optimistic
// quest completion with rollback, and fallback substitution on failure.
// Screens hold read-only snapshots obtained through the accessor methods.
type SyncService struct {
	gateway *EngagementGateway

	mu     sync.Mutex
	stats  streak.Stats
	quests quest.DailySet
	board  leaderboard.Board

	statsInFlight  bool
	questsInFlight bool
	boardInFlight  bool
	completing     map[string]bool

	// Each limiter holds one token per throttle interval; a token is taken
	// only when a fetch actually executes, so skipped calls never push the
	// window forward.
	statsThrottle  *rate.Limiter
	questsThrottle *rate.Limiter
	boardThrottle  *rate.Limiter

	refreshing atomic.Bool
	alive      atomic.Bool
}

func NewSyncService(cfg SyncConfig) *SyncService {
	interval := cfg.ThrottleInterval
	if interval <= 0 {
		interval = defaultThrottleInterval
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = credentials.Env{}
	}

	s := &SyncService{
		gateway:        NewEngagementGateway(cfg.BaseURL, creds, cfg.RequestTimeout),
		completing:     make(map[string]bool),
		statsThrottle:  rate.NewLimiter(rate.Every(interval), 1),
		questsThrottle: rate.NewLimiter(rate.Every(interval), 1),
		boardThrottle:  rate.NewLimiter(rate.Every(interval), 1),
		stats:          streak.Stats{Multiplier: 1.0},
	}
	s.alive.Store(true)
	return s
}

// Close marks the engine as torn down. Any fetch still in flight will
// discard its result instead of writing to a store.
func (s *SyncService) Close() {
	s.alive.Store(false)
}

// LoadStreakStats fetches the streak statistics. Calls arriving within the
// throttle window of the last executed fetch, or while a stats fetch is
// already in flight, are silently dropped.
func (s *SyncService) LoadStreakStats(ctx context.Context) {
	s.fetchStreakStats(ctx, false)
}

// LoadDailyQuests fetches today's quest list, same guards as LoadStreakStats.
func (s *SyncService) LoadDailyQuests(ctx context.Context) {
	s.fetchDailyQuests(ctx, false)
}

// LoadLeaderboard fetches the top participants. limit <= 0 means 10.
func (s *SyncService) LoadLeaderboard(ctx context.Context, limit int) {
	s.fetchLeaderboard(ctx, limit, false)
}

// begin runs the shared guard sequence under the store lock: drop if torn
// down or already in flight, then consume the throttle token. The
// single-flight check comes first so a concurrency skip never eats the
// throttle window. force bypasses the throttle (used by rollback and
// post-confirmation refetches) but never the single-flight guard.
func (s *SyncService) begin(inFlight *bool, throttle *rate.Limiter, force bool, markLoading func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive.Load() || *inFlight {
		return false
	}
	if !throttle.Allow() && !force {
		return false
	}
	*inFlight = true
	markLoading()
	return true
}

func (s *SyncService) fetchStreakStats(ctx context.Context, force bool) {
	ok := s.begin(&s.statsInFlight, s.statsThrottle, force, func() {
		s.stats.IsLoading = true
		s.stats.Error = ""
	})
	if !ok {
		return
	}

	stats, err := s.gateway.StreakStats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsInFlight = false
	if !s.alive.Load() {
		return
	}
	if err != nil {
		log.Printf("Streak stats fetch failed, serving fallback: %v", err)
		s.stats = fallbackStreakStats(err.Error())
		monitoring.RecordFetch("streak_stats", "fallback")
		return
	}
	s.stats = stats
	monitoring.RecordFetch("streak_stats", "ok")
}

func (s *SyncService) fetchDailyQuests(ctx context.Context, force bool) {
	ok := s.begin(&s.questsInFlight, s.questsThrottle, force, func() {
		s.quests.IsLoading = true
		s.quests.Error = ""
	})
	if !ok {
		return
	}

	quests, err := s.gateway.DailyQuests(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.questsInFlight = false
	if !s.alive.Load() {
		return
	}
	if err != nil {
		log.Printf("Daily quests fetch failed, serving fallback: %v", err)
		s.quests = quest.NewDailySet(fallbackDailyQuests())
		s.quests.Error = err.Error()
		monitoring.RecordFetch("daily_quests", "fallback")
		return
	}
	s.quests = quest.NewDailySet(quests)
	monitoring.RecordFetch("daily_quests", "ok")
}

func (s *SyncService) fetchLeaderboard(ctx context.Context, limit int, force bool) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	ok := s.begin(&s.boardInFlight, s.boardThrottle, force, func() {
		s.board.IsLoading = true
		s.board.Error = ""
	})
	if !ok {
		return
	}

	entries, err := s.gateway.Leaderboard(ctx, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardInFlight = false
	if !s.alive.Load() {
		return
	}
	if err != nil {
		log.Printf("Leaderboard fetch failed, serving fallback: %v", err)
		s.board = leaderboard.Board{Entries: fallbackLeaderboard(), Error: err.Error()}
		monitoring.RecordFetch("leaderboard", "fallback")
		return
	}
	s.board = leaderboard.Board{Entries: entries}
	monitoring.RecordFetch("leaderboard", "ok")
}

// CompleteDailyQuest marks the quest done locally before the server
// confirms, so the screen flips instantly. A confirmed completion triggers
// a stats refetch (streak and points changed server-side); a rejection or
// transport failure rolls the speculative mark back by refetching the
// authoritative quest list. Every path either confirms or erases the local
// mutation.
func (s *SyncService) CompleteDailyQuest(ctx context.Context, questID, questName string) CompletionResult {
	if !s.alive.Load() {
		return CompletionResult{Error: "engine is shut down"}
	}

	s.mu.Lock()
	if s.completing[questID] {
		s.mu.Unlock()
		return CompletionResult{Error: "completion already in progress for quest " + questID}
	}
	s.completing[questID] = true
	for i := range s.quests.Quests {
		if s.quests.Quests[i].ID == questID {
			s.quests.Quests[i].Completed = true
			break
		}
	}
	s.quests.CompletedCount = quest.CountCompleted(s.quests.Quests)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.completing, questID)
		s.mu.Unlock()
	}()

	resp, err := s.gateway.CompleteQuest(ctx, questID)
	if err != nil {
		log.Printf("Completing quest %s (%s) failed: %v", questID, questName, err)
		monitoring.RecordCompletion("failed")
		s.fetchDailyQuests(ctx, true)
		return CompletionResult{Error: err.Error()}
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = resp.Message
		}
		if reason == "" {
			reason = "quest completion rejected"
		}
		log.Printf("Server rejected completion of quest %s (%s): %s", questID, questName, reason)
		monitoring.RecordCompletion("rejected")
		s.fetchDailyQuests(ctx, true)
		return CompletionResult{Error: reason}
	}

	monitoring.RecordCompletion("confirmed")
	s.fetchStreakStats(ctx, true)
	return CompletionResult{Success: true, Message: resp.Message, Data: resp.Data}
}

// RefreshAll fans out the three loads concurrently and waits for all of
// them to settle. A second RefreshAll while one is active is a no-op; a
// failing resource inside the fan-out is absorbed by its own fallback and
// does not abort the others.
func (s *SyncService) RefreshAll(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	defer s.refreshing.Store(false)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.fetchStreakStats(ctx, false)
	}()
	go func() {
		defer wg.Done()
		s.fetchDailyQuests(ctx, false)
	}()
	go func() {
		defer wg.Done()
		s.fetchLeaderboard(ctx, defaultLeaderboardLimit, false)
	}()
	wg.Wait()
}

// StreakStats returns a snapshot of the streak store.
func (s *SyncService) StreakStats() streak.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// DailyQuests returns a snapshot of the quest store. The quest slice is
// copied so readers never observe a later in-place mutation.
func (s *SyncService) DailyQuests() quest.DailySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.quests
	out.Quests = append([]quest.Quest(nil), s.quests.Quests...)
	return out
}

// Leaderboard returns a snapshot of the leaderboard store.
func (s *SyncService) Leaderboard() leaderboard.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.board
	out.Entries = append([]leaderboard.Entry(nil), s.board.Entries...)
	return out
}

// IsLoading reports whether any of the three resources is currently loading.
func (s *SyncService) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.IsLoading || s.quests.IsLoading || s.board.IsLoading
}

// Err returns the first non-empty resource error, or "".
func (s *SyncService) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range []string{s.stats.Error, s.quests.Error, s.board.Error} {
		if e != "" {
			return e
		}
	}
	return ""
}
