// Package mockserver is an in-process stand-in for the remote engagement
// service. It implements the same wire contract the real service exposes
// (streak stats, today's quests, quest completion, leaderboard) over an
// in-memory state, so the daemon can run self-contained and the tests get
// a realistic remote.
package mockserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type questState struct {
	ID           string
	Name         string
	Description  string
	Points       int
	Requirements string
	Completed    bool
}

type entryState struct {
	ID          string
	Name        string
	Streak      int
	TotalPoints int
	Rank        int
}

type Server struct {
	signingKey []byte

	mu             sync.Mutex
	quests         []questState
	currentStreak  int
	longestStreak  int
	dailyCompleted int
	totalPoints    int
	multiplier     float64
	entries        []entryState
}

// New seeds a server with a fresh quest list and a small leaderboard.
// signingKey is the HMAC key bearer tokens must be signed with.
func New(signingKey []byte) *Server {
	s := &Server{
		signingKey:    signingKey,
		currentStreak: 4,
		longestStreak: 11,
		totalPoints:   980,
		multiplier:    1.2,
	}

	seed := []questState{
		{Name: "Morning Check-in", Description: "Open the app and review today's goals", Points: 50, Requirements: "Check in before noon"},
		{Name: "Complete a Session", Description: "Finish one full activity session", Points: 150, Requirements: "One session of any length"},
		{Name: "Invite a Friend", Description: "Share an invite link with a friend", Points: 200, Requirements: "Friend must open the link"},
	}
	for _, q := range seed {
		q.ID = uuid.NewString()
		s.quests = append(s.quests, q)
	}

	names := []string{"Ava", "Noah", "Mia", "Leo", "Zoe", "Finn", "Ivy", "Max"}
	for i, name := range names {
		s.entries = append(s.entries, entryState{
			ID:          uuid.NewString(),
			Name:        name,
			Streak:      30 - 3*i,
			TotalPoints: 9000 - 950*i,
			Rank:        i + 1,
		})
	}
	return s
}

// MintToken issues a bearer token the server's auth middleware accepts.
func (s *Server) MintToken(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Router builds the HTTP surface matching the engagement service contract.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.authMiddleware)

	r.HandleFunc("/streak/stats", s.getStreakStats).Methods("GET")
	r.HandleFunc("/streak/leaderboard", s.getLeaderboard).Methods("GET")
	r.HandleFunc("/daily-quests/today", s.getDailyQuests).Methods("GET")
	r.HandleFunc("/daily-quests/{id}/complete", s.completeQuest).Methods("POST")
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.signingKey, nil
		})
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) getStreakStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    s.statsPayload(),
	})
}

func (s *Server) getDailyQuests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]map[string]any, 0, len(s.quests))
	completed := 0
	for _, q := range s.quests {
		if q.Completed {
			completed++
		}
		data = append(data, map[string]any{
			"id":           q.ID,
			"name":         q.Name,
			"description":  q.Description,
			"points":       q.Points,
			"requirements": q.Requirements,
			"isCompleted":  q.Completed,
			"completed":    q.Completed,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
		"summary": map[string]int{"completed": completed, "total": len(s.quests)},
	})
}

func (s *Server) completeQuest(w http.ResponseWriter, r *http.Request) {
	questID := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.quests {
		if s.quests[i].ID != questID {
			continue
		}
		if s.quests[i].Completed {
			respondWithJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"error":   "quest already completed",
			})
			return
		}

		s.quests[i].Completed = true
		if s.dailyCompleted == 0 {
			s.currentStreak++
			if s.currentStreak > s.longestStreak {
				s.longestStreak = s.currentStreak
			}
		}
		s.dailyCompleted++
		earned := int(float64(s.quests[i].Points) * s.multiplier)
		s.totalPoints += earned

		respondWithJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": fmt.Sprintf("Quest '%s' completed, %d points earned", s.quests[i].Name, earned),
			"data":    map[string]any{"pointsEarned": earned},
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"error":   "quest not found",
	})
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	data := make([]map[string]any, 0, limit)
	for _, e := range s.entries[:limit] {
		data = append(data, map[string]any{
			"id":          e.ID,
			"name":        e.Name,
			"streak":      e.Streak,
			"totalPoints": e.TotalPoints,
			"rank":        e.Rank,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"data": data})
}

// QuestIDs returns the seeded quest ids in order, for callers driving the
// server from tests or the demo loop.
func (s *Server) QuestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.quests))
	for _, q := range s.quests {
		ids = append(ids, q.ID)
	}
	return ids
}

func (s *Server) statsPayload() map[string]any {
	now := time.Now().UTC()
	reset := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	untilReset := reset.Sub(now)

	return map[string]any{
		"currentStreak":  s.currentStreak,
		"longestStreak":  s.longestStreak,
		"dailyCompleted": s.dailyCompleted,
		"totalPoints":    s.totalPoints,
		"multiplier":     s.multiplier,
		"nextReset": map[string]any{
			"time":    reset,
			"hours":   int(untilReset.Hours()),
			"minutes": int(untilReset.Minutes()) % 60,
		},
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
