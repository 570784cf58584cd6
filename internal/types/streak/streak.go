package streak

import "time"

// NextReset describes the next daily boundary and the countdown to it.
type NextReset struct {
	Time    time.Time `json:"time"`
	Hours   int       `json:"hours"`
	Minutes int       `json:"minutes"`
}

// Stats is the latest known streak snapshot for the signed-in user.
// It is replaced wholesale on every fetch, never merged field by field.
type Stats struct {
	CurrentStreak  int       `json:"current_streak"`
	LongestStreak  int       `json:"longest_streak"`
	DailyCompleted int       `json:"daily_completed"`
	TotalPoints    int       `json:"total_points"`
	NextReset      NextReset `json:"next_reset"`
	Multiplier     float64   `json:"multiplier"`
	IsLoading      bool      `json:"is_loading"`
	Error          string    `json:"error,omitempty"`
}
