package services

import (
	"questStreakApp/internal/types/leaderboard"
	"questStreakApp/internal/types/quest"
	"questStreakApp/internal/types/streak"
)

// Fallback values shown when the engagement service is unreachable, so the
// screens never render empty because of a network failure. All values are
// fixed: two fetches during the same outage must produce identical records.

func fallbackStreakStats(reason string) streak.Stats {
	return streak.Stats{
		CurrentStreak:  3,
		LongestStreak:  7,
		DailyCompleted: 1,
		TotalPoints:    1250,
		NextReset:      streak.NextReset{Hours: 12, Minutes: 0},
		Multiplier:     1.5,
		Error:          reason,
	}
}

func fallbackDailyQuests() []quest.Quest {
	return []quest.Quest{
		{
			ID:           "fallback-q1",
			Name:         "Morning Check-in",
			Description:  "Open the app and review today's goals",
			Points:       50,
			Requirements: "Check in before noon",
		},
		{
			ID:           "fallback-q2",
			Name:         "Complete a Session",
			Description:  "Finish one full activity session",
			Points:       150,
			Requirements: "One session of any length",
		},
		{
			ID:           "fallback-q3",
			Name:         "Invite a Friend",
			Description:  "Share an invite link with a friend",
			Points:       200,
			Requirements: "Friend must open the link",
		},
	}
}

func fallbackLeaderboard() []leaderboard.Entry {
	return []leaderboard.Entry{
		{ID: "fallback-u1", Name: "Ava", Streak: 21, TotalPoints: 8400, Rank: 1},
		{ID: "fallback-u2", Name: "Noah", Streak: 17, TotalPoints: 7150, Rank: 2},
		{ID: "fallback-u3", Name: "Mia", Streak: 14, TotalPoints: 6020, Rank: 3},
		{ID: "fallback-u4", Name: "Leo", Streak: 9, TotalPoints: 4480, Rank: 4},
		{ID: "fallback-u5", Name: "Zoe", Streak: 5, TotalPoints: 2310, Rank: 5},
	}
}
