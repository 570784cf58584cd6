package leaderboard

type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Streak      int    `json:"streak"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

// Board is stored exactly as the server delivers it: entries ordered by
// rank ascending, ranks contiguous from 1. The client never re-sorts.
type Board struct {
	Entries   []Entry `json:"entries"`
	IsLoading bool    `json:"is_loading"`
	Error     string  `json:"error,omitempty"`
}
