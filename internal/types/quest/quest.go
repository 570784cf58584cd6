package quest

// Quest is one assignable daily quest. Completed is the single canonical
// completion flag; the wire layer folds the server's isCompleted/completed
// pair into it before anything else sees the quest.
type Quest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Points       int    `json:"points"`
	Requirements string `json:"requirements"`
	Completed    bool   `json:"completed"`
}

// DailySet holds today's quest list. CompletedCount is derived from Quests
// and must be recomputed whenever the list changes.
type DailySet struct {
	Quests         []Quest `json:"quests"`
	CompletedCount int     `json:"completed_count"`
	TotalCount     int     `json:"total_count"`
	IsLoading      bool    `json:"is_loading"`
	Error          string  `json:"error,omitempty"`
}

// CountCompleted returns the number of completed quests in the list.
func CountCompleted(quests []Quest) int {
	n := 0
	for _, q := range quests {
		if q.Completed {
			n++
		}
	}
	return n
}

// NewDailySet builds a DailySet from a quest list with both counters
// recomputed from the list itself.
func NewDailySet(quests []Quest) DailySet {
	return DailySet{
		Quests:         quests,
		CompletedCount: CountCompleted(quests),
		TotalCount:     len(quests),
	}
}
