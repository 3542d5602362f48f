package analytics

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"concept-memory/internal/storage"
)

// DailyStats summarizes one day of journaled exchanges.
type DailyStats struct {
	Date           string              `json:"date"`
	TotalMessages  int                 `json:"total_messages"`
	UniqueUsers    int                 `json:"unique_users"`
	ConceptsTotal  int                 `json:"concepts_total"`
	ConceptsByName map[string]int      `json:"concepts_by_name"`
	UserStats      map[int64]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID   int64 `json:"user_id"`
	Messages int   `json:"messages"`
	Concepts int   `json:"concepts"`
}

// AnalyzeDailyExchanges counts the exchanges that happened on the day of targetDate.
// Exchanges without user text are bot-initiated and are skipped.
func AnalyzeDailyExchanges(exchanges []storage.Exchange, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:           startOfDay.Format("2006-01-02"),
		ConceptsByName: make(map[string]int),
		UserStats:      make(map[int64]UserStats),
	}

	for _, ex := range exchanges {
		if ex.Timestamp.Before(startOfDay) || !ex.Timestamp.Before(endOfDay) {
			continue
		}
		if ex.Text == "" {
			continue
		}
		stats.TotalMessages++
		us, ok := stats.UserStats[ex.UserID]
		if !ok {
			us = UserStats{UserID: ex.UserID}
		}
		us.Messages++
		for _, c := range ex.Concepts {
			stats.ConceptsTotal++
			stats.ConceptsByName[c]++
			us.Concepts++
		}
		stats.UserStats[ex.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// TopMentioned returns up to n concept names by mention count, ties alphabetical.
func (ds *DailyStats) TopMentioned(n int) []string {
	names := make([]string, 0, len(ds.ConceptsByName))
	for c := range ds.ConceptsByName {
		names = append(names, c)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := ds.ConceptsByName[b] - ds.ConceptsByName[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}

// GenerateReportSummary renders the day as plain text for a chat message.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- messages: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- unique users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&b, "- concepts extracted: %d\n", ds.ConceptsTotal)

	if top := ds.TopMentioned(10); len(top) > 0 {
		b.WriteString("\nMost mentioned concepts:\n")
		for _, c := range top {
			fmt.Fprintf(&b, "- %s: %d\n", c, ds.ConceptsByName[c])
		}
	}

	users := make([]int64, 0, len(ds.UserStats))
	for id := range ds.UserStats {
		users = append(users, id)
	}
	slices.Sort(users)
	fmt.Fprintf(&b, "\nUsers (%d):\n", len(users))
	for _, id := range users {
		us := ds.UserStats[id]
		fmt.Fprintf(&b, "- user %d: %d messages, %d concepts\n", id, us.Messages, us.Concepts)
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
