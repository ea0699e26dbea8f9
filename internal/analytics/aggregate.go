// AngelaMos | 2026
// aggregate.go

package analytics

import (
	"math"
	"sort"
	"time"
)

// RecordRow is one study record joined to its card and deck.
type RecordRow struct {
	FlashcardID string    `db:"flashcard_id"`
	DeckName    string    `db:"deck_name"`
	IsCorrect   bool      `db:"is_correct"`
	TimeSpent   int       `db:"time_spent"`
	CreatedAt   time.Time `db:"created_at"`
}

type SessionRow struct {
	ID        string     `db:"id"`
	StartTime time.Time  `db:"start_time"`
	EndTime   *time.Time `db:"end_time"`
}

// SessionSummary is a session with its records already summed.
type SessionSummary struct {
	ID             string     `db:"id"`
	StartTime      time.Time  `db:"start_time"`
	EndTime        *time.Time `db:"end_time"`
	RecordCount    int        `db:"record_count"`
	TotalTimeSpent int        `db:"total_time_spent"`
}

type RetentionCurve struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

type Series struct {
	Label string     `json:"label"`
	Data  []*float64 `json:"data"`
}

type SubjectProgress struct {
	Labels   []string `json:"labels"`
	Datasets []Series `json:"datasets"`
}

type Heatmap [7][24]int

type TimeSpentEntry struct {
	SessionID          string  `json:"session_id"`
	Date               string  `json:"date"`
	Duration           float64 `json:"duration"`
	AverageTimePerCard float64 `json:"average_time_per_card"`
}

type IntervalPoint struct {
	Interval  float64 `json:"interval"`
	IsCorrect bool    `json:"is_correct"`
}

type tally struct {
	correct int
	total   int
}

func (t tally) percent() float64 {
	if t.total == 0 {
		return 0
	}
	return round2(float64(t.correct) / float64(t.total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func dayLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// BuildRetentionCurve buckets by UTC calendar date regardless of the
// requested timezone.
func BuildRetentionCurve(records []RecordRow) RetentionCurve {
	byDay := make(map[string]*tally)
	for _, r := range records {
		label := dayLabel(r.CreatedAt, time.UTC)
		t, ok := byDay[label]
		if !ok {
			t = &tally{}
			byDay[label] = t
		}
		t.total++
		if r.IsCorrect {
			t.correct++
		}
	}

	labels := sortedKeys(byDay)
	curve := RetentionCurve{
		Labels: labels,
		Data:   make([]float64, len(labels)),
	}
	for i, label := range labels {
		curve.Data[i] = byDay[label].percent()
	}

	return curve
}

// BuildSubjectProgress emits one series per deck name over the union of
// dates. A subject with no answers on a date gets null there.
func BuildSubjectProgress(records []RecordRow, loc *time.Location) SubjectProgress {
	if loc == nil {
		loc = time.UTC
	}

	bySubject := make(map[string]map[string]*tally)
	dates := make(map[string]struct{})

	for _, r := range records {
		label := dayLabel(r.CreatedAt, loc)
		dates[label] = struct{}{}

		days, ok := bySubject[r.DeckName]
		if !ok {
			days = make(map[string]*tally)
			bySubject[r.DeckName] = days
		}
		t, ok := days[label]
		if !ok {
			t = &tally{}
			days[label] = t
		}
		t.total++
		if r.IsCorrect {
			t.correct++
		}
	}

	labels := sortedKeys(dates)
	subjects := sortedKeys(bySubject)

	progress := SubjectProgress{
		Labels:   labels,
		Datasets: make([]Series, 0, len(subjects)),
	}
	for _, subject := range subjects {
		days := bySubject[subject]
		data := make([]*float64, len(labels))
		for i, label := range labels {
			if t, ok := days[label]; ok {
				v := t.percent()
				data[i] = &v
			}
		}
		progress.Datasets = append(progress.Datasets, Series{Label: subject, Data: data})
	}

	return progress
}

// BuildHeatmap counts session starts by weekday (0 is Sunday) and hour in
// loc.
func BuildHeatmap(sessions []SessionRow, loc *time.Location) Heatmap {
	if loc == nil {
		loc = time.UTC
	}

	var grid Heatmap
	for _, s := range sessions {
		local := s.StartTime.In(loc)
		grid[int(local.Weekday())][local.Hour()]++
	}
	return grid
}

// BuildTimeSpent reports duration in minutes and average card time in
// seconds. Open sessions and sessions without records report zero.
func BuildTimeSpent(sessions []SessionSummary, loc *time.Location) []TimeSpentEntry {
	if loc == nil {
		loc = time.UTC
	}

	entries := make([]TimeSpentEntry, 0, len(sessions))
	for _, s := range sessions {
		entry := TimeSpentEntry{
			SessionID: s.ID,
			Date:      dayLabel(s.StartTime, loc),
		}

		if s.EndTime != nil {
			entry.Duration = round2(s.EndTime.Sub(s.StartTime).Minutes())
		}
		if s.RecordCount > 0 {
			entry.AverageTimePerCard = round2(
				float64(s.TotalTimeSpent) / float64(s.RecordCount))
		}

		entries = append(entries, entry)
	}

	return entries
}

// BuildReviewIntervals pairs the gap in days between consecutive answers on
// the same card with whether the later answer was correct. Input must be
// ordered by time ascending.
func BuildReviewIntervals(records []RecordRow) []IntervalPoint {
	byCard := make(map[string][]RecordRow)
	var order []string

	for _, r := range records {
		if _, ok := byCard[r.FlashcardID]; !ok {
			order = append(order, r.FlashcardID)
		}
		byCard[r.FlashcardID] = append(byCard[r.FlashcardID], r)
	}

	points := make([]IntervalPoint, 0)
	for _, id := range order {
		history := byCard[id]
		for i := 1; i < len(history); i++ {
			gap := history[i].CreatedAt.Sub(history[i-1].CreatedAt).Hours() / 24
			points = append(points, IntervalPoint{
				Interval:  round2(gap),
				IsCorrect: history[i].IsCorrect,
			})
		}
	}

	return points
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
