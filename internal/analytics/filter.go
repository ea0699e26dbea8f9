// AngelaMos | 2026
// filter.go

package analytics

import (
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/carterperez-dev/flashdeck/internal/core"
	"github.com/carterperez-dev/flashdeck/internal/flashcard"
)

const (
	MsgInvalidTimezone   = "Invalid timezone"
	MsgInvalidDate       = "Invalid date format"
	MsgInvalidDateRange  = "Invalid date range"
	MsgInvalidDifficulty = "Invalid difficulty"
)

const dateLayout = "2006-01-02"

// Filter narrows the study rows an aggregator reads. From is inclusive and
// To is exclusive; both are day boundaries in Location.
type Filter struct {
	Subject    *string
	From       *time.Time
	To         *time.Time
	Difficulty *string
	Location   *time.Location
}

func (f Filter) Loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// ParseFilter reads subject, dateRange, difficulty and timezone. Every
// failure is a 400 carrying the message the client is expected to show.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	loc, err := parseTimezone(q.Get("timezone"))
	if err != nil {
		return Filter{}, err
	}
	f.Location = loc

	if subject := strings.TrimSpace(q.Get("subject")); subject != "" {
		f.Subject = &subject
	}

	if raw := strings.TrimSpace(q.Get("difficulty")); raw != "" {
		d := flashcard.NormalizeDifficulty(raw)
		if !flashcard.IsKnownDifficulty(d) {
			return Filter{}, core.ValidationError(MsgInvalidDifficulty)
		}
		f.Difficulty = &d
	}

	if raw := strings.TrimSpace(q.Get("dateRange")); raw != "" {
		from, to, err := parseDateRange(raw, loc)
		if err != nil {
			return Filter{}, err
		}
		f.From = from
		f.To = to
	}

	return f, nil
}

func parseTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	// Local would leak the server zone.
	if name == "Local" {
		return nil, core.ValidationError(MsgInvalidTimezone)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, core.ValidationError(MsgInvalidTimezone)
	}
	return loc, nil
}

// parseDateRange accepts "start" or "start,end". A single date is a lower
// bound only; a pair covers both days in full.
func parseDateRange(raw string, loc *time.Location) (*time.Time, *time.Time, error) {
	parts := strings.Split(raw, ",")
	if len(parts) > 2 {
		return nil, nil, core.ValidationError(MsgInvalidDate)
	}

	start, err := parseDay(parts[0], loc)
	if err != nil {
		return nil, nil, err
	}

	if len(parts) == 1 {
		return &start, nil, nil
	}

	end, err := parseDay(parts[1], loc)
	if err != nil {
		return nil, nil, err
	}

	if start.After(end) {
		return nil, nil, core.ValidationError(MsgInvalidDateRange)
	}

	until := end.AddDate(0, 0, 1)
	return &start, &until, nil
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, core.ValidationError(MsgInvalidDate)
	}

	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), nil
}
