package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"webui-dashboard-api/pkg/models"
)

// ErrInvalidParameter marks a malformed query parameter.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	// DefaultWindowDays is the length of the daily window when from is omitted.
	DefaultWindowDays = 30

	DefaultRecentLimit  = 20
	MaxRecentLimit      = 100
	RecentFeedbackLimit = 10
)

// Window is an inclusive range of KST calendar dates together with its
// half-open epoch-second bounds [Start, End).
type Window struct {
	From  time.Time
	To    time.Time
	Start int64
	End   int64
}

// Empty reports whether the window contains no dates.
func (w Window) Empty() bool {
	return w.From.After(w.To)
}

// ParseWindow resolves the optional from/to dates of the daily report.
// A missing to is today in KST and a missing from is 29 days before to.
func ParseWindow(from, to string, now time.Time) (Window, error) {
	var w Window

	to = strings.TrimSpace(to)
	if to == "" {
		w.To = midnight(now.In(models.KST))
	} else {
		d, err := parseDate("to", to)
		if err != nil {
			return Window{}, err
		}
		w.To = d
	}

	from = strings.TrimSpace(from)
	if from == "" {
		w.From = w.To.AddDate(0, 0, -(DefaultWindowDays - 1))
	} else {
		d, err := parseDate("from", from)
		if err != nil {
			return Window{}, err
		}
		w.From = d
	}

	w.Start = w.From.Unix()
	w.End = w.To.AddDate(0, 0, 1).Unix()
	return w, nil
}

func parseDate(name, value string) (time.Time, error) {
	d, err := time.ParseInLocation(models.DateLayout, value, models.KST)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date, got %q", ErrInvalidParameter, name, value)
	}
	return d, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseLimit reads the recent-chats limit. Empty means the default.
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRecentLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxRecentLimit {
		return 0, fmt.Errorf("%w: limit must be an integer between 1 and %d", ErrInvalidParameter, MaxRecentLimit)
	}
	return n, nil
}
