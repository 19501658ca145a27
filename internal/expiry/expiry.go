// Package expiry classifies passports by how close they are to expiring and
// builds the filtered and aggregated views shown on the dashboard and list.
//
// Every function here is pure: callers pass the snapshot and the evaluation
// instant, and nothing is cached between calls because "today" moves.
package expiry

import (
	"math"
	"strings"
	"time"

	"github.com/hitoshi/passdesk/internal/model"
)

const (
	// UrgentDays is the inclusive upper bound of the urgent band.
	UrgentDays = 7
	// WarningDays is the inclusive upper bound of the warning band.
	WarningDays = 30
)

const day = 24 * time.Hour

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses a stored date. A bare calendar date is read as midnight UTC.
// The second return value is false for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysRemaining returns ceil((expiry - now) / 1 day).
// ok is false when the expiry date is missing or malformed.
func DaysRemaining(expiryDate string, now time.Time) (days int, ok bool) {
	exp, ok := ParseDate(expiryDate)
	if !ok {
		return 0, false
	}
	diff := exp.Sub(now)
	return int(math.Ceil(float64(diff) / float64(day))), true
}

// Classify assigns the expiry status of a passport at instant now.
// Missing or malformed dates classify as valid.
func Classify(expiryDate string, now time.Time) model.ExpiryStatus {
	days, ok := DaysRemaining(expiryDate, now)
	return classifyDays(days, ok)
}

func classifyDays(days int, ok bool) model.ExpiryStatus {
	switch {
	case !ok:
		return model.ExpiryValid
	case days < 0:
		return model.ExpiryExpired
	case days <= UrgentDays:
		return model.ExpiryUrgent
	case days <= WarningDays:
		return model.ExpiryWarning
	default:
		return model.ExpiryValid
	}
}

// Annotate classifies each record at instant now. The input is not modified.
func Annotate(records []model.Passport, now time.Time) []model.ClassifiedPassport {
	out := make([]model.ClassifiedPassport, len(records))
	for i, p := range records {
		days, ok := DaysRemaining(p.ExpiryDate, now)
		out[i] = model.ClassifiedPassport{
			Passport:     p,
			ExpiryStatus: classifyDays(days, ok),
		}
		if ok {
			d := days
			out[i].DaysRemaining = &d
		}
	}
	return out
}

// Filter returns the records whose full name, passport number or nationality
// contains query, compared case-insensitively. Order is preserved and an empty
// query matches everything. The returned slice never aliases records.
func Filter(records []model.Passport, query string) []model.Passport {
	q := strings.ToLower(query)
	out := make([]model.Passport, 0, len(records))
	for _, p := range records {
		if q == "" ||
			strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.PassportNumber), q) ||
			strings.Contains(strings.ToLower(p.Nationality), q) {
			out = append(out, p)
		}
	}
	return out
}

// Summary holds the dashboard counters. Warning merges the warning and
// urgent bands; Total is always Active + Warning + Expired.
type Summary struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Warning int `json:"warning"`
	Expired int `json:"expired"`
}

// Summarize counts every record into exactly one bucket.
func Summarize(records []model.Passport, now time.Time) Summary {
	var s Summary
	for _, p := range records {
		s.add(Classify(p.ExpiryDate, now))
	}
	return s
}

// SummarizeClassified is Summarize for records that were already annotated.
func SummarizeClassified(records []model.ClassifiedPassport) Summary {
	var s Summary
	for _, p := range records {
		s.add(p.ExpiryStatus)
	}
	return s
}

func (s *Summary) add(status model.ExpiryStatus) {
	switch status {
	case model.ExpiryExpired:
		s.Expired++
	case model.ExpiryWarning, model.ExpiryUrgent:
		s.Warning++
	default:
		s.Active++
	}
	s.Total++
}

// NeedsAttention returns up to limit records that are not valid, in snapshot order.
// A limit of zero or less returns all of them.
func NeedsAttention(records []model.ClassifiedPassport, limit int) []model.ClassifiedPassport {
	out := make([]model.ClassifiedPassport, 0)
	for _, p := range records {
		if p.ExpiryStatus == model.ExpiryValid {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
