package mock

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	inDaysRe  = regexp.MustCompile(`^in (\d+) days?$`)
	inWeeksRe = regexp.MustCompile(`^in (\d+) weeks?$`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

// resolveDate turns a date expression into an ISO date relative to ref.
// Weekday names, with or without "next" or "on", mean the first such day
// after ref.
func resolveDate(expr string, ref time.Time) (string, bool) {
	e := strings.Trim(strings.ToLower(strings.TrimSpace(expr)), ".!?")
	e = strings.TrimPrefix(e, "on ")

	switch e {
	case "today":
		return ref.Format(time.DateOnly), true
	case "tomorrow":
		return ref.AddDate(0, 0, 1).Format(time.DateOnly), true
	case "day after tomorrow", "the day after tomorrow":
		return ref.AddDate(0, 0, 2).Format(time.DateOnly), true
	case "next week":
		return ref.AddDate(0, 0, 7).Format(time.DateOnly), true
	}

	if m := inDaysRe.FindStringSubmatch(e); m != nil {
		n, _ := strconv.Atoi(m[1])
		return ref.AddDate(0, 0, n).Format(time.DateOnly), true
	}
	if m := inWeeksRe.FindStringSubmatch(e); m != nil {
		n, _ := strconv.Atoi(m[1])
		return ref.AddDate(0, 0, 7*n).Format(time.DateOnly), true
	}
	if isoDateRe.MatchString(e) {
		if _, err := time.Parse(time.DateOnly, e); err == nil {
			return e, true
		}
	}

	name := strings.TrimPrefix(strings.TrimPrefix(e, "next "), "this ")
	if wd, ok := weekdays[name]; ok {
		diff := (int(wd) - int(ref.Weekday()) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return ref.AddDate(0, 0, diff).Format(time.DateOnly), true
	}
	return "", false
}
