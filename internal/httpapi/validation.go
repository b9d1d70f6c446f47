package httpapi

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"planloom/internal/domain"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,24}$`)

func validUsername(s string) bool {
	return usernameRe.MatchString(s)
}

func validPassword(s string) bool {
	return len(s) >= 12
}

// parseDate accepts a calendar date and pins it to UTC midnight, the form
// project and event start dates are stored in.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// parseTimeOfDay turns "HH:MM" into minutes since midnight.
func parseTimeOfDay(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func parseEventKind(s string) (domain.EventKind, bool) {
	switch domain.EventKind(s) {
	case domain.EventKindTask:
		return domain.EventKindTask, true
	case domain.EventKindActivity:
		return domain.EventKindActivity, true
	}
	return "", false
}

func parseEventStatus(s string) (domain.EventStatus, bool) {
	st := domain.EventStatus(s)
	return st, domain.ValidEventStatus(st)
}

func parseWeekStart(s string) (domain.WeekStart, bool) {
	switch domain.WeekStart(s) {
	case domain.WeekStartMonday:
		return domain.WeekStartMonday, true
	case domain.WeekStartSunday:
		return domain.WeekStartSunday, true
	}
	return "", false
}

func parseDateFormat(s string) (domain.DateFormat, bool) {
	switch domain.DateFormat(s) {
	case domain.DateFormatDMY:
		return domain.DateFormatDMY, true
	case domain.DateFormatMDY:
		return domain.DateFormatMDY, true
	case domain.DateFormatYMD:
		return domain.DateFormatYMD, true
	}
	return "", false
}

// checkEventShape enforces the cross-field rules shared by event and event
// template payloads: tasks always span a single day.
func checkEventShape(fields map[string]string, name string, kind domain.EventKind, durationDays int) {
	if strings.TrimSpace(name) == "" {
		fields["name"] = "required"
	}
	if durationDays < 1 {
		fields["durationDays"] = "must be at least 1"
	}
	if kind == domain.EventKindTask && durationDays != 1 {
		fields["durationDays"] = "tasks span exactly one day"
	}
}
