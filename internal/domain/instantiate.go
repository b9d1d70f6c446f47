package domain

import (
	"fmt"
	"time"
)

// EventFromTemplate builds a live event from an event template and the
// project's start date. The start date is expected at UTC midnight.
func EventFromTemplate(tpl EventTemplate, projectStart time.Time) Event {
	id := tpl.ID
	return Event{
		Name:                 tpl.Name,
		StartDate:            projectStart.AddDate(0, 0, tpl.OffsetDays),
		DurationDays:         tpl.DurationDays,
		Note:                 tpl.Note,
		Kind:                 tpl.Kind,
		AutoReschedule:       tpl.AutoReschedule,
		Status:               EventStatusNotStarted,
		NotificationsEnabled: true,
		TemplateID:           &id,
	}
}

// ReminderFromTemplate derives the absolute trigger instant from the offset
// form. This is the only place the offset form is ever interpreted; from
// here on the instant is authoritative.
func ReminderFromTemplate(tpl ReminderTemplate, eventStart time.Time) Reminder {
	id := tpl.ID
	day := eventStart.AddDate(0, 0, -tpl.DaysBefore)
	trigger := time.Date(day.Year(), day.Month(), day.Day(), 0, tpl.TimeOfDayMinutes, 0, 0, time.UTC)
	return Reminder{
		TriggerAt:      trigger,
		EmailEnabled:   tpl.EmailEnabled,
		DesktopEnabled: tpl.DesktopEnabled,
		TemplateID:     &id,
	}
}

func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
