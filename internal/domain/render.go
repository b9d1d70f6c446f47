package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationContent is rendered from the event snapshot read at fire time,
// never from data captured when the job was scheduled.
type NotificationContent struct {
	Subject string
	Text    string
	Data    map[string]string
}

func RenderReminderNotification(ev Event, projectName string, triggerAt time.Time) NotificationContent {
	subject := fmt.Sprintf("Reminder: %s", ev.Name)

	end := ev.StartDate.AddDate(0, 0, ev.DurationDays-1)
	lines := []string{
		fmt.Sprintf("%q in project %q is coming up.", ev.Name, projectName),
		"",
		"Starts: " + ev.StartDate.Format("2006-01-02"),
	}
	if ev.DurationDays > 1 {
		lines = append(lines, "Ends: "+end.Format("2006-01-02"))
	}
	lines = append(lines, "Status: "+statusLabel(ev.Status))
	if note := strings.TrimSpace(ev.Note); note != "" {
		lines = append(lines, "", note)
	}

	return NotificationContent{
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
		Data: map[string]string{
			"type":       "reminder",
			"event_name": ev.Name,
			"event_kind": string(ev.Kind),
			"start_date": ev.StartDate.Format("2006-01-02"),
			"status":     string(ev.Status),
			"trigger_at": triggerAt.UTC().Format(time.RFC3339),
		},
	}
}

func statusLabel(s EventStatus) string {
	switch s {
	case EventStatusInProgress:
		return "in progress"
	case EventStatusCompleted:
		return "completed"
	default:
		return "not started"
	}
}
