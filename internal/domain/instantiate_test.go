package domain

import (
	"testing"
	"time"
)

func TestEventFromTemplateOffsetsStartDate(t *testing.T) {
	tpl := EventTemplate{
		ID:             9,
		Name:           "Send invitations",
		OffsetDays:     14,
		DurationDays:   1,
		Note:           "use the short list",
		Kind:           EventKindTask,
		AutoReschedule: true,
	}
	projectStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ev := EventFromTemplate(tpl, projectStart)

	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if !ev.StartDate.Equal(want) {
		t.Fatalf("start date = %v, want %v", ev.StartDate, want)
	}
	if ev.Status != EventStatusNotStarted {
		t.Fatalf("status = %q, want %q", ev.Status, EventStatusNotStarted)
	}
	if !ev.NotificationsEnabled {
		t.Fatalf("expected notifications enabled by default")
	}
	if ev.TemplateID == nil || *ev.TemplateID != 9 {
		t.Fatalf("template id not carried over: %v", ev.TemplateID)
	}
	if ev.Name != tpl.Name || ev.Note != tpl.Note || ev.Kind != tpl.Kind || !ev.AutoReschedule {
		t.Fatalf("template fields not copied: %+v", ev)
	}
}

func TestEventFromTemplateNegativeOffset(t *testing.T) {
	tpl := EventTemplate{Name: "Order supplies", OffsetDays: -3, DurationDays: 1, Kind: EventKindTask}
	projectStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ev := EventFromTemplate(tpl, projectStart)

	want := time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC)
	if !ev.StartDate.Equal(want) {
		t.Fatalf("start date = %v, want %v", ev.StartDate, want)
	}
}

func TestReminderFromTemplateDerivesTrigger(t *testing.T) {
	tpl := ReminderTemplate{
		ID:               4,
		DaysBefore:       1,
		TimeOfDayMinutes: 9 * 60,
		EmailEnabled:     true,
	}
	eventStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := ReminderFromTemplate(tpl, eventStart)

	want := time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("trigger = %v, want %v", r.TriggerAt, want)
	}
	if !r.EmailEnabled || r.DesktopEnabled {
		t.Fatalf("channel flags not copied: %+v", r)
	}
	if r.TemplateID == nil || *r.TemplateID != 4 {
		t.Fatalf("template id not carried over: %v", r.TemplateID)
	}
}

func TestReminderFromTemplateSameDayAfternoon(t *testing.T) {
	tpl := ReminderTemplate{DaysBefore: 0, TimeOfDayMinutes: 16*60 + 30}
	eventStart := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	r := ReminderFromTemplate(tpl, eventStart)

	want := time.Date(2025, 6, 10, 16, 30, 0, 0, time.UTC)
	if !r.TriggerAt.Equal(want) {
		t.Fatalf("trigger = %v, want %v", r.TriggerAt, want)
	}
}

func TestFormatTimeOfDay(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{9 * 60, "09:00"},
		{16*60 + 5, "16:05"},
		{23*60 + 59, "23:59"},
	}
	for _, tc := range cases {
		if got := FormatTimeOfDay(tc.minutes); got != tc.want {
			t.Errorf("FormatTimeOfDay(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
