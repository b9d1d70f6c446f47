package domain

import "time"

// Mutation payloads. Field-level validation happens at the API boundary
// before these reach the mutation engine; the engine only enforces
// referential, uniqueness and ownership concerns.

type ReminderTemplateInput struct {
	DaysBefore       int
	TimeOfDayMinutes int
	EmailEnabled     bool
	DesktopEnabled   bool
}

type ReminderTemplateUpdate struct {
	ID               int64
	DaysBefore       int
	TimeOfDayMinutes int
	EmailEnabled     bool
	DesktopEnabled   bool
}

type EventTemplateInput struct {
	Name           string
	OffsetDays     int
	DurationDays   int
	Note           string
	Kind           EventKind
	AutoReschedule bool
	TagNames       []string
	Reminders      []ReminderTemplateInput
}

type EventTemplateUpdate struct {
	ID             int64
	Name           string
	OffsetDays     int
	DurationDays   int
	Note           string
	Kind           EventKind
	AutoReschedule bool

	DeleteReminderIDs []int64
	UpdateReminders   []ReminderTemplateUpdate
	AddReminders      []ReminderTemplateInput
	TagNames          []string
}

type ProjectTemplateUpdate struct {
	ID          int64
	Name        string
	Description string
}

// TemplateImport is an externally supplied template graph, e.g. a shared
// template file. Structurally identical to duplication except the source
// never touches the store.
type TemplateImport struct {
	Name           string
	Description    string
	EventTemplates []EventTemplateInput
}

type ReminderInput struct {
	TriggerAt      time.Time
	EmailEnabled   bool
	DesktopEnabled bool
}

type ReminderUpdate struct {
	ID             int64
	TriggerAt      time.Time
	EmailEnabled   bool
	DesktopEnabled bool
}

type EventInput struct {
	Name                 string
	StartDate            time.Time
	DurationDays         int
	Note                 string
	Kind                 EventKind
	AutoReschedule       bool
	NotificationsEnabled bool
	TagNames             []string
	Reminders            []ReminderInput
}

type EventUpdate struct {
	ID                   int64
	Name                 string
	StartDate            time.Time
	DurationDays         int
	Note                 string
	Kind                 EventKind
	AutoReschedule       bool
	Status               EventStatus
	NotificationsEnabled bool

	DeleteReminderIDs []int64
	UpdateReminders   []ReminderUpdate
	AddReminders      []ReminderInput
	TagNames          []string
}

type ProjectUpdate struct {
	ID          int64
	Name        string
	Description string
	StartDate   time.Time
}

// EventWriteResult carries what the scheduler needs after an event mutation
// commits: the fresh graph, handles whose jobs must be cancelled outright
// (deleted reminders), and per-reminder old handles for reminders whose
// trigger moved and need a cancel-then-schedule pair.
type EventWriteResult struct {
	Graph            EventGraph
	CancelledHandles []int64
	RescheduleOld    map[int64]int64
}

// DispatchView is the fresh read performed at fire time.
type DispatchView struct {
	Reminder    Reminder
	Event       Event
	ProjectName string
	User        User
	Settings    UserSettings
}
