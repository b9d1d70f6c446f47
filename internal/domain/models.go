package domain

import "time"

type WeekStart string

const (
	WeekStartMonday WeekStart = "monday"
	WeekStartSunday WeekStart = "sunday"
)

type DateFormat string

const (
	DateFormatDMY DateFormat = "dmy"
	DateFormatMDY DateFormat = "mdy"
	DateFormatYMD DateFormat = "ymd"
)

type EventKind string

const (
	EventKindTask     EventKind = "task"
	EventKindActivity EventKind = "activity"
)

type EventStatus string

const (
	EventStatusNotStarted EventStatus = "not_started"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
)

func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventStatusNotStarted, EventStatusInProgress, EventStatusCompleted:
		return true
	}
	return false
}

type User struct {
	ID        int64
	Email     string
	Username  string
	CreatedAt time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type UserSettings struct {
	UserID               int64
	WeekStart            WeekStart
	DateFormat           DateFormat
	EmailNotifications   bool
	DesktopNotifications bool
}

func DefaultSettings(userID int64) UserSettings {
	return UserSettings{
		UserID:               userID,
		WeekStart:            WeekStartMonday,
		DateFormat:           DateFormatYMD,
		EmailNotifications:   true,
		DesktopNotifications: true,
	}
}

type ExternalAccount struct {
	ID         int64
	UserID     int64
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

// Session.ID is the SHA-256 digest of the bearer token, never the token
// itself; the raw token only ever lives in the client's cookie.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Tag struct {
	ID     int64
	UserID int64
	Name   string
}

type ProjectTemplate struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type EventTemplate struct {
	ID                int64
	ProjectTemplateID int64
	Name              string
	OffsetDays        int
	DurationDays      int
	Note              string
	Kind              EventKind
	AutoReschedule    bool
	UpdatedAt         time.Time
}

// ReminderTemplate holds the offset form of a reminder: days before the
// event plus a time of day, in minutes since midnight. The absolute trigger
// instant is derived once, at instantiation time.
type ReminderTemplate struct {
	ID               int64
	EventTemplateID  int64
	DaysBefore       int
	TimeOfDayMinutes int
	EmailEnabled     bool
	DesktopEnabled   bool
}

type Project struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	StartDate   time.Time
	TemplateID  *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Event struct {
	ID                   int64
	ProjectID            int64
	Name                 string
	StartDate            time.Time
	DurationDays         int
	Note                 string
	Kind                 EventKind
	AutoReschedule       bool
	Status               EventStatus
	NotificationsEnabled bool
	TemplateID           *int64
	UpdatedAt            time.Time
}

// Reminder stores the canonical absolute trigger instant. JobHandle is
// non-nil exactly while a dispatch job is outstanding with the job runner.
// FiredAt marks a dispatched reminder; moving the trigger resets it.
type Reminder struct {
	ID             int64
	EventID        int64
	TriggerAt      time.Time
	EmailEnabled   bool
	DesktopEnabled bool
	JobHandle      *int64
	FiredAt        *time.Time
	TemplateID     *int64
}

type NotificationToken struct {
	UserID    int64
	Token     string
	Platform  string
	UpdatedAt time.Time
}

// Expanded read results (template graph, project graph), assembled from flat
// rows by the store's grouping step.

type EventTemplateGraph struct {
	EventTemplate
	Reminders []ReminderTemplate
	Tags      []Tag
}

type ProjectTemplateGraph struct {
	ProjectTemplate
	EventTemplates []EventTemplateGraph
}

type EventGraph struct {
	Event
	Reminders []Reminder
	Tags      []Tag
}

type ProjectGraph struct {
	Project
	Events []EventGraph
}
