package httpapi

import (
	"time"

	"planloom/internal/codec"
	"planloom/internal/domain"
)

// Response DTOs. Row identifiers never leave the service as integers; every
// id below is the codec's opaque form.

type userView struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type settingsView struct {
	WeekStart            string `json:"weekStart"`
	DateFormat           string `json:"dateFormat"`
	EmailNotifications   bool   `json:"emailNotifications"`
	DesktopNotifications bool   `json:"desktopNotifications"`
}

type tagView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type reminderTemplateView struct {
	ID             string `json:"id"`
	DaysBefore     int    `json:"daysBefore"`
	TimeOfDay      string `json:"timeOfDay"`
	EmailEnabled   bool   `json:"emailEnabled"`
	DesktopEnabled bool   `json:"desktopEnabled"`
}

type eventTemplateView struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	OffsetDays     int                    `json:"offsetDays"`
	DurationDays   int                    `json:"durationDays"`
	Note           string                 `json:"note"`
	Kind           string                 `json:"kind"`
	AutoReschedule bool                   `json:"autoReschedule"`
	Reminders      []reminderTemplateView `json:"reminders"`
	Tags           []tagView              `json:"tags"`
}

type projectTemplateView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type projectTemplateGraphView struct {
	projectTemplateView
	EventTemplates []eventTemplateView `json:"eventTemplates"`
}

type reminderView struct {
	ID             string `json:"id"`
	TriggerAt      string `json:"triggerAt"`
	EmailEnabled   bool   `json:"emailEnabled"`
	DesktopEnabled bool   `json:"desktopEnabled"`
	Scheduled      bool   `json:"scheduled"`
	Fired          bool   `json:"fired"`
}

type eventView struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	StartDate            string         `json:"startDate"`
	DurationDays         int            `json:"durationDays"`
	Note                 string         `json:"note"`
	Kind                 string         `json:"kind"`
	AutoReschedule       bool           `json:"autoReschedule"`
	Status               string         `json:"status"`
	NotificationsEnabled bool           `json:"notificationsEnabled"`
	Reminders            []reminderView `json:"reminders"`
	Tags                 []tagView      `json:"tags"`
}

type projectView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	TemplateID  string `json:"templateId,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type projectGraphView struct {
	projectView
	Events []eventView `json:"events"`
}

type tokenView struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func toUserView(u domain.User) userView {
	return userView{
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSettingsView(st domain.UserSettings) settingsView {
	return settingsView{
		WeekStart:            string(st.WeekStart),
		DateFormat:           string(st.DateFormat),
		EmailNotifications:   st.EmailNotifications,
		DesktopNotifications: st.DesktopNotifications,
	}
}

func (a *api) toTagView(t domain.Tag) (tagView, error) {
	id, err := a.codec.Encode(codec.KindTag, t.ID)
	if err != nil {
		return tagView{}, err
	}
	return tagView{ID: id, Name: t.Name}, nil
}

func (a *api) toTagViews(tags []domain.Tag) ([]tagView, error) {
	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		v, err := a.toTagView(t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (a *api) toReminderTemplateView(r domain.ReminderTemplate) (reminderTemplateView, error) {
	id, err := a.codec.Encode(codec.KindReminderTemplate, r.ID)
	if err != nil {
		return reminderTemplateView{}, err
	}
	return reminderTemplateView{
		ID:             id,
		DaysBefore:     r.DaysBefore,
		TimeOfDay:      domain.FormatTimeOfDay(r.TimeOfDayMinutes),
		EmailEnabled:   r.EmailEnabled,
		DesktopEnabled: r.DesktopEnabled,
	}, nil
}

func (a *api) toEventTemplateView(g domain.EventTemplateGraph) (eventTemplateView, error) {
	id, err := a.codec.Encode(codec.KindEventTemplate, g.ID)
	if err != nil {
		return eventTemplateView{}, err
	}

	reminders := make([]reminderTemplateView, 0, len(g.Reminders))
	for _, r := range g.Reminders {
		v, err := a.toReminderTemplateView(r)
		if err != nil {
			return eventTemplateView{}, err
		}
		reminders = append(reminders, v)
	}

	tags, err := a.toTagViews(g.Tags)
	if err != nil {
		return eventTemplateView{}, err
	}

	return eventTemplateView{
		ID:             id,
		Name:           g.Name,
		OffsetDays:     g.OffsetDays,
		DurationDays:   g.DurationDays,
		Note:           g.Note,
		Kind:           string(g.Kind),
		AutoReschedule: g.AutoReschedule,
		Reminders:      reminders,
		Tags:           tags,
	}, nil
}

func (a *api) toProjectTemplateView(t domain.ProjectTemplate) (projectTemplateView, error) {
	id, err := a.codec.Encode(codec.KindProjectTemplate, t.ID)
	if err != nil {
		return projectTemplateView{}, err
	}
	return projectTemplateView{
		ID:          id,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (a *api) toProjectTemplateGraphView(g domain.ProjectTemplateGraph) (projectTemplateGraphView, error) {
	base, err := a.toProjectTemplateView(g.ProjectTemplate)
	if err != nil {
		return projectTemplateGraphView{}, err
	}

	events := make([]eventTemplateView, 0, len(g.EventTemplates))
	for _, et := range g.EventTemplates {
		v, err := a.toEventTemplateView(et)
		if err != nil {
			return projectTemplateGraphView{}, err
		}
		events = append(events, v)
	}

	return projectTemplateGraphView{projectTemplateView: base, EventTemplates: events}, nil
}

func (a *api) toReminderView(r domain.Reminder) (reminderView, error) {
	id, err := a.codec.Encode(codec.KindReminder, r.ID)
	if err != nil {
		return reminderView{}, err
	}
	return reminderView{
		ID:             id,
		TriggerAt:      r.TriggerAt.UTC().Format(time.RFC3339),
		EmailEnabled:   r.EmailEnabled,
		DesktopEnabled: r.DesktopEnabled,
		Scheduled:      r.JobHandle != nil,
		Fired:          r.FiredAt != nil,
	}, nil
}

func (a *api) toEventView(g domain.EventGraph) (eventView, error) {
	id, err := a.codec.Encode(codec.KindEvent, g.ID)
	if err != nil {
		return eventView{}, err
	}

	reminders := make([]reminderView, 0, len(g.Reminders))
	for _, r := range g.Reminders {
		v, err := a.toReminderView(r)
		if err != nil {
			return eventView{}, err
		}
		reminders = append(reminders, v)
	}

	tags, err := a.toTagViews(g.Tags)
	if err != nil {
		return eventView{}, err
	}

	return eventView{
		ID:                   id,
		Name:                 g.Name,
		StartDate:            g.StartDate.UTC().Format("2006-01-02"),
		DurationDays:         g.DurationDays,
		Note:                 g.Note,
		Kind:                 string(g.Kind),
		AutoReschedule:       g.AutoReschedule,
		Status:               string(g.Status),
		NotificationsEnabled: g.NotificationsEnabled,
		Reminders:            reminders,
		Tags:                 tags,
	}, nil
}

func (a *api) toProjectView(p domain.Project) (projectView, error) {
	id, err := a.codec.Encode(codec.KindProject, p.ID)
	if err != nil {
		return projectView{}, err
	}

	templateID := ""
	if p.TemplateID != nil {
		templateID, err = a.codec.Encode(codec.KindProjectTemplate, *p.TemplateID)
		if err != nil {
			return projectView{}, err
		}
	}

	return projectView{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate.UTC().Format("2006-01-02"),
		TemplateID:  templateID,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (a *api) toProjectGraphView(g domain.ProjectGraph) (projectGraphView, error) {
	base, err := a.toProjectView(g.Project)
	if err != nil {
		return projectGraphView{}, err
	}

	events := make([]eventView, 0, len(g.Events))
	for _, ev := range g.Events {
		v, err := a.toEventView(ev)
		if err != nil {
			return projectGraphView{}, err
		}
		events = append(events, v)
	}

	return projectGraphView{projectView: base, Events: events}, nil
}

func toTokenView(t domain.NotificationToken) tokenView {
	return tokenView{Token: t.Token, Platform: t.Platform}
}
