package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"planloom/internal/codec"
	"planloom/internal/domain"
)

type reminderRequest struct {
	TriggerAt      string `json:"triggerAt"`
	EmailEnabled   bool   `json:"emailEnabled"`
	DesktopEnabled bool   `json:"desktopEnabled"`
}

type reminderUpdateRequest struct {
	ID string `json:"id"`
	reminderRequest
}

type createEventRequest struct {
	Name                 string            `json:"name"`
	StartDate            string            `json:"startDate"`
	DurationDays         int               `json:"durationDays"`
	Note                 string            `json:"note"`
	Kind                 string            `json:"kind"`
	AutoReschedule       bool              `json:"autoReschedule"`
	NotificationsEnabled bool              `json:"notificationsEnabled"`
	TagNames             []string          `json:"tagNames"`
	Reminders            []reminderRequest `json:"reminders"`
}

type updateEventRequest struct {
	Name                 string `json:"name"`
	StartDate            string `json:"startDate"`
	DurationDays         int    `json:"durationDays"`
	Note                 string `json:"note"`
	Kind                 string `json:"kind"`
	AutoReschedule       bool   `json:"autoReschedule"`
	Status               string `json:"status"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`

	DeleteReminderIDs []string                `json:"deleteReminderIds"`
	UpdateReminders   []reminderUpdateRequest `json:"updateReminders"`
	AddReminders      []reminderRequest       `json:"addReminders"`
	TagNames          []string                `json:"tagNames"`
}

func (a *api) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	projectID, err := a.codec.Decode(codec.KindProject, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	kind, ok := parseEventKind(req.Kind)
	if !ok {
		fields["kind"] = "must be task or activity"
	}
	checkEventShape(fields, req.Name, kind, req.DurationDays)
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		fields["startDate"] = "must be YYYY-MM-DD"
	}
	reminders := reminderInputs(req.Reminders, fields, "reminders")
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	graph, err := a.eventSvc.Create(r.Context(), u.ID, projectID, domain.EventInput{
		Name:                 req.Name,
		StartDate:            startDate,
		DurationDays:         req.DurationDays,
		Note:                 req.Note,
		Kind:                 kind,
		AutoReschedule:       req.AutoReschedule,
		NotificationsEnabled: req.NotificationsEnabled,
		TagNames:             req.TagNames,
		Reminders:            reminders,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toEventView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindEvent, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	graph, err := a.eventSvc.Get(r.Context(), u.ID, id)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toEventView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handleUpdateEvent applies an event mutation. Reminder deletions, moves and
// additions ride along in one payload so the scheduler reconciliation happens
// against a single committed write.
func (a *api) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindEvent, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	kind, ok := parseEventKind(req.Kind)
	if !ok {
		fields["kind"] = "must be task or activity"
	}
	checkEventShape(fields, req.Name, kind, req.DurationDays)
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		fields["startDate"] = "must be YYYY-MM-DD"
	}
	status, ok := parseEventStatus(req.Status)
	if !ok {
		fields["status"] = "must be not_started, in_progress or completed"
	}

	upd := domain.EventUpdate{
		ID:                   id,
		Name:                 req.Name,
		StartDate:            startDate,
		DurationDays:         req.DurationDays,
		Note:                 req.Note,
		Kind:                 kind,
		AutoReschedule:       req.AutoReschedule,
		Status:               status,
		NotificationsEnabled: req.NotificationsEnabled,
		TagNames:             req.TagNames,
	}

	upd.DeleteReminderIDs, err = a.codec.DecodeSet(codec.KindReminder, req.DeleteReminderIDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	for i, ur := range req.UpdateReminders {
		rid, err := a.codec.Decode(codec.KindReminder, ur.ID)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		trigger, err := time.Parse(time.RFC3339, ur.TriggerAt)
		if err != nil {
			fields[fmt.Sprintf("updateReminders[%d].triggerAt", i)] = "must be RFC 3339"
			continue
		}
		upd.UpdateReminders = append(upd.UpdateReminders, domain.ReminderUpdate{
			ID:             rid,
			TriggerAt:      trigger.UTC(),
			EmailEnabled:   ur.EmailEnabled,
			DesktopEnabled: ur.DesktopEnabled,
		})
	}

	upd.AddReminders = reminderInputs(req.AddReminders, fields, "addReminders")

	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	graph, err := a.eventSvc.Update(r.Context(), u.ID, upd)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toEventView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleDeleteEvents(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req deleteIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		a.writeDomainError(w, r, domain.NewValidationError(map[string]string{"ids": "required"}))
		return
	}

	ids, err := a.codec.DecodeSet(codec.KindEvent, req.IDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	if err := a.eventSvc.Delete(r.Context(), u.ID, ids); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reminderInputs(reqs []reminderRequest, fields map[string]string, prefix string) []domain.ReminderInput {
	out := make([]domain.ReminderInput, 0, len(reqs))
	for i, rr := range reqs {
		trigger, err := time.Parse(time.RFC3339, rr.TriggerAt)
		if err != nil {
			fields[fmt.Sprintf("%s[%d].triggerAt", prefix, i)] = "must be RFC 3339"
			continue
		}
		out = append(out, domain.ReminderInput{
			TriggerAt:      trigger.UTC(),
			EmailEnabled:   rr.EmailEnabled,
			DesktopEnabled: rr.DesktopEnabled,
		})
	}
	return out
}
