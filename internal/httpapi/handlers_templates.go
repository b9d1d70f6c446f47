package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"planloom/internal/codec"
	"planloom/internal/domain"
)

type projectTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type reminderTemplateRequest struct {
	DaysBefore     int    `json:"daysBefore"`
	TimeOfDay      string `json:"timeOfDay"`
	EmailEnabled   bool   `json:"emailEnabled"`
	DesktopEnabled bool   `json:"desktopEnabled"`
}

type reminderTemplateUpdateRequest struct {
	ID string `json:"id"`
	reminderTemplateRequest
}

type eventTemplateRequest struct {
	Name           string                    `json:"name"`
	OffsetDays     int                       `json:"offsetDays"`
	DurationDays   int                       `json:"durationDays"`
	Note           string                    `json:"note"`
	Kind           string                    `json:"kind"`
	AutoReschedule bool                      `json:"autoReschedule"`
	TagNames       []string                  `json:"tagNames"`
	Reminders      []reminderTemplateRequest `json:"reminders"`
}

type eventTemplateUpdateRequest struct {
	Name           string `json:"name"`
	OffsetDays     int    `json:"offsetDays"`
	DurationDays   int    `json:"durationDays"`
	Note           string `json:"note"`
	Kind           string `json:"kind"`
	AutoReschedule bool   `json:"autoReschedule"`

	DeleteReminderIDs []string                        `json:"deleteReminderIds"`
	UpdateReminders   []reminderTemplateUpdateRequest `json:"updateReminders"`
	AddReminders      []reminderTemplateRequest       `json:"addReminders"`
	TagNames          []string                        `json:"tagNames"`
}

type deleteIDsRequest struct {
	IDs []string `json:"ids"`
}

type duplicateTemplateRequest struct {
	Name string `json:"name"`
}

type importTemplateRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	EventTemplates []eventTemplateRequest `json:"eventTemplates"`
}

func (a *api) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req projectTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.writeDomainError(w, r, domain.NewValidationError(map[string]string{"name": "required"}))
		return
	}

	tpl, err := a.templateSvc.Create(r.Context(), u.ID, req.Name, req.Description)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectTemplateView(tpl)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	tpls, err := a.templateSvc.List(r.Context(), u.ID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	views := make([]projectTemplateView, 0, len(tpls))
	for _, t := range tpls {
		v, err := a.toProjectTemplateView(t)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		views = append(views, v)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"templates": views})
}

func (a *api) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindProjectTemplate, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	graph, err := a.templateSvc.Get(r.Context(), u.ID, id)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectTemplateGraphView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindProjectTemplate, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req projectTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.writeDomainError(w, r, domain.NewValidationError(map[string]string{"name": "required"}))
		return
	}

	tpl, err := a.templateSvc.Update(r.Context(), u.ID, domain.ProjectTemplateUpdate{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectTemplateView(tpl)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleDeleteTemplates(w http.ResponseWriter, r *http.Request) {
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

	ids, err := a.codec.DecodeSet(codec.KindProjectTemplate, req.IDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	if err := a.templateSvc.Delete(r.Context(), u.ID, ids); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindProjectTemplate, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req duplicateTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.writeDomainError(w, r, domain.NewValidationError(map[string]string{"name": "required"}))
		return
	}

	graph, err := a.templateSvc.Duplicate(r.Context(), u.ID, id, req.Name)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectTemplateGraphView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req importTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "required"
	}
	events := make([]domain.EventTemplateInput, 0, len(req.EventTemplates))
	for i, et := range req.EventTemplates {
		in, ok := a.eventTemplateInput(et, fields, fmt.Sprintf("eventTemplates[%d].", i))
		if ok {
			events = append(events, in)
		}
	}
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	graph, err := a.templateSvc.Import(r.Context(), u.ID, domain.TemplateImport{
		Name:           req.Name,
		Description:    req.Description,
		EventTemplates: events,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectTemplateGraphView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleCreateEventTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	tplID, err := a.codec.Decode(codec.KindProjectTemplate, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req eventTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	in, _ := a.eventTemplateInput(req, fields, "")
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	graph, err := a.templateSvc.CreateEvent(r.Context(), u.ID, tplID, in)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toEventTemplateView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleUpdateEventTemplate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindEventTemplate, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req eventTemplateUpdateRequest
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

	upd := domain.EventTemplateUpdate{
		ID:             id,
		Name:           req.Name,
		OffsetDays:     req.OffsetDays,
		DurationDays:   req.DurationDays,
		Note:           req.Note,
		Kind:           kind,
		AutoReschedule: req.AutoReschedule,
		TagNames:       req.TagNames,
	}

	upd.DeleteReminderIDs, err = a.codec.DecodeSet(codec.KindReminderTemplate, req.DeleteReminderIDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	for i, ur := range req.UpdateReminders {
		rid, err := a.codec.Decode(codec.KindReminderTemplate, ur.ID)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		minutes, ok := parseTimeOfDay(ur.TimeOfDay)
		if !ok {
			fields[fmt.Sprintf("updateReminders[%d].timeOfDay", i)] = "must be HH:MM"
			continue
		}
		if ur.DaysBefore < 0 {
			fields[fmt.Sprintf("updateReminders[%d].daysBefore", i)] = "must not be negative"
			continue
		}
		upd.UpdateReminders = append(upd.UpdateReminders, domain.ReminderTemplateUpdate{
			ID:               rid,
			DaysBefore:       ur.DaysBefore,
			TimeOfDayMinutes: minutes,
			EmailEnabled:     ur.EmailEnabled,
			DesktopEnabled:   ur.DesktopEnabled,
		})
	}

	upd.AddReminders = a.reminderTemplateInputs(req.AddReminders, fields, "addReminders")

	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	graph, err := a.templateSvc.UpdateEvent(r.Context(), u.ID, upd)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toEventTemplateView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleDeleteEventTemplates(w http.ResponseWriter, r *http.Request) {
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

	ids, err := a.codec.DecodeSet(codec.KindEventTemplate, req.IDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	if err := a.templateSvc.DeleteEvents(r.Context(), u.ID, ids); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) eventTemplateInput(req eventTemplateRequest, fields map[string]string, prefix string) (domain.EventTemplateInput, bool) {
	kind, ok := parseEventKind(req.Kind)
	if !ok {
		fields[prefix+"kind"] = "must be task or activity"
	}
	checkEventShape(fields, req.Name, kind, req.DurationDays)

	in := domain.EventTemplateInput{
		Name:           req.Name,
		OffsetDays:     req.OffsetDays,
		DurationDays:   req.DurationDays,
		Note:           req.Note,
		Kind:           kind,
		AutoReschedule: req.AutoReschedule,
		TagNames:       req.TagNames,
		Reminders:      a.reminderTemplateInputs(req.Reminders, fields, prefix+"reminders"),
	}
	return in, len(fields) == 0
}

func (a *api) reminderTemplateInputs(reqs []reminderTemplateRequest, fields map[string]string, prefix string) []domain.ReminderTemplateInput {
	out := make([]domain.ReminderTemplateInput, 0, len(reqs))
	for i, rr := range reqs {
		minutes, ok := parseTimeOfDay(rr.TimeOfDay)
		if !ok {
			fields[fmt.Sprintf("%s[%d].timeOfDay", prefix, i)] = "must be HH:MM"
			continue
		}
		if rr.DaysBefore < 0 {
			fields[fmt.Sprintf("%s[%d].daysBefore", prefix, i)] = "must not be negative"
			continue
		}
		out = append(out, domain.ReminderTemplateInput{
			DaysBefore:       rr.DaysBefore,
			TimeOfDayMinutes: minutes,
			EmailEnabled:     rr.EmailEnabled,
			DesktopEnabled:   rr.DesktopEnabled,
		})
	}
	return out
}
