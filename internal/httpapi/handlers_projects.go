package httpapi

import (
	"net/http"
	"strings"

	"planloom/internal/codec"
	"planloom/internal/domain"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
}

type instantiateRequest struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	StartDate  string `json:"startDate"`
}

func (a *api) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "required"
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		fields["startDate"] = "must be YYYY-MM-DD"
	}
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	p, err := a.projectSvc.Create(r.Context(), u.ID, req.Name, req.Description, startDate)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectView(p)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

// handleInstantiate materializes a template into a live project. The response
// graph reflects the reminder jobs armed after the write committed.
func (a *api) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req instantiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "required"
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		fields["startDate"] = "must be YYYY-MM-DD"
	}
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	tplID, err := a.codec.Decode(codec.KindProjectTemplate, req.TemplateID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	graph, err := a.projectSvc.Instantiate(r.Context(), u.ID, tplID, req.Name, startDate)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectGraphView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

func (a *api) handleListProjects(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	projects, err := a.projectSvc.List(r.Context(), u.ID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		v, err := a.toProjectView(p)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		views = append(views, v)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"projects": views})
}

func (a *api) handleGetProject(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindProject, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	graph, err := a.projectSvc.Get(r.Context(), u.ID, id)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectGraphView(graph)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	id, err := a.codec.Decode(codec.KindProject, r.PathValue("id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	var req createProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "required"
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		fields["startDate"] = "must be YYYY-MM-DD"
	}
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	p, err := a.projectSvc.Update(r.Context(), u.ID, domain.ProjectUpdate{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		StartDate:   startDate,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toProjectView(p)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

func (a *api) handleDeleteProjects(w http.ResponseWriter, r *http.Request) {
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

	ids, err := a.codec.DecodeSet(codec.KindProject, req.IDs)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	if err := a.projectSvc.Delete(r.Context(), u.ID, ids); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
