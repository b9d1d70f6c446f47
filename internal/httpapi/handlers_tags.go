package httpapi

import "net/http"

type createTagRequest struct {
	Name string `json:"name"`
}

func (a *api) handleListTags(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	tags, err := a.tagSvc.List(r.Context(), u.ID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	views, err := a.toTagViews(tags)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"tags": views})
}

func (a *api) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req createTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	tag, err := a.tagSvc.Create(r.Context(), u.ID, req.Name)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	view, err := a.toTagView(tag)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}
