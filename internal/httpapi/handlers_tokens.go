package httpapi

import "net/http"

type registerTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type deleteTokenRequest struct {
	Token string `json:"token"`
}

func (a *api) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req registerTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	tok, err := a.notificationSvc.RegisterToken(r.Context(), u.ID, req.Token, req.Platform)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toTokenView(tok))
}

func (a *api) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req deleteTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	if err := a.notificationSvc.DeleteToken(r.Context(), u.ID, req.Token); err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
