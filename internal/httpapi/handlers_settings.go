package httpapi

import (
	"net/http"

	"planloom/internal/domain"
)

type updateSettingsRequest struct {
	WeekStart            string `json:"weekStart"`
	DateFormat           string `json:"dateFormat"`
	EmailNotifications   bool   `json:"emailNotifications"`
	DesktopNotifications bool   `json:"desktopNotifications"`
}

func (a *api) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	st, err := a.settingsSvc.Get(r.Context(), u.ID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toSettingsView(st))
}

func (a *api) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())

	var req updateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}

	fields := map[string]string{}
	weekStart, ok := parseWeekStart(req.WeekStart)
	if !ok {
		fields["weekStart"] = "must be monday or sunday"
	}
	dateFormat, ok := parseDateFormat(req.DateFormat)
	if !ok {
		fields["dateFormat"] = "must be dmy, mdy or ymd"
	}
	if len(fields) > 0 {
		a.writeDomainError(w, r, domain.NewValidationError(fields))
		return
	}

	st, err := a.settingsSvc.Update(r.Context(), domain.UserSettings{
		UserID:               u.ID,
		WeekStart:            weekStart,
		DateFormat:           dateFormat,
		EmailNotifications:   req.EmailNotifications,
		DesktopNotifications: req.DesktopNotifications,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toSettingsView(st))
}
