package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"planloom/internal/codec"
	"planloom/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the error taxonomy onto HTTP responses. Internal
// inconsistencies are logged with full context here and leave the service
// as a plain internal error.
func (a *api) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code: "validation_error", Message: "invalid request", Fields: ve.Fields,
		}})
		return
	}

	var ae *domain.AssertionError
	if errors.As(err, &ae) {
		fields := []any{"err", err, "op", ae.Op}
		if rid, ok := GetRequestID(r.Context()); ok {
			fields = append(fields, "request_id", rid)
		}
		a.logger.Error("internal inconsistency", fields...)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, codec.ErrMalformed):
		WriteError(w, http.StatusBadRequest, "malformed_id", "malformed identifier")
	case errors.Is(err, codec.ErrWrongKind):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already taken")
	case errors.Is(err, domain.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrDuplicateName):
		WriteError(w, http.StatusConflict, "duplicate_name", "name already in use")
	case errors.Is(err, domain.ErrTagExists):
		WriteError(w, http.StatusConflict, "tag_exists", "tag already exists")
	case errors.Is(err, domain.ErrInvalidEventStatus):
		WriteError(w, http.StatusBadRequest, "invalid_event_status", "invalid event status")
	case errors.Is(err, domain.ErrNoEventTemplates):
		WriteError(w, http.StatusUnprocessableEntity, "no_event_templates", "template has no event templates")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid login or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrCancelFailed):
		WriteError(w, http.StatusConflict, "cancel_failed", "outstanding reminder job could not be cancelled")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		a.logger.Error("unhandled error", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
