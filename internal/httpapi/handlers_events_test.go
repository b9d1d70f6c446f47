package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"planloom/internal/codec"
	"planloom/internal/domain"
	"planloom/internal/service"
)

type stubEventsStore struct {
	t *testing.T

	getEventGraphFunc func(context.Context, int64, int64) (domain.EventGraph, error)
}

func (s *stubEventsStore) CreateEvent(ctx context.Context, userID, projectID int64, in domain.EventInput) (domain.EventGraph, error) {
	s.t.Fatalf("CreateEvent called unexpectedly")
	return domain.EventGraph{}, context.Canceled
}

func (s *stubEventsStore) GetEventGraph(ctx context.Context, userID, id int64) (domain.EventGraph, error) {
	if s.getEventGraphFunc != nil {
		return s.getEventGraphFunc(ctx, userID, id)
	}
	s.t.Fatalf("GetEventGraph called unexpectedly")
	return domain.EventGraph{}, context.Canceled
}

func (s *stubEventsStore) UpdateEvent(ctx context.Context, userID int64, upd domain.EventUpdate) (domain.EventWriteResult, error) {
	s.t.Fatalf("UpdateEvent called unexpectedly")
	return domain.EventWriteResult{}, context.Canceled
}

func (s *stubEventsStore) DeleteEvents(ctx context.Context, userID int64, ids []int64) ([]int64, error) {
	s.t.Fatalf("DeleteEvents called unexpectedly")
	return nil, context.Canceled
}

func newTestAPI(t *testing.T, events service.EventsStore) *api {
	t.Helper()
	c, err := codec.New("test-salt")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return &api{
		codec:    c,
		eventSvc: &service.EventService{Events: events},
	}
}

func authedRequest(method, target, body string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), currentUserKey, domain.User{ID: userID})
	return req.WithContext(ctx)
}

func TestUpdateEventRejectsBadStatus(t *testing.T) {
	api := newTestAPI(t, &stubEventsStore{t: t})

	id, err := api.codec.Encode(codec.KindEvent, 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	body := `{"name":"Kickoff","startDate":"2026-03-11","durationDays":1,"kind":"task","status":"done"}`
	req := authedRequest(http.MethodPatch, "/v1/events/"+id, body, 4)
	req.SetPathValue("id", id)

	rr := httptest.NewRecorder()
	api.handleUpdateEvent(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "validation_error" {
		t.Fatalf("unexpected error code: %s", resp.Error.Code)
	}
	if _, ok := resp.Error.Fields["status"]; !ok {
		t.Fatalf("expected a status field error, got %v", resp.Error.Fields)
	}
}

func TestGetEventRejectsForeignKindID(t *testing.T) {
	api := newTestAPI(t, &stubEventsStore{t: t})

	// A valid identifier, but minted for projects. The store must never be
	// reached; the stub fails the test if it is.
	id, err := api.codec.Encode(codec.KindProject, 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	req := authedRequest(http.MethodGet, "/v1/events/"+id, "", 4)
	req.SetPathValue("id", id)

	rr := httptest.NewRecorder()
	api.handleGetEvent(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestGetEventEncodesReminderState(t *testing.T) {
	handle := int64(31)
	store := &stubEventsStore{
		t: t,
		getEventGraphFunc: func(_ context.Context, userID, id int64) (domain.EventGraph, error) {
			if userID != 4 || id != 7 {
				t.Fatalf("unexpected lookup: user=%d id=%d", userID, id)
			}
			return domain.EventGraph{
				Event: domain.Event{
					ID:           7,
					Name:         "Kickoff",
					DurationDays: 1,
					Kind:         domain.EventKindTask,
					Status:       domain.EventStatusNotStarted,
				},
				Reminders: []domain.Reminder{
					{ID: 12, EventID: 7, JobHandle: &handle},
				},
			}, nil
		},
	}
	api := newTestAPI(t, store)

	id, err := api.codec.Encode(codec.KindEvent, 7)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	req := authedRequest(http.MethodGet, "/v1/events/"+id, "", 4)
	req.SetPathValue("id", id)

	rr := httptest.NewRecorder()
	api.handleGetEvent(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp eventView
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != id {
		t.Fatalf("unexpected event id: %s", resp.ID)
	}
	if len(resp.Reminders) != 1 {
		t.Fatalf("expected one reminder, got %d", len(resp.Reminders))
	}
	if !resp.Reminders[0].Scheduled || resp.Reminders[0].Fired {
		t.Fatalf("unexpected reminder state: %+v", resp.Reminders[0])
	}
	wantID, err := api.codec.Encode(codec.KindReminder, 12)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if resp.Reminders[0].ID != wantID {
		t.Fatalf("reminder id = %s, want %s", resp.Reminders[0].ID, wantID)
	}
}
