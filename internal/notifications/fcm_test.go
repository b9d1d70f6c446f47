package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

type captureTransport struct {
	req    *http.Request
	body   []byte
	status int
	resp   string
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.req = req
	t.body, _ = io.ReadAll(req.Body)
	_ = req.Body.Close()
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := t.resp
	if resp == "" {
		resp = `{}`
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(resp)),
		Header:     make(http.Header),
	}, nil
}

func newTestSender(rt *captureTransport) *FCMSender {
	return &FCMSender{
		projectID:   "pid",
		tokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"}),
		client:      &http.Client{Transport: rt},
	}
}

func TestFCMSenderSendIncludesNotificationAndData(t *testing.T) {
	rt := &captureTransport{}
	sender := newTestSender(rt)

	err := sender.Send(context.Background(), "fcm-token-1", Message{
		Data: map[string]string{"type": "reminder", "event_id": "abc123"},
		Notification: &Notification{
			Title: "Kickoff meeting",
			Body:  "Kickoff meeting starts tomorrow.",
		},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if got := rt.req.URL.String(); !strings.Contains(got, "/projects/pid/messages:send") {
		t.Fatalf("unexpected url: %s", got)
	}
	if got := rt.req.Header.Get("Authorization"); got != "Bearer token" {
		t.Fatalf("unexpected authorization header: %s", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(rt.body, &payload); err != nil {
		t.Fatalf("unmarshal request body: %v", err)
	}
	message, _ := payload["message"].(map[string]any)
	if message == nil {
		t.Fatalf("missing message payload")
	}
	if got := message["token"]; got != "fcm-token-1" {
		t.Fatalf("unexpected token: %v", got)
	}
	notification, _ := message["notification"].(map[string]any)
	if notification == nil {
		t.Fatalf("missing notification payload")
	}
	if got := notification["title"]; got != "Kickoff meeting" {
		t.Fatalf("unexpected title: %v", got)
	}
	data, _ := message["data"].(map[string]any)
	if data == nil || data["event_id"] != "abc123" {
		t.Fatalf("unexpected data payload: %v", data)
	}
}

func TestFCMSenderSendUnregisteredTokenMapsToErrInvalidToken(t *testing.T) {
	rt := &captureTransport{
		status: http.StatusNotFound,
		resp: `{"error":{"status":"NOT_FOUND","message":"Requested entity was not found.",` +
			`"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`,
	}
	sender := newTestSender(rt)

	err := sender.Send(context.Background(), "stale-token", Message{Data: map[string]string{"type": "reminder"}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestFCMSenderSendRequiresToken(t *testing.T) {
	sender := newTestSender(&captureTransport{})
	if err := sender.Send(context.Background(), "  ", Message{}); err == nil {
		t.Fatalf("expected error for blank token")
	}
}
