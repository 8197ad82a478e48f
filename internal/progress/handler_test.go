package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/httpapi"
	"github.com/stretchcoach/coach-backend/internal/model"
	"github.com/stretchcoach/coach-backend/internal/store"
)

// fakeProgress is an in-memory Store recording calls.
type fakeProgress struct {
	entries   []model.ProgressEntry
	putErr    error
	listErr   error
	deleteErr error

	deleteCalls [][2]string
	listLimit   int
}

func (f *fakeProgress) Put(ctx context.Context, entry model.ProgressEntry) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeProgress) List(ctx context.Context, limit int) ([]model.ProgressEntry, error) {
	f.listLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeProgress) Delete(ctx context.Context, clientID, completedAt string) error {
	f.deleteCalls = append(f.deleteCalls, [2]string{clientID, completedAt})
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return nil
}

func newTestHandler(fake *fakeProgress, now func() time.Time) httpapi.HandlerFunc {
	resp := httpapi.NewResponder(httpapi.CORSConfig{})
	h := New(fake, resp, zerolog.Nop())
	if now != nil {
		h.now = now
	}
	return httpapi.WithErrorHandling(zerolog.Nop(), resp, h.Handle)
}

func postRequest(body string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{Body: body}
	req.RequestContext.HTTP.Method = "POST"
	return req
}

func queryRequest(method string, params map[string]string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{QueryStringParameters: params}
	req.RequestContext.HTTP.Method = method
	return req
}

func validPayload() map[string]any {
	return map[string]any{
		"clientId":      "user-1",
		"exerciseId":    "kieser-training",
		"totalSets":     1,
		"setsCompleted": 1,
	}
}

func marshal(t *testing.T, payload map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return string(raw)
}

func TestCreateStampsCompletedAt(t *testing.T) {
	fake := &fakeProgress{}
	fixed := time.Date(2024, 7, 9, 10, 45, 0, 0, time.UTC)
	handle := newTestHandler(fake, func() time.Time { return fixed })

	payload := validPayload()
	payload["durationMs"] = 45 * 60 * 1000
	payload["startedAt"] = "2024-07-09T12:00:00+02:00"
	payload["finishedAt"] = "2024-07-09T12:45:00+02:00"

	resp, _ := handle(context.Background(), postRequest(marshal(t, payload)))
	if resp.StatusCode != 201 {
		t.Fatalf("status = %d, want 201 (%s)", resp.StatusCode, resp.Body)
	}

	if len(fake.entries) != 1 {
		t.Fatalf("stored %d entries, want 1", len(fake.entries))
	}
	stored := fake.entries[0]
	if stored.CompletedAt != "2024-07-09T10:45:00Z" {
		t.Errorf("completed_at = %q, want the server clock", stored.CompletedAt)
	}
	if stored.StartedAt != "2024-07-09T10:00:00Z" {
		t.Errorf("started_at = %q, want normalized UTC", stored.StartedAt)
	}
	if stored.FinishedAt != "2024-07-09T10:45:00Z" {
		t.Errorf("finished_at = %q, want normalized UTC", stored.FinishedAt)
	}
	if stored.DurationMs == nil || *stored.DurationMs != 2700000 {
		t.Errorf("duration_ms = %v", stored.DurationMs)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("response body: %v", err)
	}
	if body["completedAt"] != stored.CompletedAt {
		t.Errorf("response completedAt = %q, want %q", body["completedAt"], stored.CompletedAt)
	}
}

func TestCreateUsesCurrentTime(t *testing.T) {
	fake := &fakeProgress{}
	handle := newTestHandler(fake, nil)

	before := time.Now().UTC()
	resp, _ := handle(context.Background(), postRequest(marshal(t, validPayload())))
	after := time.Now().UTC()

	if resp.StatusCode != 201 {
		t.Fatalf("status = %d (%s)", resp.StatusCode, resp.Body)
	}
	stamp, err := time.Parse(time.RFC3339Nano, fake.entries[0].CompletedAt)
	if err != nil {
		t.Fatalf("completed_at is not RFC3339: %v", err)
	}
	if stamp.Before(before.Truncate(time.Second)) || stamp.After(after.Add(time.Second)) {
		t.Errorf("completed_at %v outside [%v, %v]", stamp, before, after)
	}
}

func TestCreateRejectsIncompleteSession(t *testing.T) {
	fake := &fakeProgress{}
	handle := newTestHandler(fake, nil)

	payload := validPayload()
	payload["totalSets"] = 3
	payload["setsCompleted"] = 2

	resp, _ := handle(context.Background(), postRequest(marshal(t, payload)))
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(resp.Body, "nicht vollständig") {
		t.Errorf("body = %s", resp.Body)
	}
	if len(fake.entries) != 0 {
		t.Error("incomplete session must not be stored")
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "missing clientId", mutate: func(p map[string]any) { delete(p, "clientId") }},
		{name: "missing exerciseId", mutate: func(p map[string]any) { delete(p, "exerciseId") }},
		{name: "zero totalSets", mutate: func(p map[string]any) { p["totalSets"] = 0 }},
		{name: "boolean setsCompleted", mutate: func(p map[string]any) { p["setsCompleted"] = true }},
		{name: "negative durationMs", mutate: func(p map[string]any) { p["durationMs"] = -1 }},
		{name: "zero repTime", mutate: func(p map[string]any) { p["repTime"] = 0 }},
		{name: "bad startedAt", mutate: func(p map[string]any) { p["startedAt"] = "gestern" }},
		{name: "numeric exerciseName", mutate: func(p map[string]any) { p["exerciseName"] = 7 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProgress{}
			handle := newTestHandler(fake, nil)

			payload := validPayload()
			tt.mutate(payload)

			resp, _ := handle(context.Background(), postRequest(marshal(t, payload)))
			if resp.StatusCode != 400 {
				t.Errorf("status = %d, want 400 (%s)", resp.StatusCode, resp.Body)
			}
			if len(fake.entries) != 0 {
				t.Error("invalid payload must not be stored")
			}
		})
	}
}

func TestCreateStoreFailure(t *testing.T) {
	fake := &fakeProgress{putErr: errors.New("table gone")}
	handle := newTestHandler(fake, nil)

	resp, _ := handle(context.Background(), postRequest(marshal(t, validPayload())))
	if resp.StatusCode != 502 {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if strings.Contains(resp.Body, "table gone") {
		t.Error("store failure leaked into the response")
	}
}

func TestListOrdersAndLimits(t *testing.T) {
	fake := &fakeProgress{}
	for i := 0; i < 5; i++ {
		fake.entries = append(fake.entries, model.ProgressEntry{
			ClientID:    "user-1",
			CompletedAt: fmt.Sprintf("2024-07-0%dT10:00:00Z", i+1),
		})
	}
	handle := newTestHandler(fake, nil)

	resp, _ := handle(context.Background(), queryRequest("GET", map[string]string{"limit": "3"}))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d (%s)", resp.StatusCode, resp.Body)
	}
	if fake.listLimit != 3 {
		t.Errorf("store queried with limit %d, want 3", fake.listLimit)
	}

	var body struct {
		Items []model.ProgressEntry `json:"items"`
		Count int                   `json:"count"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Count != 3 || len(body.Items) != 3 {
		t.Fatalf("count = %d, items = %d, want 3", body.Count, len(body.Items))
	}
	for i := 1; i < len(body.Items); i++ {
		if body.Items[i-1].CompletedAt < body.Items[i].CompletedAt {
			t.Errorf("items not in descending order: %q before %q",
				body.Items[i-1].CompletedAt, body.Items[i].CompletedAt)
		}
	}
}

func TestListLimitHandling(t *testing.T) {
	tests := []struct {
		name       string
		params     map[string]string
		wantStatus int
		wantLimit  int
	}{
		{name: "default", params: nil, wantStatus: 200, wantLimit: 250},
		{name: "explicit", params: map[string]string{"limit": "10"}, wantStatus: 200, wantLimit: 10},
		{name: "capped at 500", params: map[string]string{"limit": "9000"}, wantStatus: 200, wantLimit: 500},
		{name: "zero rejected", params: map[string]string{"limit": "0"}, wantStatus: 400},
		{name: "negative rejected", params: map[string]string{"limit": "-5"}, wantStatus: 400},
		{name: "non-numeric rejected", params: map[string]string{"limit": "viele"}, wantStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProgress{}
			handle := newTestHandler(fake, nil)

			resp, _ := handle(context.Background(), queryRequest("GET", tt.params))
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == 200 && fake.listLimit != tt.wantLimit {
				t.Errorf("store limit = %d, want %d", fake.listLimit, tt.wantLimit)
			}
		})
	}
}

func TestDeleteByCompositeKey(t *testing.T) {
	fake := &fakeProgress{}
	handle := newTestHandler(fake, nil)

	resp, _ := handle(context.Background(), queryRequest("DELETE", map[string]string{
		"clientId":    "user-1",
		"completedAt": "2024-07-09T10:45:00Z",
	}))
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, resp.Body)
	}
	want := [2]string{"user-1", "2024-07-09T10:45:00Z"}
	if len(fake.deleteCalls) != 1 || fake.deleteCalls[0] != want {
		t.Errorf("delete calls = %v, want %v", fake.deleteCalls, want)
	}
}

func TestDeleteMissingEntry(t *testing.T) {
	fake := &fakeProgress{deleteErr: store.ErrNotFound}
	handle := newTestHandler(fake, nil)

	resp, _ := handle(context.Background(), queryRequest("DELETE", map[string]string{
		"clientId":    "user-1",
		"completedAt": "2024-07-09T10:45:00Z",
	}))
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteRequiresKey(t *testing.T) {
	fake := &fakeProgress{}
	handle := newTestHandler(fake, nil)

	resp, _ := handle(context.Background(), queryRequest("DELETE", map[string]string{"clientId": "user-1"}))
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(fake.deleteCalls) != 0 {
		t.Error("delete must not be attempted without a full key")
	}
}

func TestDispatch(t *testing.T) {
	fake := &fakeProgress{}
	handle := newTestHandler(fake, nil)

	if resp, _ := handle(context.Background(), queryRequest("OPTIONS", nil)); resp.StatusCode != 200 {
		t.Errorf("OPTIONS status = %d, want 200", resp.StatusCode)
	}
	if resp, _ := handle(context.Background(), queryRequest("PUT", nil)); resp.StatusCode != 405 {
		t.Errorf("PUT status = %d, want 405", resp.StatusCode)
	}
}
