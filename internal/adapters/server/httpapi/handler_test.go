package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/loggbok/internal/adapters/server/common"
	"github.com/hylla/loggbok/internal/app"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
)

func newTestHandler(t *testing.T, now time.Time) *Handler {
	t.Helper()
	logger := charmLog.New(io.Discard)
	clock := func() time.Time { return now }
	store, err := logstore.Open(t.TempDir(), "", logger, logstore.WithClock(clock))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	svc := app.NewService(store, merge.New(store, logger), clock, logger)
	return NewHandler(common.NewAdapter(svc))
}

func doJSON(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecordAndListEvents(t *testing.T) {
	h := newTestHandler(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC))

	rec := doJSON(t, h, http.MethodPost, "/events",
		`{"kind":"exercise.completed","payload":{"activity":"run","duration_min":30}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/events?kind_prefix=exercise", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var listResp struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listResp.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(listResp.Events))
	}
}

func TestRecordEventRejectsBadInput(t *testing.T) {
	h := newTestHandler(t, time.Now())

	rec := doJSON(t, h, http.MethodPost, "/events", `{"kind":"nodot"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid kind must 400, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/events", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body must 400, got %d", rec.Code)
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_request" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	h := newTestHandler(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC))

	rec := doJSON(t, h, http.MethodPost, "/tasks", `{"title":"write report","area":"work"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		EntityID string `json:"entity_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.EntityID != "t-20260112-001" {
		t.Fatalf("unexpected task id %q", created.EntityID)
	}

	rec = doJSON(t, h, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "write report") {
		t.Fatalf("unexpected tasks response %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/tasks/"+created.EntityID+"/complete", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete failed %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/tasks", "")
	if strings.Contains(rec.Body.String(), created.EntityID) {
		t.Fatalf("completed task must leave the open list: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/tasks/t-20260112-099/complete", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown task must 404, got %d", rec.Code)
	}
}

func TestAbandonTaskEndpoint(t *testing.T) {
	h := newTestHandler(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC))

	doJSON(t, h, http.MethodPost, "/tasks", `{"title":"stale idea"}`)
	rec := doJSON(t, h, http.MethodPost, "/tasks/t-20260112-001/abandon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("abandon failed %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "task.abandoned") {
		t.Fatalf("expected task.abandoned record, got %s", rec.Body.String())
	}
}

func TestGoalEndpoints(t *testing.T) {
	h := newTestHandler(t, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))

	rec := doJSON(t, h, http.MethodPost, "/goals", `{"title":"run a marathon","horizon":"year"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/goals/progress",
		`{"goal_id":"g-2026-001","status":"base building","note":"3 runs"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("progress failed %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/goals", "")
	if !strings.Contains(rec.Body.String(), "base building") {
		t.Fatalf("expected latest status in goals view: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/goals/g-2026-001/complete", `{"outcome":"abandoned"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "goal.abandoned") {
		t.Fatalf("unexpected complete response %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/goals", "")
	if strings.Contains(rec.Body.String(), "g-2026-001") {
		t.Fatalf("closed goal must leave the active list: %s", rec.Body.String())
	}
}

func TestWeekEndpoint(t *testing.T) {
	now := time.Date(2026, 1, 12, 18, 0, 0, 0, time.UTC)
	h := newTestHandler(t, now)

	doJSON(t, h, http.MethodPost, "/events", `{"kind":"checkin.recorded"}`)
	rec := doJSON(t, h, http.MethodGet, "/week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var summary struct {
		Checkins int `json:"checkins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.Checkins != 1 {
		t.Fatalf("expected 1 checkin, got %d", summary.Checkins)
	}
}

func TestSyncEndpoints(t *testing.T) {
	h := newTestHandler(t, time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC))

	body := `{"service":"strava","id_field":"strava_id","external_id":"a1","kind":"exercise.completed","timestamp":"2026-01-10T07:00:00Z","payload":{"activity":"run"}}`
	rec := doJSON(t, h, http.MethodPost, "/sync/merge", body)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"merged":true`) {
		t.Fatalf("unexpected merge response %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodPost, "/sync/merge", body)
	if !strings.Contains(rec.Body.String(), `"merged":false`) {
		t.Fatalf("duplicate must report merged=false: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/sync/watermark?service=strava", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var watermark common.WatermarkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &watermark); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !watermark.HasRecords || watermark.Watermark != "2026-01-10T07:00:00Z" {
		t.Fatalf("unexpected watermark %+v", watermark)
	}

	rec = doJSON(t, h, http.MethodGet, "/sync/watermark", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing service must 400, got %d", rec.Code)
	}
}

func TestRoutingErrors(t *testing.T) {
	h := newTestHandler(t, time.Now())

	rec := doJSON(t, h, http.MethodDelete, "/events", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("expected Allow header, got %q", allow)
	}
	rec = doJSON(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/tasks/t-1/complete", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET on an action route must 405, got %d", rec.Code)
	}
}
