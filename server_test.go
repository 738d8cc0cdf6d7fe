package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

type fakeRepo struct {
	pending        []WorkItem
	markers        []PriorityMarker
	history        []WorkItem
	identities     []InspectorIdentity
	inspected      []WorkItem
	finished       []WorkItem
	machines       []string
	pendingCount   int64
	inspectedCount int64
	err            error
}

func (f *fakeRepo) PendingWorkItems(cutoff time.Time) ([]WorkItem, error) {
	return f.pending, f.err
}
func (f *fakeRepo) PriorityMarkers() ([]PriorityMarker, error) { return f.markers, f.err }
func (f *fakeRepo) WorkItemsByInspectorPrefix(prefix string, limit int) ([]WorkItem, error) {
	return f.history, f.err
}
func (f *fakeRepo) InspectorIdentities(limit int) ([]InspectorIdentity, error) {
	return f.identities, f.err
}
func (f *fakeRepo) InspectedBetween(from, to time.Time) ([]WorkItem, error) {
	return f.inspected, f.err
}
func (f *fakeRepo) InspectedSince(since time.Time) ([]WorkItem, error) { return f.inspected, f.err }
func (f *fakeRepo) FinishedSince(since time.Time) ([]WorkItem, error)  { return f.finished, f.err }
func (f *fakeRepo) Machines() ([]string, error)                        { return f.machines, f.err }
func (f *fakeRepo) PendingCount(cutoff time.Time) (int64, error)       { return f.pendingCount, f.err }
func (f *fakeRepo) InspectedCountBetween(from, to time.Time) (int64, error) {
	return f.inspectedCount, f.err
}

var serverNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func newTestServer(repo Repository) *Server {
	cfg := Config{
		Location:      time.UTC,
		RetentionDays: 90,
		QueueLimit:    200,
		InspectorDays: 7,
		OperatorDays:  30,
		HistoryLimit:  200,
		RosterLimit:   50,
	}
	srv := NewServer(cfg, repo, NewSettingsStore())
	srv.now = func() time.Time { return serverNow }
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleQueueOrdersAndFlags(t *testing.T) {
	repo := &fakeRepo{
		pending: []WorkItem{
			{ID: 1, Barcode: "K1", Quantity: 10, DateFinished: serverNow.AddDate(0, 0, -2)},
			{ID: 2, Barcode: "K2", Quantity: 10, DateFinished: serverNow.AddDate(0, 0, -5)},
		},
		markers: []PriorityMarker{{Barcode: "K1", IsPriority: true}},
	}
	rec := doRequest(t, newTestServer(repo), http.MethodGet, "/api/queue", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var queue []struct {
		ID                 int64 `json:"id"`
		IsCriticalPriority bool  `json:"is_critical_priority"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &queue); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(queue))
	}
	if queue[0].ID != 1 || !queue[0].IsCriticalPriority {
		t.Fatalf("expected priority item first: %+v", queue)
	}
}

func TestHandleQueueUnavailableIsNotEmpty(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	rec := doRequest(t, newTestServer(repo), http.MethodGet, "/api/queue", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for repository failure, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected explicit error body, got none")
	}
}

func TestHandleEmployeeStatsEmptyWindowIsOK(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeRepo{}), http.MethodGet, "/api/employee-stats?days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty window must be 200, got %d", rec.Code)
	}
	var body struct {
		Daily   []any              `json:"daily_stats"`
		Total   []any              `json:"total_stats"`
		Summary AttributionSummary `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Daily == nil || body.Total == nil {
		t.Fatal("expected empty arrays, not null")
	}
	if len(body.Daily) != 0 || len(body.Total) != 0 || body.Summary.Produced != 0 {
		t.Fatalf("expected zeroed result: %+v", body)
	}
}

func TestHandleEmployeeStatsRejectsBadDays(t *testing.T) {
	srv := newTestServer(&fakeRepo{})
	for _, target := range []string{"/api/employee-stats?days=-1", "/api/employee-stats?days=abc"} {
		rec := doRequest(t, srv, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestHandleAttributionRejectsUnknownRole(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeRepo{}), http.MethodGet, "/api/attribution?role=manager", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", rec.Code)
	}
}

func TestHandleOperatorsStatsAnalysis(t *testing.T) {
	repo := &fakeRepo{
		finished: []WorkItem{
			{Operator: "Best", MachineName: "M1", Quantity: 100, AcceptedAmount: 95, DateFinished: serverNow.AddDate(0, 0, -1)},
			{Operator: "Worst", MachineName: "M1", Quantity: 100, AcceptedAmount: 60, DateFinished: serverNow.AddDate(0, 0, -1)},
		},
		machines: []string{"M1"},
	}
	rec := doRequest(t, newTestServer(repo), http.MethodGet, "/api/operators-stats?days=30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Total    []bucketJSON `json:"total_stats"`
		Machines []string     `json:"machines"`
		Analysis struct {
			Best bucketJSON `json:"best_operator"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Total) != 2 || body.Total[0].Identity != "Best" {
		t.Fatalf("unexpected ranking: %+v", body.Total)
	}
	if body.Analysis.Best.Identity != "Best" {
		t.Fatalf("unexpected analysis: %+v", body.Analysis)
	}
	if len(body.Machines) != 1 {
		t.Fatalf("unexpected machines: %v", body.Machines)
	}
}

func TestHandleEmployeeCheckedParts(t *testing.T) {
	repo := &fakeRepo{
		history: []WorkItem{
			{OrderNumber: "N-1", Inspector: "Смирнова Анна", InspectionDate: serverNow.AddDate(0, 0, -1)},
			{OrderNumber: "N-2", Inspector: "Смирнова Ольга", InspectionDate: serverNow.AddDate(0, 0, -2)},
		},
	}
	target := "/api/employee-checked-parts/" + url.PathEscape("Смирнова Анна Петровна")
	rec := doRequest(t, newTestServer(repo), http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Surname    string   `json:"surname_used"`
		Identities []string `json:"matched_identities"`
		TotalCount int      `json:"total_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Surname != "Смирнова" {
		t.Fatalf("expected surname Смирнова, got %q", body.Surname)
	}
	if len(body.Identities) != 2 || body.TotalCount != 2 {
		t.Fatalf("expected both same-surname identities: %+v", body)
	}
}

func TestHandleStats(t *testing.T) {
	repo := &fakeRepo{pendingCount: 42, inspectedCount: 7}
	rec := doRequest(t, newTestServer(repo), http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Total        int64 `json:"total"`
		CheckedToday int64 `json:"checked_today"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Total != 42 || body.CheckedToday != 7 {
		t.Fatalf("unexpected stats: %+v", body)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(&fakeRepo{})

	payload := `{"employee_mappings":{"Смирнова А.П.":"Анна"},"hidden_employees":["Уволенный И.И."]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/settings", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on save, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on load, got %d", rec.Code)
	}
	var body struct {
		Mappings map[string]string `json:"employee_mappings"`
		Hidden   []string          `json:"hidden_employees"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Mappings["Смирнова А.П."] != "Анна" || len(body.Hidden) != 1 {
		t.Fatalf("settings lost in round trip: %+v", body)
	}
}

func TestSettingsRejectsBadPayload(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeRepo{}), http.MethodPost, "/api/settings", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", rec.Code)
	}
}

func TestHandleTodayStatsEmpty(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeRepo{}), http.MethodGet, "/api/today-stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		TotalPositions int   `json:"total_positions"`
		TotalParts     int64 `json:"total_parts"`
		Users          []any `json:"users"`
		Orders         []any `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.TotalPositions != 0 || body.TotalParts != 0 || len(body.Users) != 0 || len(body.Orders) != 0 {
		t.Fatalf("expected zeroed today stats: %+v", body)
	}
	if body.Users == nil || body.Orders == nil {
		t.Fatal("expected empty arrays, not null")
	}
}
