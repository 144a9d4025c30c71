package analysis

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"outpatient_capacity/pkg/config"
	"outpatient_capacity/pkg/core/capacity"
	"outpatient_capacity/pkg/core/pipeline"
	"outpatient_capacity/pkg/core/reconcile"
	"outpatient_capacity/pkg/models"
)

func month(y int, m time.Month) time.Time {
	return models.MonthEnd(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
}

// cardiology has 18 flat months, Jan 2023 – Jun 2024.
func cardiology() *models.Dataset {
	d := &models.Dataset{}
	for i := 0; i < 18; i++ {
		m := models.AddMonths(month(2023, time.January), i)
		d.Referrals = append(d.Referrals, models.ReferralRecord{Month: m, Specialty: "Cardiology", Referrals: 100})
		d.Appointments = append(d.Appointments,
			models.AppointmentRecord{Month: m, Specialty: "Cardiology", AppointmentType: models.RTTFirst, Attended: 85, ForRemovals: 80, WaitingList: 500, HasWaitingList: true},
			models.AppointmentRecord{Month: m, Specialty: "Cardiology", AppointmentType: models.RTTFollowUp, Attended: 170, ForRemovals: 200},
			models.AppointmentRecord{Month: m, Specialty: "Cardiology", AppointmentType: models.NonRTT, Attended: 40, ForRemovals: 40},
		)
	}
	return d
}

func newServer(t *testing.T) (*httptest.Server, *SessionStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := NewSessionStore()
	start := 500.0
	defaults := config.Defaults{
		Rates:            capacity.Rates{Utilisation: 1, DNA: 0},
		Split:            reconcile.DefaultSplit(),
		WaitingListStart: &start,
		OtherRemovals:    100,
	}
	h := NewHandler(pipeline.NewEngine(cardiology(), logger), sessions, defaults, logger)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, sessions
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

// path walks nested JSON objects.
func path(t *testing.T, v map[string]any, keys ...string) any {
	t.Helper()
	var cur any = v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("no object at %q", k)
		}
		cur = m[k]
	}
	return cur
}

func TestHealthAndSpecialties(t *testing.T) {
	srv, _ := newServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	resp, data := do(t, http.MethodGet, srv.URL+"/api/specialties", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("specialties = %d %s", resp.StatusCode, data)
	}
	body := decode[specialtiesResponse](t, data)
	if len(body.Specialties) != 1 || body.Specialties[0] != "Cardiology" {
		t.Fatalf("specialties = %v", body.Specialties)
	}
	if !body.Default.Start.Equal(month(2024, time.January)) {
		t.Errorf("default baseline = %v", body.Default)
	}
}

func TestRunAnalysis(t *testing.T) {
	srv, sessions := newServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/analysis", `{"specialty": "Cardiology", "baseline_start": "2024-01", "baseline_end": "2024-06",}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d %s", resp.StatusCode, data)
	}
	body := decode[map[string]any](t, data)
	if end := path(t, body, "waiting_list", "projection", "end").(float64); math.Abs(end-580) > 1e-6 {
		t.Errorf("waiting list end = %f", end)
	}
	if total := path(t, body, "forecast", "forecasted_total").(float64); math.Abs(total-1200) > 1e-6 {
		t.Errorf("forecast total = %f", total)
	}
	if sessions.Len() != 1 {
		t.Errorf("sessions = %d", sessions.Len())
	}
}

func TestRunAnalysis_Errors(t *testing.T) {
	srv, _ := newServer(t)
	cases := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"reversed baseline", `{"specialty":"Cardiology","baseline_start":"2024-06","baseline_end":"2024-01"}`, http.StatusBadRequest, "InvalidRangeError"},
		{"degenerate rate", `{"specialty":"Cardiology","utilisation_rate":0}`, http.StatusUnprocessableEntity, "DegenerateRateError"},
		{"unknown specialty", `{"specialty":"Podiatry"}`, http.StatusBadRequest, "InvalidRangeError"},
		{"garbage", `<<not json>>`, http.StatusBadRequest, "InvalidRangeError"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, data := do(t, http.MethodPost, srv.URL+"/api/analysis", c.body)
			if resp.StatusCode != c.status {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, c.status, data)
			}
			if e := decode[ErrorResponse](t, data); e.ErrorKind != c.kind {
				t.Fatalf("error = %+v, want %s", e, c.kind)
			}
		})
	}
}

func TestSessionFlow(t *testing.T) {
	srv, _ := newServer(t)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/sessions", `{"specialty":"Cardiology"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, data)
	}
	created := decode[map[string]any](t, data)
	id := created["id"].(string)
	base := srv.URL + "/api/sessions/" + id
	if resp.Header.Get("Location") != "/api/sessions/"+id {
		t.Errorf("location = %s", resp.Header.Get("Location"))
	}

	// Reconcile before its upstream steps.
	resp, data = do(t, http.MethodPost, base+"/reconcile", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("early reconcile = %d %s", resp.StatusCode, data)
	}
	if e := decode[ErrorResponse](t, data); e.ErrorKind != "PrerequisiteMissingError" {
		t.Fatalf("error = %+v", e)
	}

	for _, step := range []string{"forecast", "ratios", "capacity", "reconcile", "waiting-list"} {
		resp, data = do(t, http.MethodPost, base+"/"+step, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s = %d %s", step, resp.StatusCode, data)
		}
	}

	resp, data = do(t, http.MethodGet, base, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d", resp.StatusCode)
	}
	got := decode[map[string]any](t, data)
	if got["revision"].(float64) != 5 {
		t.Errorf("revision = %v", got["revision"])
	}
	if end := path(t, got, "waiting_list", "projection", "end").(float64); math.Abs(end-580) > 1e-6 {
		t.Errorf("waiting list end = %f", end)
	}

	resp, data = do(t, http.MethodGet, base+"/report", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("report = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(data), "<table>") {
		t.Error("report has no tables")
	}

	resp, data = do(t, http.MethodGet, base+"/report?format=markdown", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(data), "# Outpatient capacity: Cardiology") {
		t.Fatalf("markdown report = %d %.60s", resp.StatusCode, data)
	}
}

func TestSession_StepInputValidation(t *testing.T) {
	srv, _ := newServer(t)
	_, data := do(t, http.MethodPost, srv.URL+"/api/sessions", `{"specialty":"Cardiology"}`)
	id := decode[map[string]any](t, data)["id"].(string)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/sessions/"+id+"/forecast", `{"method":"guess"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d %s", resp.StatusCode, data)
	}
}

func TestSession_NotFound(t *testing.T) {
	srv, _ := newServer(t)
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		resp, data := do(t, http.MethodGet, srv.URL+"/api/sessions/"+id, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: status = %d %s", id, resp.StatusCode, data)
		}
	}
}

func TestSummary(t *testing.T) {
	srv, _ := newServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/api/summary?baseline_start=2024-01&baseline_end=2024-06", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary = %d %s", resp.StatusCode, data)
	}
	body := decode[map[string]any](t, data)
	rows := body["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	if d := rows[0].(map[string]any)["deficit_12_month"].(float64); math.Abs(d-240) > 1e-6 {
		t.Errorf("deficit = %f", d)
	}

	resp, data = do(t, http.MethodGet, srv.URL+"/api/summary?format=csv", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "text/csv" {
		t.Fatalf("csv = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(string(data), "Specialty,Referrals (Baseline)") {
		t.Errorf("csv = %.80s", data)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/summary?baseline_start=2024-06&baseline_end=2024-01", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("reversed baseline = %d", resp.StatusCode)
	}
}

func TestSessionStore_Prune(t *testing.T) {
	s := NewSessionStore()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old := pipeline.AnalysisContext{ID: uuid.New()}
	s.Put(old)
	now = now.Add(2 * time.Hour)
	fresh := pipeline.AnalysisContext{ID: uuid.New()}
	s.Put(fresh)

	if n := s.Prune(time.Hour); n != 1 {
		t.Fatalf("pruned %d", n)
	}
	if _, err := s.Get(old.ID); err != ErrSessionNotFound {
		t.Errorf("old session still present: %v", err)
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Errorf("fresh session: %v", err)
	}
}
