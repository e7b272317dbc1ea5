package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// markRequest builds a JSON mark request with a base64 image payload.
func markRequest(t *testing.T) *http.Request {
	t.Helper()
	payload := base64.StdEncoding.EncodeToString([]byte("frame"))
	body := fmt.Sprintf(`{"image": "data:image/jpeg;base64,%s"}`, payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/mark", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func markAt(t *testing.T, env *testEnv, at time.Time) *httptest.ResponseRecorder {
	t.Helper()
	env.attendance.now = func() time.Time { return at }
	rec := httptest.NewRecorder()
	env.attendance.Mark(rec, markRequest(t))
	return rec
}

func TestMarkAttendance(t *testing.T) {
	env := newTestEnv(t)
	id := env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)

	env.enc.resp = singleFace([]float32{0.99, 0.01})
	rec := markAt(t, env, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	assertStatusCode(t, rec, http.StatusOK)
	var body struct {
		Marked       []markedPerson `json:"marked"`
		Unrecognized int            `json:"unrecognized"`
	}
	parseJSONResponse(t, rec, &body)
	if len(body.Marked) != 1 {
		t.Fatalf("expected 1 marked person, got %+v", body)
	}
	if body.Marked[0].PersonID != id || body.Marked[0].Duration != "0m" {
		t.Errorf("unexpected marked entry: %+v", body.Marked[0])
	}
}

func TestMarkAttendanceRepeatedSightingsCollapse(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)
	env.enc.resp = singleFace([]float32{0.99, 0.01})

	first := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assertStatusCode(t, markAt(t, env, first), http.StatusOK)
	rec := markAt(t, env, first.Add(5*time.Second))
	assertStatusCode(t, rec, http.StatusOK)

	var body struct {
		Marked []markedPerson `json:"marked"`
	}
	parseJSONResponse(t, rec, &body)
	if body.Marked[0].Duration != "0m" {
		t.Errorf("5s apart should still render 0m, got %s", body.Marked[0].Duration)
	}

	// Only one record exists for the day.
	logReq := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/logs?date=2025-03-10", nil)
	logRec := httptest.NewRecorder()
	env.attendance.Logs(logRec, logReq)
	assertStatusCode(t, logRec, http.StatusOK)

	var logs struct {
		Records []markedPerson `json:"records"`
		Count   int            `json:"count"`
	}
	parseJSONResponse(t, logRec, &logs)
	if logs.Count != 1 {
		t.Errorf("expected a single collapsed record, got %d", logs.Count)
	}
}

func TestMarkAttendanceUnknownFace(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0, 0})
	env.train(t)

	// Orthogonal to everything enrolled.
	env.enc.resp = singleFace([]float32{0, 0, 1})
	rec := markAt(t, env, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestMarkAttendanceNoFaces(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)

	env.enc.resp = emptyFaceResponse()
	rec := markAt(t, env, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestMarkAttendanceModelNotTrained(t *testing.T) {
	env := newTestEnv(t)
	env.enc.resp = singleFace([]float32{1, 0})

	rec := markAt(t, env, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	assertStatusCode(t, rec, http.StatusConflict)
}

func TestMarkAttendanceInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"image`},
		{"empty image", `{"image": ""}`},
		{"bad base64", `{"image": "data:image/jpeg;base64,!!!"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/mark", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			env.attendance.Mark(rec, req)
			assertStatusCode(t, rec, http.StatusBadRequest)
		})
	}
}

func TestAttendanceLogsPersonFilter(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.enrollWithSample(t, "Bob", []float32{0, 1})
	env.train(t)

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env.enc.resp = singleFace([]float32{0.99, 0.01})
	assertStatusCode(t, markAt(t, env, at), http.StatusOK)
	env.enc.resp = singleFace([]float32{0.01, 0.99})
	assertStatusCode(t, markAt(t, env, at.Add(time.Minute)), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/logs?date=2025-03-10&person=Bob", nil)
	rec := httptest.NewRecorder()
	env.attendance.Logs(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var logs struct {
		Records []markedPerson `json:"records"`
		Count   int            `json:"count"`
	}
	parseJSONResponse(t, rec, &logs)
	if logs.Count != 1 || logs.Records[0].DisplayName != "Bob" {
		t.Errorf("expected only Bob's record, got %+v", logs)
	}
}

func TestAttendanceLogsInvalidDate(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/logs?date=03/10/2025", nil)
	rec := httptest.NewRecorder()
	env.attendance.Logs(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestAttendanceStats(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)
	env.enc.resp = singleFace([]float32{0.99, 0.01})

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assertStatusCode(t, markAt(t, env, at), http.StatusOK)
	assertStatusCode(t, markAt(t, env, at.Add(time.Hour)), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/stats?date=2025-03-10", nil)
	rec := httptest.NewRecorder()
	env.attendance.Stats(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var stats struct {
		Date         string   `json:"date"`
		TotalPresent int      `json:"total_present"`
		TotalMarked  int      `json:"total_marked"`
		Persons      []string `json:"unique_persons"`
	}
	parseJSONResponse(t, rec, &stats)
	if stats.Date != "2025-03-10" || stats.TotalPresent != 1 || stats.TotalMarked != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(stats.Persons) != 1 || stats.Persons[0] != "Alice" {
		t.Errorf("expected [Alice], got %v", stats.Persons)
	}
}

func TestAttendanceExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)
	env.enc.resp = singleFace([]float32{0.99, 0.01})

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assertStatusCode(t, markAt(t, env, at), http.StatusOK)
	assertStatusCode(t, markAt(t, env, at.Add(8*time.Hour+15*time.Minute)), http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?date=2025-03-10", nil)
	rec := httptest.NewRecorder()
	env.attendance.Export(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance_2025-03-10.csv") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got:\n%s", rec.Body.String())
	}
	if !strings.HasPrefix(lines[1], "Alice,") || !strings.HasSuffix(lines[1], "8h 15m") {
		t.Errorf("unexpected CSV row: %s", lines[1])
	}
}
