package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	HealthCheck(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var body map[string]string
	parseJSONResponse(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestEnrollPerson(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/persons",
		strings.NewReader(`{"display_name": "Alice"}`))
	rec := httptest.NewRecorder()

	env.persons.Enroll(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	var body map[string]string
	parseJSONResponse(t, rec, &body)
	if body["person_id"] != "person_1" {
		t.Errorf("expected person_1, got %s", body["person_id"])
	}
}

func TestEnrollPersonInvalidBody(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"display_name`, http.StatusBadRequest},
		{"blank name", `{"display_name": "  "}`, http.StatusBadRequest},
		{"missing name", `{}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/persons", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			env.persons.Enroll(rec, req)
			assertStatusCode(t, rec, tc.want)
		})
	}
}

func TestListPersons(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.enrollWithSample(t, "Bob", []float32{0, 1})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/persons", nil)
	rec := httptest.NewRecorder()

	env.persons.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var body struct {
		Persons []personResponse `json:"persons"`
		Count   int              `json:"count"`
	}
	parseJSONResponse(t, rec, &body)
	if body.Count != 2 || len(body.Persons) != 2 {
		t.Fatalf("expected 2 persons, got %+v", body)
	}
	if body.Persons[0].DisplayName != "Alice" || body.Persons[0].SampleCount != 1 {
		t.Errorf("unexpected first person: %+v", body.Persons[0])
	}
}

func TestRemovePerson(t *testing.T) {
	env := newTestEnv(t)
	id := env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.train(t)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/persons/"+id, nil),
		map[string]string{"id": id},
	)
	rec := httptest.NewRecorder()

	env.persons.Remove(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	// The model was rebuilt from an empty registry; recognition must be off.
	if _, _, err := env.holder.Recognize([]float32{1, 0}); err == nil {
		t.Error("expected recognition to be disabled after the last person was removed")
	}
}

func TestRemovePersonNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodDelete, "/api/v1/persons/person_404", nil),
		map[string]string{"id": "person_404"},
	)
	rec := httptest.NewRecorder()

	env.persons.Remove(rec, req)
	assertStatusCode(t, rec, http.StatusNotFound)
}

// multipartBody builds a multipart body with a single "file" part.
func multipartBody(t *testing.T, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "sample.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadSample(t *testing.T) {
	env := newTestEnv(t)
	id := env.enrollWithSample(t, "Alice", []float32{1, 0})

	env.enc.resp = singleFace([]float32{0.9, 0.1})
	body, contentType := multipartBody(t, []byte("img"))
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/persons/"+id+"/samples", body),
		map[string]string{"id": id},
	)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	env.persons.UploadSample(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	var resp map[string]string
	parseJSONResponse(t, rec, &resp)
	if resp["sample_id"] == "" {
		t.Error("expected a sample ID in the response")
	}

	// The upload triggers a rebuild, so the new sample matches right away.
	match, ok, err := env.holder.Recognize([]float32{0.9, 0.1})
	if err != nil || !ok {
		t.Fatalf("expected a match after upload, got ok=%v err=%v", ok, err)
	}
	if match.PersonID != id {
		t.Errorf("expected %s, got %s", id, match.PersonID)
	}
}

func TestUploadSampleNoFace(t *testing.T) {
	env := newTestEnv(t)
	id := env.enrollWithSample(t, "Alice", []float32{1, 0})

	env.enc.resp = emptyFaceResponse()
	body, contentType := multipartBody(t, []byte("img"))
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/persons/"+id+"/samples", body),
		map[string]string{"id": id},
	)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	env.persons.UploadSample(rec, req)
	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestUploadSampleUnknownPerson(t *testing.T) {
	env := newTestEnv(t)
	env.enc.resp = singleFace([]float32{1, 0})

	body, contentType := multipartBody(t, []byte("img"))
	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/persons/person_404/samples", body),
		map[string]string{"id": "person_404"},
	)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	env.persons.UploadSample(rec, req)
	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestUploadSampleMissingFile(t *testing.T) {
	env := newTestEnv(t)
	id := env.enrollWithSample(t, "Alice", []float32{1, 0})

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPost, "/api/v1/persons/"+id+"/samples", strings.NewReader("not multipart")),
		map[string]string{"id": id},
	)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	rec := httptest.NewRecorder()

	env.persons.UploadSample(rec, req)
	assertStatusCode(t, rec, http.StatusBadRequest)
}
