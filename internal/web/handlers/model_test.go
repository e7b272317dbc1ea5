package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModelStatusUntrained(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model/status", nil)
	rec := httptest.NewRecorder()
	env.model.Status(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var status modelStatusResponse
	parseJSONResponse(t, rec, &status)
	if status.Trained {
		t.Error("expected untrained status before any training")
	}
	if status.Encodings != 0 || status.Persons != 0 {
		t.Errorf("expected empty model stats, got %+v", status)
	}
}

func TestTrainEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})
	env.enrollWithSample(t, "Bob", []float32{0, 1})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	env.model.Train(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var status modelStatusResponse
	parseJSONResponse(t, rec, &status)
	if !status.Trained {
		t.Fatal("expected trained model")
	}
	if status.Encodings != 2 || status.Persons != 2 {
		t.Errorf("expected 2 encodings / 2 persons, got %+v", status)
	}
	if status.Version == 0 {
		t.Error("expected a non-zero model version")
	}
	if status.Tolerance != 0.6 {
		t.Errorf("expected tolerance 0.6, got %v", status.Tolerance)
	}
}

func TestTrainEndpointStoreError(t *testing.T) {
	env := newTestEnv(t)
	env.store.ListError = errors.New("db down")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/train", nil)
	rec := httptest.NewRecorder()
	env.model.Train(rec, req)

	assertStatusCode(t, rec, http.StatusInternalServerError)
}

func TestTrainThenStatusAgree(t *testing.T) {
	env := newTestEnv(t)
	env.enrollWithSample(t, "Alice", []float32{1, 0})

	trainRec := httptest.NewRecorder()
	env.model.Train(trainRec, httptest.NewRequest(http.MethodPost, "/api/v1/train", nil))
	var trained modelStatusResponse
	parseJSONResponse(t, trainRec, &trained)

	statusRec := httptest.NewRecorder()
	env.model.Status(statusRec, httptest.NewRequest(http.MethodGet, "/api/v1/model/status", nil))
	var status modelStatusResponse
	parseJSONResponse(t, statusRec, &status)

	if trained.Version != status.Version {
		t.Errorf("train reported v%d but status reports v%d", trained.Version, status.Version)
	}
}
