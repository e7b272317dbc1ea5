package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database/memory"
	"github.com/kozaktomas/attendance/internal/encoder"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
)

// stubEncoder returns canned face responses without any network traffic.
type stubEncoder struct {
	resp *encoder.FaceResponse
	err  error
}

func (s *stubEncoder) DetectFaces(ctx context.Context, imageData []byte) (*encoder.FaceResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubEncoder) Model() string { return "buffalo_l" }

// testEnv wires handlers over in-memory stores and a stub face encoder.
type testEnv struct {
	store      *memory.PersonRepository
	attStore   *memory.AttendanceRepository
	enc        *stubEncoder
	registry   *registry.Registry
	holder     *matcher.ModelHolder
	ledger     *attendance.Ledger
	persons    *PersonsHandler
	model      *ModelHandler
	attendance *AttendanceHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewPersonRepository()
	attStore := memory.NewAttendanceRepository()
	enc := &stubEncoder{}
	reg := registry.New(store, enc)
	holder := matcher.NewModelHolder(0.6)
	ledger := attendance.NewLedger(attStore)

	return &testEnv{
		store:      store,
		attStore:   attStore,
		enc:        enc,
		registry:   reg,
		holder:     holder,
		ledger:     ledger,
		persons:    NewPersonsHandler(reg, holder),
		model:      NewModelHandler(reg, holder),
		attendance: NewAttendanceHandler(enc, holder, ledger),
	}
}

// singleFace builds a one-face detection response around the embedding.
func singleFace(embedding []float32) *encoder.FaceResponse {
	return &encoder.FaceResponse{
		FacesCount: 1,
		Faces:      []encoder.Face{{Dim: len(embedding), Embedding: embedding, DetScore: 0.95}},
		Model:      "buffalo_l",
	}
}

// emptyFaceResponse builds a detection response with zero faces.
func emptyFaceResponse() *encoder.FaceResponse {
	return &encoder.FaceResponse{Model: "buffalo_l"}
}

// enrollWithSample enrolls a person and stores one sample with the given
// embedding, returning the person ID.
func (env *testEnv) enrollWithSample(t *testing.T, name string, embedding []float32) string {
	t.Helper()
	ctx := context.Background()

	id, err := env.registry.Enroll(ctx, name)
	if err != nil {
		t.Fatalf("Enroll(%s) failed: %v", name, err)
	}

	env.enc.resp = singleFace(embedding)
	if _, err := env.registry.AddSample(ctx, id, []byte("img"), name+".jpg"); err != nil {
		t.Fatalf("AddSample(%s) failed: %v", name, err)
	}
	return id
}

// train rebuilds the model from the current enrollment data.
func (env *testEnv) train(t *testing.T) {
	t.Helper()
	if _, err := env.holder.Rebuild(context.Background(), env.registry); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}
