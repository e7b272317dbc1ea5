package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
)

// AttendanceHandler handles attendance marking, logs, stats and export.
type AttendanceHandler struct {
	encoder registry.FaceEncoder
	holder  *matcher.ModelHolder
	ledger  *attendance.Ledger
	now     func() time.Time
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(enc registry.FaceEncoder, holder *matcher.ModelHolder, ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{
		encoder: enc,
		holder:  holder,
		ledger:  ledger,
		now:     time.Now,
	}
}

type markedPerson struct {
	PersonID    string  `json:"person_id"`
	DisplayName string  `json:"display_name"`
	Distance    float64 `json:"distance"`
	FirstSeen   string  `json:"first_seen"`
	LastSeen    string  `json:"last_seen"`
	Duration    string  `json:"duration"`
}

// Mark handles POST /api/v1/attendance/mark. The frame arrives either as a
// multipart "file" part or as a JSON body with a base64 "image" field (data
// URL prefix allowed). Every recognized face in the frame marks attendance;
// a frame with faces but no matches is reported as 404 so the kiosk can show
// an "unknown person" hint.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	imageData, err := h.readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.encoder.DetectFaces(r.Context(), imageData)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if len(resp.Faces) == 0 {
		respondDomainError(w, registry.ErrNoFaceDetected)
		return
	}

	at := h.now()
	marked := make([]markedPerson, 0, len(resp.Faces))
	unrecognized := 0
	for _, face := range resp.Faces {
		match, ok, err := h.holder.Recognize(face.Embedding)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if !ok {
			unrecognized++
			continue
		}

		rec, err := h.ledger.RecordSighting(r.Context(), match.PersonID, match.DisplayName, at)
		if err != nil {
			log.Printf("Failed to record sighting for %s: %v", match.PersonID, err)
			respondDomainError(w, err)
			return
		}

		marked = append(marked, markedPerson{
			PersonID:    rec.PersonID,
			DisplayName: rec.DisplayName,
			Distance:    match.Distance,
			FirstSeen:   rec.FirstSeen.Format(time.RFC3339),
			LastSeen:    rec.LastSeen.Format(time.RFC3339),
			Duration:    attendance.FormatDuration(rec.Duration()),
		})
	}

	if len(marked) == 0 {
		log.Printf("Frame with %d face(s) matched nobody", len(resp.Faces))
		respondError(w, http.StatusNotFound, "no enrolled person recognized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"marked":       marked,
		"unrecognized": unrecognized,
	})
}

// Logs handles GET /api/v1/attendance/logs?date=YYYY-MM-DD&person=<id or name>.
func (h *AttendanceHandler) Logs(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.Query(r.Context(), r.URL.Query().Get("date"), r.URL.Query().Get("person"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := make([]markedPerson, 0, len(records))
	for _, rec := range records {
		out = append(out, markedPerson{
			PersonID:    rec.PersonID,
			DisplayName: rec.DisplayName,
			FirstSeen:   rec.FirstSeen.Format(time.RFC3339),
			LastSeen:    rec.LastSeen.Format(time.RFC3339),
			Duration:    attendance.FormatDuration(rec.Duration()),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": out,
		"count":   len(out),
	})
}

// Stats handles GET /api/v1/attendance/stats?date=YYYY-MM-DD.
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Statistics(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/v1/attendance/export?date=YYYY-MM-DD and streams
// the day's records as a CSV download.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().Format("2006-01-02")
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s.csv"`, date))

	if err := h.ledger.ExportCSV(r.Context(), date, w); err != nil {
		// Headers may already be out; log and best-effort report.
		log.Printf("CSV export for %s failed: %v", date, err)
		respondDomainError(w, err)
	}
}

// readFrame extracts the image bytes from a mark request.
func (h *AttendanceHandler) readFrame(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxSampleUploadSize); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file in request")
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Image == "" {
		return nil, fmt.Errorf("%s", errInvalidRequestBody)
	}

	// Strip an optional data URL prefix ("data:image/jpeg;base64,").
	payload := req.Image
	if idx := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && idx >= 0 {
		payload = payload[idx+1:]
	}

	imageData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data")
	}
	return imageData, nil
}
