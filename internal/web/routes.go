package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	personsHandler := handlers.NewPersonsHandler(s.registry, s.holder)
	modelHandler := handlers.NewModelHandler(s.registry, s.holder)
	attendanceHandler := handlers.NewAttendanceHandler(s.encoder, s.holder, s.ledger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Persons
		r.Get("/persons", personsHandler.List)
		r.Post("/persons", personsHandler.Enroll)
		r.Delete("/persons/{id}", personsHandler.Remove)
		r.Post("/persons/{id}/samples", personsHandler.UploadSample)

		// Model
		r.Post("/train", modelHandler.Train)
		r.Get("/model/status", modelHandler.Status)

		// Attendance
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance/logs", attendanceHandler.Logs)
		r.Get("/attendance/stats", attendanceHandler.Stats)
		r.Get("/attendance/export", attendanceHandler.Export)
	})
}
