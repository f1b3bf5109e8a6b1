package rest

import (
	"context"
	"net/http"

	core_port "akiya-radar/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	logger     core_port.LoggerPort
}

func NewServer(port string,
	jobHandlers *JobHandler,
	propertyHandlers *PropertyHandler,
	baseLogger core_port.LoggerPort) *Server {

	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/jobs", jobHandlers.CreateJob)
		r.Get("/jobs/{jobID}", jobHandlers.GetJob)
		r.Get("/sources", jobHandlers.ListSources)

		r.Get("/properties", propertyHandlers.FindProperties)
		r.Get("/properties/{propertyID}", propertyHandlers.GetProperty)
		r.Get("/properties/{propertyID}/hazard", propertyHandlers.GetHazard)
		r.Get("/properties/{propertyID}/score", propertyHandlers.GetScore)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: r,
		},
		logger: baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", core_port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
