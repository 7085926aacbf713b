package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zxia545/object-detection-analytic-image-gen/internal/api/middleware"
)

// setupRouter builds the HTTP routing table.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Post("/generate", app.generationHandler.Generate)
	r.Post("/generate_case", app.generationHandler.GenerateCase)
	r.Get("/status/{task_id}", app.inspectionHandler.Status)
	r.Get("/result/{filename}", app.inspectionHandler.Result)
	r.Get("/healthz", app.inspectionHandler.Healthz)
	r.Get("/queue", app.inspectionHandler.Queue)
	r.Get("/history", app.inspectionHandler.History)
	r.Get("/history/archive", app.inspectionHandler.HistoryArchive)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
