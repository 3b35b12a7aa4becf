package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oneconcern/podbundle/pkg/metrics"
)

// InitRouter mounts the build server routes
func InitRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(srv.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.HandleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/feed", func(r chi.Router) {
		r.Put("/", srv.HandleUploadFeed)
		r.Put("/{type:js|css}", srv.HandleUploadFeed)
		r.Get("/{file}", srv.HandleFetchFeed)
	})

	r.Route("/bundle", func(r chi.Router) {
		r.Post("/", srv.HandleCreateBundle)
		r.Post("/{type:js|css}", srv.HandleCreateBundle)
		r.Get("/{file}", srv.HandleFetchBundle)
	})

	r.Post("/assets", srv.HandlePublishAssets)

	r.Route("/instructions", func(r chi.Router) {
		r.Post("/", srv.HandlePublishInstruction)
		r.Get("/{layout}/{type}", srv.HandleInstructionStatus)
	})

	r.Get("/history", srv.HandleHistory)

	return r
}
