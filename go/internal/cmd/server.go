package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/hackjudge/go/internal/auth"
	"github.com/mcdev12/hackjudge/go/internal/judging"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
	"github.com/mcdev12/hackjudge/go/internal/users"
)

func setupServer(cfg *Config, services *Services, issuer *auth.Issuer) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.CORSOrigins,
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services, auth.Middleware(issuer, services.UserStore))
	setupHealthCheck(mux, services)
	mux.Handle("/metrics", promhttp.Handler())

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services, authn func(http.Handler) http.Handler) {
	presentationPath, presentationHandler := presentation.NewHandler(services.Presentation)
	mux.Handle(presentationPath, authn(presentationHandler))

	judgingPath, judgingHandler := judging.NewHandler(services.Judging)
	mux.Handle(judgingPath, authn(judgingHandler))

	usersPath, usersHandler := users.NewHandler(services.Users)
	mux.Handle(usersPath, authn(usersHandler))
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := services.Health(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check failed")
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
