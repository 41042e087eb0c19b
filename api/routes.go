package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sets up chi router, middlewares and defines all api endpoints
func (s *Server) routes() {
	s.r = chi.NewRouter()

	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(middleware.Logger)
	s.r.Use(middleware.Recoverer)

	s.r.Use(middleware.Timeout(60 * time.Second))

	s.r.Handle("/metrics", promhttp.Handler())

	s.r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, http.StatusOK, map[string]interface{}{"health_status": "online"})
		})

		r.Get("/withdrawals", s.handleWithdrawalsGet)
		r.Post("/withdrawals/evaluate", s.handleWithdrawalEvaluate)
		r.Get("/withdrawals/{txHash}", s.handleWithdrawalGet)

		r.Get("/relays", s.handleRelaysGet)
	})
}
