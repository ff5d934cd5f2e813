package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"trivia-quiz-service/internal/app"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Service  *app.QuizService
	WS       *WSHandler
	Verifier TokenVerifier
	// Health checks run by /healthz; empty means always healthy.
	Health []Pinger
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/healthz", healthz(deps.Health)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	quiz := NewQuizHandler(deps.Service)
	api := r.PathPrefix("/api/quiz").Subrouter()
	api.Use(RequireOwner(deps.Verifier))

	api.HandleFunc("/sessions", quiz.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/active", quiz.ActiveSession).Methods("GET")
	api.HandleFunc("/sessions/{id:[0-9]+}", quiz.UpdateSession).Methods("PATCH")
	api.HandleFunc("/sessions/{id:[0-9]+}/complete", quiz.CompleteSession).Methods("POST")
	api.HandleFunc("/results", quiz.ListResults).Methods("GET")
	api.HandleFunc("/results/{id:[0-9]+}", quiz.GetResult).Methods("GET")
	api.HandleFunc("/stats", quiz.Stats).Methods("GET")
	api.HandleFunc("/categories", quiz.Categories).Methods("GET")

	if deps.WS != nil {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(RequireOwner(deps.Verifier))
		ws.HandleFunc("/play", deps.WS.ServeWS).Methods("GET")
	}

	return r
}

func healthz(checks []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checks {
			if err := c.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.Write([]byte("ok"))
	}
}
