package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/alyeaaah/seventy-five-engine/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	matchHandler *handlers.MatchHandler,
	groupHandler *handlers.GroupHandler,
	tournamentHandler *handlers.TournamentHandler,
	ledgerHandler *handlers.LedgerHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/matches/{id}", func(r chi.Router) {
		r.Get("/", matchHandler.GetMatch)
		r.Post("/start", matchHandler.StartMatch)
		r.Post("/sets", matchHandler.RecordSetResult)
		r.Post("/points", matchHandler.ApplyPoint)
		r.Post("/points/undo", matchHandler.UndoPoint)
		r.Post("/finish", matchHandler.FinishMatch)
		r.Post("/cancel", matchHandler.CancelMatch)
	})

	router.Route("/groups/{id}", func(r chi.Router) {
		r.Get("/standings", groupHandler.GetStandings)
		r.Post("/standings/recompute", groupHandler.RecomputeStandings)
		r.Post("/resolve", groupHandler.ResolveGroup)
		r.Post("/matches", tournamentHandler.GenerateGroupMatches)
	})

	router.Route("/tournaments/{id}", func(r chi.Router) {
		r.Get("/bracket", tournamentHandler.GetBracket)
		r.Post("/knockout", tournamentHandler.GenerateKnockout)
		r.Post("/knockout/group-fed", tournamentHandler.GenerateGroupFedKnockout)
	})

	router.Get("/players/{id}/coins", ledgerHandler.GetCoins)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
