package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Typerace API", "/openapi.json", "/docs"))
	if deps.Health != nil {
		r.Mount("/healthz", deps.Health)
	}

	r.Route("/api/rooms", func(r chi.Router) {
		r.With(requireIdentity).Post("/", handleCreateRoom(logger, deps.Rooms, deps.Profiles))

		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", handleGetRoom(logger, deps.Rooms))
			r.Get("/results", handleResults(logger, deps.Rooms))
			r.Get("/events", handleEvents(logger, deps.Rooms))
			r.Get("/ws", handleStream(logger, deps.Rooms))

			r.Group(func(r chi.Router) {
				r.Use(requireIdentity)
				r.Post("/join", handleJoinRoom(logger, deps.Rooms, deps.Profiles))
				r.Post("/start", handleStartRace(logger, deps.Rooms, deps.Countdown))
				r.Post("/status", handleAnnounceStatus(logger, deps.Rooms))
				r.Post("/progress", handleProgress(logger, deps.Rooms))
				r.Post("/finish", handleFinish(logger, deps.Rooms))
			})
		})
	})

	r.Post("/api/runs", handleSubmitRun(logger, deps.Leaderboard))
	r.Get("/api/leaderboard", handleLeaderboard(logger, deps.Leaderboard))
	r.Get("/api/users/{uid}/runs", handleUserRuns(logger, deps.Leaderboard))

	r.Get("/api/passages", handlePassage())

	r.Get("/api/usernames/{username}", handleUsernameAvailable(logger, deps.Profiles))
	r.Route("/api/profile", func(r chi.Router) {
		r.Use(requireIdentity)
		r.Get("/", handleGetProfile(logger, deps.Profiles))
		r.Put("/", handleClaimUsername(logger, deps.Profiles))
	})

	if deps.AdminPasswordHash != "" {
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(adminAuthMiddleware(deps.AdminPasswordHash))
			r.Delete("/collections/{name}", handleDeleteCollection(logger, deps.Maintenance))
		})
	} else {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin routes disabled")
	}
}
