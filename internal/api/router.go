// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface. Action endpoints register for both
// GET and POST: GET keeps the URLs usable from stream decks and browser
// bookmarks, POST is for automation.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/config", h.ConfigSummary)

	// Control app catalog and raw control.
	r.Get("/singular/list", h.SingularList)
	r.Post("/singular/refresh", h.SingularRefresh)
	r.Get("/singular/ping", h.SingularPing)
	r.Post("/singular/control", h.SingularControl)
	r.Get("/api/singular/apps", h.SingularApps)
	r.Get("/api/singular/fields/{app}", h.SingularFields)
	r.Post("/config/singular/add", h.AddApp)
	r.Post("/config/singular/remove", h.RemoveApp)

	// Device passthroughs and module configuration.
	r.Route("/tricaster", func(r chi.Router) {
		r.Get("/test", h.TriCasterTest)
		r.Get("/ddr", h.TriCasterDDR)
		r.Get("/tally", h.TriCasterTally)
		r.Get("/dictionary/{key}", h.TriCasterDictionary)
		getPost(r, "/shortcut/{name}", h.TriCasterShortcut)

		getPost(r, "/record/start", h.namedShortcut("record_start"))
		getPost(r, "/record/stop", h.namedShortcut("record_stop"))
		getPost(r, "/record/toggle", h.namedShortcut("record_toggle"))
		getPost(r, "/streaming/start", h.namedShortcut("streaming_start"))
		getPost(r, "/streaming/stop", h.namedShortcut("streaming_stop"))
		getPost(r, "/streaming/toggle", h.namedShortcut("streaming_toggle"))
		getPost(r, "/main/auto", h.namedShortcut("main_auto"))
		getPost(r, "/main/take", h.namedShortcut("main_take"))
		getPost(r, "/ddr/{slot}/play", h.TriCasterDDRTransport("play"))
		getPost(r, "/ddr/{slot}/stop", h.TriCasterDDRTransport("stop"))
		getPost(r, "/macro/{name}", h.TriCasterMacro)

		getPost(r, "/sync/all", h.SyncAll)
		getPost(r, "/sync/{slot}", h.SyncSlot)
		getPost(r, "/timer/all/restart", h.TimerRestartAll)
		getPost(r, "/timer/{slot}/start", h.TimerCommand("start"))
		getPost(r, "/timer/{slot}/pause", h.TimerCommand("pause"))
		getPost(r, "/timer/{slot}/reset", h.TimerCommand("reset"))
		getPost(r, "/timer/{slot}/restart", h.TimerRestart)

		r.Get("/auto-sync/status", h.AutoSyncStatus)
		r.Post("/auto-sync", h.SetAutoSync)
	})

	r.Post("/config/tricaster", h.SaveTriCasterConfig)
	r.Post("/config/module/tricaster", h.ToggleTriCasterModule)
	r.Get("/config/tricaster/timer-sync", h.GetTimerSyncConfig)
	r.Post("/config/tricaster/timer-sync", h.SaveTimerSyncConfig)

	// Composition actions, addressed by app and slug (or raw id).
	r.Route("/{app}/{key}", func(r chi.Router) {
		r.Get("/", h.CompositionResolve)
		getPost(r, "/in", h.CompositionIn)
		getPost(r, "/out", h.CompositionOut)
		getPost(r, "/set", h.CompositionSet)
		getPost(r, "/timecontrol", h.CompositionTimecontrol)
	})

	return r
}

func getPost(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.Get(pattern, handler)
	r.Post(pattern, handler)
}
