package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/hapd/internal/dispatch"
	"github.com/jmylchreest/hapd/internal/http/handlers"
	"github.com/jmylchreest/hapd/internal/http/mw"
	"github.com/jmylchreest/hapd/internal/session"
)

// Register registers all admin API routes with the given Huma API instance.
// Pass real handler implementations for the daemon, or stub implementations
// for OpenAPI generation.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", h.HealthCheck)

	// --- System ---
	mw.PublicGet(api, "/api/v1/version", h.System.Version,
		mw.WithTags("System"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date. This endpoint does not require authentication."),
		mw.WithOperationID("getVersion"))

	mw.ProtectedGet(api, "/api/v1/status", h.System.Status,
		mw.WithTags("System"),
		mw.WithSummary("Runtime status"),
		mw.WithDescription("Reports pairing state, open HAP connections, event listeners and subscriptions."),
		mw.WithOperationID("getStatus"))

	// --- Accessories ---
	mw.ProtectedGet(api, "/api/v1/accessories", h.Accessory.ListAccessories,
		mw.WithTags("Accessories"),
		mw.WithSummary("List accessories"),
		mw.WithOperationID("listAccessories"))

	mw.ProtectedGet(api, "/api/v1/accessories/{aid}", h.Accessory.GetAccessory,
		mw.WithTags("Accessories"),
		mw.WithSummary("Get an accessory"),
		mw.WithOperationID("getAccessory"))

	mw.ProtectedPut(api, "/api/v1/accessories/{aid}/characteristics/{iid}", h.Accessory.SetCharacteristic,
		mw.WithTags("Accessories"),
		mw.WithSummary("Set a characteristic value"),
		mw.WithDescription("Changes a value on behalf of the accessory. Permissions are not checked; subscribed controllers are notified."),
		mw.WithOperationID("setCharacteristic"))

	// --- Pairings ---
	mw.ProtectedGet(api, "/api/v1/pairings", h.Pairing.ListPairings,
		mw.WithTags("Pairings"),
		mw.WithSummary("List paired controllers"),
		mw.WithOperationID("listPairings"))

	mw.ProtectedDelete(api, "/api/v1/pairings/{id}", h.Pairing.DeletePairing,
		mw.WithTags("Pairings"),
		mw.WithSummary("Remove a pairing"),
		mw.WithDescription("Removes a controller pairing and closes its open connections."),
		mw.WithOperationID("deletePairing"),
		mw.WithDefaultStatus(204))

	// --- Logging ---
	mw.ProtectedGet(api, "/api/v1/logging/level", h.Logging.GetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Get global log level"),
		mw.WithOperationID("getLogLevel"))

	mw.ProtectedPut(api, "/api/v1/logging/level", h.Logging.SetLevel,
		mw.WithTags("Logging"),
		mw.WithSummary("Set global log level"),
		mw.WithDescription("Changes the global log level at runtime. Valid values: debug, info, warn, error."),
		mw.WithOperationID("setLogLevel"))
}

// RegisterHAP mounts the HAP endpoints on r. Pairing endpoints are open;
// the accessory endpoints require a verified connection. notify, if not nil,
// serves GET /events.
func RegisterHAP(r chi.Router, shared *dispatch.Shared, notify http.Handler) {
	serve := func(name string, h dispatch.Handler) http.HandlerFunc {
		return dispatch.Serve(name, h, shared)
	}

	r.Post("/pair-setup", serve("pair-setup", dispatch.PerConnection("pair-setup", handlers.NewPairSetup)))
	r.Post("/pair-verify", serve("pair-verify", dispatch.PerConnection("pair-verify", handlers.NewPairVerify)))
	r.Post("/pairings", serve("pairings", handlers.NewPairings()))
	r.Post("/identify", serve("identify", dispatch.NewJSONHandler(handlers.Identify{})))

	r.Group(func(r chi.Router) {
		r.Use(session.RequireVerified)

		r.Get("/accessories", serve("accessories", dispatch.NewJSONHandler(handlers.Accessories{})))

		characteristics := serve("characteristics", dispatch.NewJSONHandler(handlers.Characteristics{}))
		r.Get("/characteristics", characteristics)
		r.Put("/characteristics", characteristics)

		if notify != nil {
			r.Get("/events", notify.ServeHTTP)
		}
	})
}
