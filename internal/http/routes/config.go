// Package routes provides shared route registration for the hapd HTTP
// listeners. The admin server and the OpenAPI generator use the same admin
// route definitions, so the generated document always matches the daemon.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/hapd/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the admin API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("hapd admin API", version)
	cfg.Info.Description = "Administrative REST API for the hapd HomeKit accessory server."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "Admin API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Static admin token from `api.token`. Send it as `Authorization: Bearer <token>` or `X-API-Key: <token>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Health", Description: "Liveness"},
		{Name: "System", Description: "Version and runtime status"},
		{Name: "Accessories", Description: "Accessory database inspection and control"},
		{Name: "Pairings", Description: "Paired controller management"},
		{Name: "Logging", Description: "Runtime log level management"},
	}

	return cfg
}
