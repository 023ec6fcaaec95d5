package routes

import (
	"context"

	"github.com/jmylchreest/hapd/internal/http/api"
)

// Handlers aggregates all admin handler interfaces for route registration.
// For the daemon, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	HealthCheck func(context.Context, *api.HealthInput) (*api.HealthOutput, error)
	System      api.SystemHandlers
	Accessory   api.AccessoryHandlers
	Pairing     api.PairingHandlers
	Logging     api.LoggingHandlers
}
