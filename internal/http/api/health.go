package api

import (
	"context"
	"runtime"
	"time"

	"github.com/jmylchreest/hapd/internal/dispatch"
)

// --- Health Check ---

// HealthInput is the input for health check endpoints.
type HealthInput struct{}

// HealthOutput is the output for health check endpoints.
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service health status"`
	}
}

// HealthCheck returns the service health status.
// This is a public endpoint (no auth required).
func HealthCheck(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

// --- Version ---

// VersionInfo is the build information reported by the daemon.
type VersionInfo struct {
	Version   string `json:"version" doc:"Release version"`
	Commit    string `json:"commit" doc:"Source commit"`
	BuildDate string `json:"build_date" doc:"Build timestamp"`
	GoVersion string `json:"go_version" doc:"Go toolchain version"`
}

// VersionInput is the input for the version endpoint.
type VersionInput struct{}

// VersionOutput is the output for the version endpoint.
type VersionOutput struct {
	Body VersionInfo
}

// --- Status ---

// StatusInput is the input for the status endpoint.
type StatusInput struct{}

// StatusOutput is the output for the status endpoint.
type StatusOutput struct {
	Body struct {
		Name          string `json:"name" doc:"Advertised accessory name"`
		Paired        bool   `json:"paired" doc:"Whether any controller is paired"`
		Pairings      int    `json:"pairings" doc:"Number of paired controllers"`
		Sessions      int    `json:"sessions" doc:"Open HAP connections"`
		Listeners     int    `json:"listeners" doc:"Registered event bus listeners"`
		Subscriptions int    `json:"subscriptions" doc:"Characteristic event subscriptions"`
		Accessories   int    `json:"accessories" doc:"Number of accessories served"`
		Uptime        string `json:"uptime" doc:"Time since the daemon started"`
	}
}

// SystemHandler implements the version and status endpoints.
type SystemHandler struct {
	Shared  *dispatch.Shared
	Build   VersionInfo
	Started time.Time
}

// Version returns build information.
func (h *SystemHandler) Version(_ context.Context, _ *VersionInput) (*VersionOutput, error) {
	info := h.Build
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return &VersionOutput{Body: info}, nil
}

// Status summarises pairing and connection state.
func (h *SystemHandler) Status(ctx context.Context, _ *StatusInput) (*StatusOutput, error) {
	n, err := h.Shared.Pairings.Count(ctx)
	if err != nil {
		return nil, humaError(err, "Failed to count pairings")
	}

	out := &StatusOutput{}
	out.Body.Name = h.Shared.Config.Server.Name
	out.Body.Paired = n > 0
	out.Body.Pairings = n
	out.Body.Sessions = h.Shared.Sessions.Count()
	out.Body.Listeners = h.Shared.Events.Len()
	out.Body.Subscriptions = h.Shared.Subscriptions.Count()
	out.Body.Accessories = len(h.Shared.Accessories.Accessories())
	if !h.Started.IsZero() {
		out.Body.Uptime = time.Since(h.Started).Round(time.Second).String()
	}
	return out, nil
}

// Ensure SystemHandler implements the interface at compile time.
var _ SystemHandlers = (*SystemHandler)(nil)

// SystemHandlers defines the interface for daemon information operations.
type SystemHandlers interface {
	Version(ctx context.Context, input *VersionInput) (*VersionOutput, error)
	Status(ctx context.Context, input *StatusInput) (*StatusOutput, error)
}
