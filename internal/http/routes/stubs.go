package routes

import (
	"context"

	"github.com/jmylchreest/hapd/internal/http/api"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses; they are only used for OpenAPI generation
// where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		HealthCheck: func(_ context.Context, _ *api.HealthInput) (*api.HealthOutput, error) {
			return nil, nil
		},
		System:    &stubSystemHandlers{},
		Accessory: &stubAccessoryHandlers{},
		Pairing:   &stubPairingHandlers{},
		Logging:   &stubLoggingHandlers{},
	}
}

// --- System stubs ---

type stubSystemHandlers struct{}

func (s *stubSystemHandlers) Version(_ context.Context, _ *api.VersionInput) (*api.VersionOutput, error) {
	return nil, nil
}

func (s *stubSystemHandlers) Status(_ context.Context, _ *api.StatusInput) (*api.StatusOutput, error) {
	return nil, nil
}

// --- Accessory stubs ---

type stubAccessoryHandlers struct{}

func (s *stubAccessoryHandlers) ListAccessories(_ context.Context, _ *api.ListAccessoriesInput) (*api.ListAccessoriesOutput, error) {
	return nil, nil
}

func (s *stubAccessoryHandlers) GetAccessory(_ context.Context, _ *api.GetAccessoryInput) (*api.GetAccessoryOutput, error) {
	return nil, nil
}

func (s *stubAccessoryHandlers) SetCharacteristic(_ context.Context, _ *api.SetCharacteristicInput) (*api.SetCharacteristicOutput, error) {
	return nil, nil
}

// --- Pairing stubs ---

type stubPairingHandlers struct{}

func (s *stubPairingHandlers) ListPairings(_ context.Context, _ *api.ListPairingsInput) (*api.ListPairingsOutput, error) {
	return nil, nil
}

func (s *stubPairingHandlers) DeletePairing(_ context.Context, _ *api.DeletePairingInput) (*api.DeletePairingOutput, error) {
	return nil, nil
}

// --- Logging stubs ---

type stubLoggingHandlers struct{}

func (s *stubLoggingHandlers) GetLevel(_ context.Context, _ *api.GetLevelInput) (*api.GetLevelOutput, error) {
	return nil, nil
}

func (s *stubLoggingHandlers) SetLevel(_ context.Context, _ *api.SetLevelInput) (*api.SetLevelOutput, error) {
	return nil, nil
}
