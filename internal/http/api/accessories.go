package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/hapd/internal/accessory"
)

// --- List Accessories ---

// ListAccessoriesInput is the input for listing accessories.
type ListAccessoriesInput struct{}

// ListAccessoriesOutput is the output for listing accessories.
type ListAccessoriesOutput struct {
	Body []AccessoryResponse
}

// --- Get Accessory ---

// GetAccessoryInput is the input for getting a single accessory.
type GetAccessoryInput struct {
	AID uint64 `path:"aid" doc:"Accessory identifier"`
}

// GetAccessoryOutput is the output for getting a single accessory.
type GetAccessoryOutput struct {
	Body AccessoryResponse
}

// --- Set Characteristic ---

// SetCharacteristicInput is the input for setting a characteristic value.
type SetCharacteristicInput struct {
	AID  uint64 `path:"aid" doc:"Accessory identifier"`
	IID  uint64 `path:"iid" doc:"Characteristic instance identifier"`
	Body struct {
		Value any `json:"value" doc:"New value, in the characteristic's format" required:"true"`
	}
}

// SetCharacteristicOutput is the output for setting a characteristic value.
type SetCharacteristicOutput struct {
	Body StatusResponse
}

// AccessoryHandler implements accessory-related HTTP handlers.
type AccessoryHandler struct {
	Accessories *accessory.Database
}

// ListAccessories returns every accessory served by the bridge.
func (h *AccessoryHandler) ListAccessories(_ context.Context, _ *ListAccessoriesInput) (*ListAccessoriesOutput, error) {
	return &ListAccessoriesOutput{Body: AccessoriesFromInternal(h.Accessories.Accessories())}, nil
}

// GetAccessory returns a single accessory by aid.
func (h *AccessoryHandler) GetAccessory(_ context.Context, input *GetAccessoryInput) (*GetAccessoryOutput, error) {
	a, ok := h.Accessories.Accessory(input.AID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("Accessory not found: %d", input.AID))
	}
	return &GetAccessoryOutput{Body: AccessoryFromInternal(a)}, nil
}

// SetCharacteristic changes a value on behalf of the accessory. Controllers
// subscribed to the characteristic are notified.
func (h *AccessoryHandler) SetCharacteristic(ctx context.Context, input *SetCharacteristicInput) (*SetCharacteristicOutput, error) {
	if input.Body.Value == nil {
		return nil, huma.Error400BadRequest("value is required")
	}
	if err := h.Accessories.SetValue(ctx, input.AID, input.IID, input.Body.Value); err != nil {
		return nil, humaError(err, "Error setting characteristic")
	}
	return &SetCharacteristicOutput{Body: StatusResponse{Status: "ok"}}, nil
}

// Ensure AccessoryHandler implements the interface at compile time.
var _ AccessoryHandlers = (*AccessoryHandler)(nil)

// AccessoryHandlers defines the interface for accessory operations.
type AccessoryHandlers interface {
	ListAccessories(ctx context.Context, input *ListAccessoriesInput) (*ListAccessoriesOutput, error)
	GetAccessory(ctx context.Context, input *GetAccessoryInput) (*GetAccessoryOutput, error)
	SetCharacteristic(ctx context.Context, input *SetCharacteristicInput) (*SetCharacteristicOutput, error)
}
