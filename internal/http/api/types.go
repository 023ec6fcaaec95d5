// Package api provides typed Huma request/response structs and handler
// implementations for the hapd admin HTTP API.
package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/hapd/internal/accessory"
	herrors "github.com/jmylchreest/hapd/internal/errors"
	"github.com/jmylchreest/hapd/internal/pairing"
)

// --- Accessory types ---

// CharacteristicResponse is the API representation of a characteristic.
type CharacteristicResponse struct {
	IID    uint64   `json:"iid" doc:"Instance identifier within the accessory"`
	Type   string   `json:"type" doc:"HAP characteristic type"`
	Format string   `json:"format" doc:"Value format (bool, uint8, int, float, string, ...)"`
	Perms  []string `json:"perms" doc:"Permissions (pr, pw, ev, ...)"`
	Value  any      `json:"value,omitempty" doc:"Current value"`
	Unit   string   `json:"unit,omitempty" doc:"Unit of the value"`
}

// ServiceResponse is the API representation of a service.
type ServiceResponse struct {
	IID             uint64                   `json:"iid" doc:"Instance identifier within the accessory"`
	Type            string                   `json:"type" doc:"HAP service type"`
	Primary         bool                     `json:"primary" doc:"Whether this is the accessory's primary service"`
	Characteristics []CharacteristicResponse `json:"characteristics" doc:"Characteristics of the service"`
}

// AccessoryResponse is the API representation of an accessory.
type AccessoryResponse struct {
	AID      uint64            `json:"aid" doc:"Accessory identifier (1 is the bridge)"`
	Name     string            `json:"name" doc:"Name from the accessory information service"`
	Services []ServiceResponse `json:"services" doc:"Services of the accessory"`
}

// AccessoryFromInternal converts an accessory.Accessory to an AccessoryResponse.
func AccessoryFromInternal(a *accessory.Accessory) AccessoryResponse {
	resp := AccessoryResponse{AID: a.AID, Name: a.Name(), Services: make([]ServiceResponse, len(a.Services))}
	for i, s := range a.Services {
		svc := ServiceResponse{IID: s.IID, Type: s.Type, Primary: s.Primary,
			Characteristics: make([]CharacteristicResponse, len(s.Characteristics))}
		for j, c := range s.Characteristics {
			perms := make([]string, len(c.Perms))
			for k, p := range c.Perms {
				perms[k] = string(p)
			}
			svc.Characteristics[j] = CharacteristicResponse{
				IID: c.IID, Type: c.Type, Format: string(c.Format), Perms: perms, Unit: c.Unit,
			}
			if c.Readable() {
				svc.Characteristics[j].Value = c.Value
			}
		}
		resp.Services[i] = svc
	}
	return resp
}

// AccessoriesFromInternal converts a slice of accessories.
func AccessoriesFromInternal(as []*accessory.Accessory) []AccessoryResponse {
	result := make([]AccessoryResponse, len(as))
	for i, a := range as {
		result[i] = AccessoryFromInternal(a)
	}
	return result
}

// --- Pairing types ---

// PairingResponse is the API representation of a controller pairing.
type PairingResponse struct {
	ID        string `json:"id" doc:"Controller pairing identifier (UUID)"`
	PublicKey string `json:"public_key" doc:"Controller long-term public key (hex)"`
	Admin     bool   `json:"admin" doc:"Whether the controller may manage pairings"`
}

// PairingFromInternal converts a pairing.Pairing to a PairingResponse.
func PairingFromInternal(p pairing.Pairing) PairingResponse {
	return PairingResponse{
		ID:        strings.ToUpper(p.ID.String()),
		PublicKey: fmt.Sprintf("%x", []byte(p.PublicKey)),
		Admin:     p.IsAdmin(),
	}
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}

// humaError maps domain errors onto HTTP problem responses.
func humaError(err error, msg string) error {
	switch {
	case herrors.IsNotFound(err):
		return huma.Error404NotFound(fmt.Sprintf("%s: %s", msg, err))
	case herrors.IsInvalidInput(err):
		return huma.Error400BadRequest(fmt.Sprintf("%s: %s", msg, err))
	case errors.Is(err, herrors.ErrUnauthorized):
		return huma.Error403Forbidden(fmt.Sprintf("%s: %s", msg, err))
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
