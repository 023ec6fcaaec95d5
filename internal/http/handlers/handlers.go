// Package handlers implements the HAP endpoints served on the accessory
// listener: the pairing state machines (TLV8) and the accessory data plane
// (JSON).
package handlers

import (
	"context"
	"slices"

	"github.com/jmylchreest/hapd/internal/tlv"
)

// pairStep is a decoded pairing request.
type pairStep struct {
	state  byte
	method byte
	body   *tlv.Container
}

// parseStep decodes a pairing request. A body without a state cannot be
// answered meaningfully; it gets Unknown at M2.
func parseStep(_ context.Context, body []byte) (pairStep, error) {
	c, err := tlv.Decode(body)
	if err != nil {
		return pairStep{}, tlv.NewError(2, tlv.ErrorUnknown)
	}
	state, ok := c.GetByte(tlv.TypeState)
	if !ok {
		return pairStep{}, tlv.NewError(2, tlv.ErrorUnknown)
	}
	method, _ := c.GetByte(tlv.TypeMethod)
	return pairStep{state: state, method: method, body: c}, nil
}

// concat joins byte slices into a fresh buffer.
func concat(parts ...[]byte) []byte {
	return slices.Concat(parts...)
}
