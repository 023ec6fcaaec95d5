// Package mw provides middleware and huma registration helpers shared by the
// HAP and admin routers.
package mw

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name of the admin token scheme in OpenAPI.
const SecurityScheme = "apiToken"

// OperationOption is a function that modifies a Huma operation.
type OperationOption func(*huma.Operation)

// WithTags adds tags to the operation.
func WithTags(tags ...string) OperationOption {
	return func(op *huma.Operation) {
		op.Tags = append(op.Tags, tags...)
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) OperationOption {
	return func(op *huma.Operation) {
		op.Summary = summary
	}
}

// WithDescription sets the operation description.
func WithDescription(desc string) OperationOption {
	return func(op *huma.Operation) {
		op.Description = desc
	}
}

// WithOperationID sets a custom operation ID.
func WithOperationID(id string) OperationOption {
	return func(op *huma.Operation) {
		op.OperationID = id
	}
}

// WithDefaultStatus sets the default HTTP status code for successful responses.
func WithDefaultStatus(status int) OperationOption {
	return func(op *huma.Operation) {
		op.DefaultStatus = status
	}
}

func register[I, O any](api huma.API, method, path string, protected bool, handler func(context.Context, *I) (*O, error), opts []OperationOption) {
	op := huma.Operation{Method: method, Path: path}
	if protected {
		op.Security = []map[string][]string{{SecurityScheme: {}}}
	}
	for _, opt := range opts {
		opt(&op)
	}
	huma.Register(api, op, handler)
}

// PublicGet registers a GET endpoint that needs no token.
func PublicGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodGet, path, false, handler, opts)
}

// HiddenGet registers a public GET endpoint left out of the OpenAPI
// document (health probes).
func HiddenGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error)) {
	register(api, http.MethodGet, path, false, handler, []OperationOption{func(op *huma.Operation) { op.Hidden = true }})
}

// ProtectedGet registers a GET endpoint that requires the admin token.
func ProtectedGet[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodGet, path, true, handler, opts)
}

// ProtectedPut registers a PUT endpoint that requires the admin token.
func ProtectedPut[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodPut, path, true, handler, opts)
}

// ProtectedDelete registers a DELETE endpoint that requires the admin token.
func ProtectedDelete[I, O any](api huma.API, path string, handler func(context.Context, *I) (*O, error), opts ...OperationOption) {
	register(api, http.MethodDelete, path, true, handler, opts)
}
