package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jmylchreest/hapd/internal/accessory"
	"github.com/jmylchreest/hapd/internal/dispatch"
	herrors "github.com/jmylchreest/hapd/internal/errors"
)

// Characteristics serves GET and PUT /characteristics.
type Characteristics struct{}

// Reentrant lets reads and writes from different connections overlap; the
// database and subscription table lock themselves.
func (Characteristics) Reentrant() bool { return true }

func (c Characteristics) Handle(ctx context.Context, req *dispatch.Request, h *dispatch.Handles) (*dispatch.Response, error) {
	switch req.Method {
	case http.MethodGet:
		return c.read(ctx, req, h)
	case http.MethodPut:
		return c.write(ctx, req, h)
	default:
		return nil, herrors.WithStatus(http.StatusMethodNotAllowed, fmt.Errorf("method %s", req.Method))
	}
}

func (Characteristics) read(ctx context.Context, req *dispatch.Request, h *dispatch.Handles) (*dispatch.Response, error) {
	var q url.Values
	if req.URI != nil {
		q = req.URI.Query()
	}
	ids, err := ParseCharacteristicIDs(q.Get("id"))
	if err != nil {
		return nil, herrors.WithStatus(http.StatusBadRequest, err)
	}

	results := h.Accessories.Read(ctx, accessory.ReadRequest{
		IDs:   ids,
		Meta:  queryFlag(q, "meta"),
		Perms: queryFlag(q, "perms"),
		Type:  queryFlag(q, "type"),
	})

	status := http.StatusOK
	for _, r := range results {
		if r.Status != herrors.HAPStatusSuccess {
			status = http.StatusMultiStatus
			break
		}
	}

	wantEv := queryFlag(q, "ev")
	controller, _ := h.ControllerID()
	for i := range results {
		r := &results[i]
		r.ReportStatus = status == http.StatusMultiStatus
		if wantEv && r.Status == herrors.HAPStatusSuccess {
			ev := h.Subscriptions.IsSubscribed(controller, r.AID, r.IID)
			r.Ev = &ev
		}
	}

	return dispatch.JSONResponse(status, map[string]any{"characteristics": results})
}

type writeBody struct {
	Characteristics []accessory.WriteRequest `json:"characteristics"`
}

func (Characteristics) write(ctx context.Context, req *dispatch.Request, h *dispatch.Handles) (*dispatch.Response, error) {
	var body writeBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, herrors.WithStatus(http.StatusBadRequest, herrors.InvalidInputf("characteristics body: %v", err))
	}
	if len(body.Characteristics) == 0 {
		return nil, herrors.WithStatus(http.StatusBadRequest, herrors.InvalidInputf("no characteristics to write"))
	}

	results := h.Accessories.Write(ctx, body.Characteristics)

	controller, verified := h.ControllerID()
	failed := false
	for i, w := range body.Characteristics {
		if results[i].Status == herrors.HAPStatusSuccess && w.Ev != nil {
			results[i].Status = subscribe(h, controller, verified, w.AID, w.IID, *w.Ev)
		}
		if results[i].Status != herrors.HAPStatusSuccess {
			failed = true
		}
	}

	if !failed {
		return dispatch.NoContent(), nil
	}
	return dispatch.JSONResponse(http.StatusMultiStatus, map[string]any{"characteristics": results})
}

// subscribe toggles event delivery for one characteristic and returns the
// HAP status of the operation.
func subscribe(h *dispatch.Handles, controller uuid.UUID, verified bool, aid, iid uint64, on bool) int {
	if !verified {
		return herrors.HAPStatusInsufficientPrivileges
	}
	c, ok := h.Accessories.Characteristic(aid, iid)
	if !ok {
		return herrors.HAPStatusResourceDoesNotExist
	}
	if !c.SupportsEvents() {
		return herrors.HAPStatusNotificationNotSupported
	}
	if on {
		h.Subscriptions.Subscribe(controller, aid, iid)
	} else {
		h.Subscriptions.Unsubscribe(controller, aid, iid)
	}
	return herrors.HAPStatusSuccess
}

// ParseCharacteristicIDs parses the "1.10,1.11" form of the id query
// parameter.
func ParseCharacteristicIDs(raw string) ([]accessory.CharacteristicID, error) {
	if raw == "" {
		return nil, herrors.InvalidInputf("missing id parameter")
	}
	parts := strings.Split(raw, ",")
	ids := make([]accessory.CharacteristicID, 0, len(parts))
	for _, p := range parts {
		aidStr, iidStr, ok := strings.Cut(strings.TrimSpace(p), ".")
		if !ok {
			return nil, herrors.InvalidInputf("characteristic id %q", p)
		}
		aid, err1 := strconv.ParseUint(aidStr, 10, 64)
		iid, err2 := strconv.ParseUint(iidStr, 10, 64)
		if err := errors.Join(err1, err2); err != nil {
			return nil, herrors.InvalidInputf("characteristic id %q: %v", p, err)
		}
		ids = append(ids, accessory.CharacteristicID{AID: aid, IID: iid})
	}
	return ids, nil
}

func queryFlag(q url.Values, name string) bool {
	switch q.Get(name) {
	case "1", "true":
		return true
	}
	return false
}
