package client

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestServer creates a test HTTP server with the given handler map.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *HTTPClient) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewHTTP(testLogger(), server.URL+"/", "test-api-key")
	return server, client
}

func jsonHandler(statusCode int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func TestHTTPClient_SendsAPIKey(t *testing.T) {
	var got string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/version": func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("X-API-Key")
			jsonHandler(200, map[string]any{"version": "1.2.3"})(w, r)
		},
	})

	v, err := client.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "test-api-key", got)
}

func TestHTTPClient_GetStatus(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/status": jsonHandler(200, map[string]any{
			"name": "Bridge", "paired": true, "pairings": 2, "sessions": 1, "uptime": "1m0s",
		}),
	})

	st, err := client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "Bridge", st.Name)
	assert.True(t, st.Paired)
	assert.Equal(t, 2, st.Pairings)
	assert.Equal(t, "1m0s", st.Uptime)
}

func TestHTTPClient_GetAccessories(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/accessories": jsonHandler(200, []map[string]any{
			{"aid": 1, "name": "Bridge", "services": []map[string]any{
				{"iid": 1, "type": "3E", "characteristics": []map[string]any{
					{"iid": 5, "type": "23", "format": "string", "perms": []string{"pr"}, "value": "Bridge"},
				}},
			}},
		}),
		"GET /api/v1/accessories/1": jsonHandler(200, map[string]any{"aid": 1, "name": "Bridge"}),
	})

	all, err := client.GetAccessories()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, uint64(1), all[0].AID)
	assert.Equal(t, "Bridge", all[0].Services[0].Characteristics[0].Value)

	one, err := client.GetAccessory(1)
	require.NoError(t, err)
	assert.Equal(t, "Bridge", one.Name)
}

func TestHTTPClient_GetAccessories_Empty(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/accessories": jsonHandler(200, nil),
	})

	all, err := client.GetAccessories()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestHTTPClient_SetCharacteristic(t *testing.T) {
	var body map[string]any
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /api/v1/accessories/2/characteristics/9": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_ = json.NewDecoder(r.Body).Decode(&body)
			jsonHandler(200, map[string]any{"status": "ok"})(w, r)
		},
	})

	require.NoError(t, client.SetCharacteristic(2, 9, true))
	assert.Equal(t, map[string]any{"value": true}, body)
}

func TestHTTPClient_Pairings(t *testing.T) {
	var deleted string
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/pairings": jsonHandler(200, []map[string]any{
			{"id": "A1B2", "public_key": "00ff", "admin": true},
		}),
		"DELETE /api/v1/pairings/{id}": func(w http.ResponseWriter, r *http.Request) {
			deleted = r.PathValue("id")
			w.WriteHeader(http.StatusNoContent)
		},
	})

	list, err := client.GetPairings()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Pairing{ID: "A1B2", PublicKey: "00ff", Admin: true}, list[0])

	require.NoError(t, client.RemovePairing("A1B2"))
	assert.Equal(t, "A1B2", deleted)
}

func TestHTTPClient_LogLevel(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/logging/level": jsonHandler(200, map[string]any{"level": "info"}),
		"PUT /api/v1/logging/level": func(w http.ResponseWriter, r *http.Request) {
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			jsonHandler(200, map[string]any{"level": in["level"]})(w, r)
		},
	})

	level, err := client.GetLogLevel()
	require.NoError(t, err)
	assert.Equal(t, "info", level)

	level, err = client.SetLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestHTTPClient_ErrorUsesProblemDetail(t *testing.T) {
	_, client := newTestServer(t, map[string]http.HandlerFunc{
		"DELETE /api/v1/pairings/{id}": jsonHandler(404, map[string]any{
			"title": "Not Found", "status": 404, "detail": "pairing not found",
		}),
		"GET /api/v1/status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Unauthorized: API token required", http.StatusUnauthorized)
		},
	})

	err := client.RemovePairing("x")
	require.Error(t, err)
	assert.Equal(t, "HTTP error 404: pairing not found", err.Error())

	_, err = client.GetStatus()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "API token required")
}

func TestHTTPClient_Unreachable(t *testing.T) {
	client := NewHTTP(nil, "http://127.0.0.1:1", "")
	_, err := client.GetVersion()
	assert.Error(t, err)
}
