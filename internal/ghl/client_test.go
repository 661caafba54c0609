package ghl

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botpilote/ghlbridge/internal/apperr"
)

const jwtCred = "aaa.bbb.ccc"

// newTestClient points both API hosts at the given handler.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithHTTPClient(server.Client(), Options{
		BaseURL:       server.URL,
		LegacyBaseURL: server.URL,
	}, slog.New(slog.DiscardHandler))
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchCustomValuesFirstShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/loc_1/customValues", r.URL.Path)
		assert.Equal(t, "Bearer "+jwtCred, r.Header.Get("Authorization"))
		assert.Equal(t, DefaultVersion, r.Header.Get("Version"))
		writeBody(w, map[string]any{"customValues": []map[string]any{
			{"key": "openai_key", "name": "OpenAI Key", "value": "sk-abc"},
		}})
	}))

	records, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, CustomValueRecord{Key: "openai_key", Name: "OpenAI Key", Value: "sk-abc"}, records[0])
}

func TestFetchCustomValuesFallsBackOn404(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/locations/loc_1/customValues":
			http.Error(w, "no such route", http.StatusNotFound)
		case "/locations/loc_1/custom-values":
			writeBody(w, map[string]any{"custom_values": []map[string]any{
				{"key": "welcome_message", "value": "Hello!"},
			}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	records, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "welcome_message", records[0].Key)
}

func TestFetchCustomValuesShapeMismatchFallsThrough(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/locations/loc_1/customValues":
			// Parses as JSON but carries no recognizable collection.
			writeBody(w, map[string]any{"message": "try elsewhere"})
		case "/locations/loc_1/custom-values":
			writeBody(w, map[string]any{"results": []map[string]any{{"key": "k1"}}})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	records, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "k1", records[0].Key)
}

func TestFetchCustomValuesAbortsOn401(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))

	_, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamAuth)
	assert.Equal(t, 1, calls, "401 must not trigger further endpoint shapes")

	var ue *apperr.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Contains(t, ue.Body, "bad token")
}

func TestFetchCustomValuesAllShapesFail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	_, err := c.FetchCustomValues(context.Background(), LocationScope("loc_x"), jwtCred)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamNotFound)
}

func TestFetchCustomValuesDropsKeylessRows(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, map[string]any{"customValues": []map[string]any{
			{"name": "orphan", "value": "x"},
			{"key": "", "value": "y"},
			{"key": "kept", "value": "z"},
		}})
	}))

	records, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Key)
}

func TestFetchCustomValuesRetriesTransient(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		writeBody(w, map[string]any{"customValues": []map[string]any{{"key": "k"}}})
	}))
	c.maxRetries = 2

	records, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), jwtCred)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, calls)
}

func TestLegacyCredentialSentRaw(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "raw-legacy-key", r.Header.Get("Authorization"))
		writeBody(w, map[string]any{"customValues": []map[string]any{{"key": "k"}}})
	}))

	_, err := c.FetchCustomValues(context.Background(), LocationScope("loc_1"), "raw-legacy-key")
	require.NoError(t, err)
}

func TestDiscoverLocations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/comp_1/locations/", r.URL.Path)
		writeBody(w, map[string]any{"locations": []map[string]any{
			{"id": "loc_a", "name": "Main"},
			{"id": "loc_b", "name": "Annex"},
		}})
	}))

	locs, err := c.DiscoverLocations(context.Background(), "comp_1", jwtCred)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "loc_a", locs[0].ID)
}

func TestDiscoverLocationsEmptyListFallsThrough(t *testing.T) {
	paths := []string{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch len(paths) {
		case 1:
			writeBody(w, map[string]any{"locations": []map[string]any{}})
		case 2:
			writeBody(w, map[string]any{"data": []map[string]any{{"id": "loc_z"}}})
		default:
			t.Fatalf("unexpected extra call %v", paths)
		}
	}))

	locs, err := c.DiscoverLocations(context.Background(), "comp_1", jwtCred)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "loc_z", locs[0].ID)
}

func TestExtractRecordsEnvelopePreference(t *testing.T) {
	// When several known keys are present, the canonical one wins.
	body := []byte(`{"data":[{"key":"from_data"}],"customValues":[{"key":"from_camel"}]}`)
	records, err := extractRecords(body)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "from_camel", records[0].Key)
}
