package surface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackLifecycle(t *testing.T) {
	ctx := context.Background()
	lb := NewLoopback()
	lb.Open("tab-1", "https://example.com")

	cap, err := lb.Probe(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, CapabilityPresent, cap)

	require.NoError(t, lb.Suspend(ctx, "tab-1"))
	assert.True(t, lb.Suspended("tab-1"))

	require.NoError(t, lb.Discard(ctx, "tab-1"))
	assert.True(t, lb.Discarded("tab-1"))

	_, err = lb.Describe(ctx, "tab-1")
	assert.ErrorIs(t, err, ErrNoSurface)

	require.NoError(t, lb.Resume(ctx, "tab-1", "https://example.com/again"))
	state, err := lb.Describe(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/again", state.URL)
	assert.False(t, lb.Suspended("tab-1"))
}

func TestLoopbackUnknownTab(t *testing.T) {
	ctx := context.Background()
	lb := NewLoopback()

	cap, err := lb.Probe(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNoSurface)
	assert.Equal(t, CapabilityUnknown, cap)

	assert.ErrorIs(t, lb.Suspend(ctx, "ghost"), ErrNoSurface)
	_, _, err = lb.RestoreScroll(ctx, "ghost", 0, 10)
	assert.ErrorIs(t, err, ErrNoSurface)
}

func TestLoopbackScrollSlip(t *testing.T) {
	ctx := context.Background()
	lb := NewLoopback()
	lb.Open("tab-1", "https://example.com")
	lb.SetSlip("tab-1", 0, 40, 2)

	_, y, err := lb.RestoreScroll(ctx, "tab-1", 0, 400)
	require.NoError(t, err)
	assert.Equal(t, 360.0, y)

	_, y, err = lb.RestoreScroll(ctx, "tab-1", 0, 400)
	require.NoError(t, err)
	assert.Equal(t, 360.0, y)

	_, y, err = lb.RestoreScroll(ctx, "tab-1", 0, 400)
	require.NoError(t, err)
	assert.Equal(t, 400.0, y)
}

func TestLoopbackDenyScroll(t *testing.T) {
	lb := NewLoopback()
	lb.Open("tab-1", "https://example.com")
	lb.DenyScroll("tab-1")

	cap, err := lb.Probe(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.Equal(t, CapabilityAbsent, cap)
}

func newRendererStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tabs/tab-1/capabilities", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"scroll_restore": true})
	})
	mux.HandleFunc("GET /tabs/tab-1/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PageState{URL: "https://example.com", Title: "Example", ScrollY: 120})
	})
	mux.HandleFunc("POST /tabs/tab-1/suspend", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /tabs/tab-1/scroll", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(map[string]float64{"x": body["x"], "y": body["y"]})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestClientAgainstStub(t *testing.T) {
	srv := newRendererStub(t)
	defer srv.Close()

	ctx := context.Background()
	client := NewClient(DefaultClientConfig(srv.URL))

	cap, err := client.Probe(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, CapabilityPresent, cap)

	state, err := client.Describe(ctx, "tab-1")
	require.NoError(t, err)
	assert.Equal(t, "Example", state.Title)
	assert.Equal(t, 120.0, state.ScrollY)

	require.NoError(t, client.Suspend(ctx, "tab-1"))

	x, y, err := client.RestoreScroll(ctx, "tab-1", 15, 300)
	require.NoError(t, err)
	assert.Equal(t, 15.0, x)
	assert.Equal(t, 300.0, y)
}

func TestClientMissingTab(t *testing.T) {
	srv := newRendererStub(t)
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL))
	err := client.Suspend(context.Background(), "tab-2")
	assert.ErrorIs(t, err, ErrNoSurface)
}
