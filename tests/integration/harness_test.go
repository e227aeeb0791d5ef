//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/config"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/server"
	"github.com/vantagebrowser/tabengine/tests/helpers/testutil"
)

// testConfig returns a config tuned for fast runs: storage in a temp
// dir, quiet logs, background loops parked on long intervals, and
// lifecycle clocks short enough to observe transitions.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = t.TempDir()
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	cfg.Lifecycle.IdleThreshold = 150 * time.Millisecond
	cfg.Lifecycle.SuspendAfterIdle = 150 * time.Millisecond
	cfg.Lifecycle.BlurSuspendDelay = 100 * time.Millisecond
	cfg.Snapshot.AutosaveInterval = time.Hour
	cfg.Snapshot.GCInterval = time.Hour
	cfg.Eviction.Interval = time.Hour
	return cfg
}

// startEngine boots the full stack and serves it over httptest.
// Shutdown runs as cleanup in reverse order: listener first, then the
// engine so the final autosave lands.
func startEngine(t *testing.T, cfg *config.Config) string {
	t.Helper()

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Close(ctx); err != nil {
			t.Logf("server close: %v", err)
		}
	})
	return ts.URL
}

// openTab creates a tab through the API and returns the decoded body.
func openTab(t *testing.T, base string, req map[string]interface{}) map[string]interface{} {
	t.Helper()
	var tab map[string]interface{}
	testutil.PostJSON(t, base+"/tabs", req, http.StatusCreated, &tab)
	require.NotEmpty(t, tab["id"])
	return tab
}

// tabState reads one tab's lifecycle state through the API.
func tabState(t *testing.T, base, id string) string {
	t.Helper()
	var resp struct {
		State string `json:"state"`
	}
	testutil.GetJSON(t, base+"/tabs/"+id, http.StatusOK, &resp)
	return resp.State
}

// waitForState polls until the tab reaches the wanted state. The
// condition runs on Eventually's goroutine, so it must not assert.
func waitForState(t *testing.T, base, id, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/tabs/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var body struct {
			State string `json:"state"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return body.State == want
	}, 5*time.Second, 25*time.Millisecond, "tab %s never reached %s", id, want)
}
