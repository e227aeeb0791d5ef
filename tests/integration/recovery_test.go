//go:build integration
// +build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/server"
	"github.com/vantagebrowser/tabengine/tests/helpers/testutil"
)

// TestRestartRecovery builds a session, shuts the stack down, boots a
// fresh one on the same storage, and verifies the session comes back:
// previously active tab live, everything else parked suspended, and
// the resurrection list intact. Runs once per storage backend.
func TestRestartRecovery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, backend := range []string{"file", "sqlite"} {
		backend := backend
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Storage.Backend = backend
			// Long clocks so recovery state holds still for assertions
			cfg.Lifecycle.IdleThreshold = time.Hour
			cfg.Lifecycle.SuspendAfterIdle = time.Hour

			// First life: build a session
			srv1, err := server.NewServer(cfg)
			require.NoError(t, err)
			ts1 := httptest.NewServer(srv1.Handler())
			base := ts1.URL

			pinned := openTab(t, base, map[string]interface{}{
				"url":          "https://example.com/pinned",
				"workspace_id": "work",
				"pinned":       true,
			})
			doc := openTab(t, base, map[string]interface{}{
				"url":          "https://example.com/doc",
				"workspace_id": "work",
			})
			note := openTab(t, base, map[string]interface{}{
				"url":          "https://example.com/note",
				"workspace_id": "notes",
				"background":   true,
			})
			docID := doc["id"].(string)
			testutil.PostJSON(t, base+"/tabs/"+docID+"/navigate",
				map[string]interface{}{"url": "https://example.com/doc/part-2"},
				http.StatusOK, nil)

			// One closed tab so the resurrection list has content
			gone := openTab(t, base, map[string]interface{}{
				"url":          "https://example.com/gone",
				"workspace_id": "work",
			})
			testutil.DeleteJSON(t, base+"/tabs/"+gone["id"].(string), http.StatusOK, nil)

			// Focus back on the doc, then shut down cleanly
			testutil.PostJSON(t, base+"/tabs/"+docID+"/activate", nil, http.StatusOK, nil)
			ts1.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			require.NoError(t, srv1.Close(ctx))
			cancel()

			// Second life: same storage, fresh stack
			base2 := startEngine(t, cfg)

			var list struct {
				Tabs []struct {
					ID     string `json:"id"`
					URL    string `json:"url"`
					Pinned bool   `json:"pinned"`
				} `json:"tabs"`
			}
			testutil.GetJSON(t, base2+"/tabs", http.StatusOK, &list)
			require.Len(t, list.Tabs, 3)

			urls := make(map[string]string, len(list.Tabs))
			for _, tab := range list.Tabs {
				urls[tab.ID] = tab.URL
			}
			assert.Equal(t, "https://example.com/doc/part-2", urls[docID])
			assert.Equal(t, "https://example.com/pinned", urls[pinned["id"].(string)])
			assert.Equal(t, "https://example.com/note", urls[note["id"].(string)])

			t.Run("active tab comes back live", func(t *testing.T) {
				var active struct {
					ID string `json:"id"`
				}
				testutil.GetJSON(t, base2+"/tabs/active", http.StatusOK, &active)
				assert.Equal(t, docID, active.ID)
				assert.Equal(t, "active", tabState(t, base2, docID))
			})

			t.Run("everything else parks suspended", func(t *testing.T) {
				assert.Equal(t, "suspended", tabState(t, base2, pinned["id"].(string)))
				assert.Equal(t, "suspended", tabState(t, base2, note["id"].(string)))
			})

			t.Run("resurrection list survives the restart", func(t *testing.T) {
				var resp struct {
					Records []struct {
						TabID string `json:"tab_id"`
						URL   string `json:"url"`
					} `json:"records"`
				}
				testutil.GetJSON(t, base2+"/resurrection", http.StatusOK, &resp)
				require.Len(t, resp.Records, 1)
				assert.Equal(t, gone["id"].(string), resp.Records[0].TabID)
				assert.Equal(t, "https://example.com/gone", resp.Records[0].URL)
			})

			t.Run("stats reports the recovery", func(t *testing.T) {
				var stats struct {
					LastRecovered *time.Time `json:"last_recovered"`
				}
				testutil.GetJSON(t, base2+"/stats", http.StatusOK, &stats)
				require.NotNil(t, stats.LastRecovered)
				assert.WithinDuration(t, time.Now(), *stats.LastRecovered, time.Minute)
			})
		})
	}
}

// TestGroupsSurviveRestart verifies group membership rides along with
// the session snapshot.
func TestGroupsSurviveRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)

	srv1, err := server.NewServer(cfg)
	require.NoError(t, err)
	ts1 := httptest.NewServer(srv1.Handler())
	base := ts1.URL

	var group map[string]interface{}
	testutil.PostJSON(t, base+"/groups",
		map[string]interface{}{"name": "Papers", "color": "green"},
		http.StatusCreated, &group)
	groupID := group["id"].(string)

	tab := openTab(t, base, map[string]interface{}{"url": "https://example.com/paper"})
	testutil.PostJSON(t, base+"/groups/"+groupID+"/assign",
		map[string]interface{}{"tab_id": tab["id"]},
		http.StatusOK, nil)

	ts1.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	require.NoError(t, srv1.Close(ctx))
	cancel()

	base2 := startEngine(t, cfg)

	var groups struct {
		Groups []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"groups"`
	}
	testutil.GetJSON(t, base2+"/groups", http.StatusOK, &groups)
	require.Len(t, groups.Groups, 1)
	assert.Equal(t, "Papers", groups.Groups[0].Name)

	var resp struct {
		Tab struct {
			GroupID string `json:"group_id"`
		} `json:"tab"`
	}
	testutil.GetJSON(t, base2+"/tabs/"+tab["id"].(string), http.StatusOK, &resp)
	assert.Equal(t, groupID, resp.Tab.GroupID)
}
