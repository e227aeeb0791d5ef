//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagebrowser/tabengine/tests/helpers/testutil"
)

// TestTabSurface walks the tab command surface end to end against the
// full stack: registry, tracker, budget, and storage behind the router.
func TestTabSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	var first, second map[string]interface{}

	t.Run("create activates the new tab", func(t *testing.T) {
		first = openTab(t, base, map[string]interface{}{
			"url":          "https://example.com/a",
			"workspace_id": "work",
		})
		assert.Equal(t, true, first["active"])
		assert.Equal(t, "work", first["workspace_id"])

		second = openTab(t, base, map[string]interface{}{
			"url":          "https://example.com/b",
			"workspace_id": "work",
		})
		assert.Equal(t, true, second["active"])

		var active map[string]interface{}
		testutil.GetJSON(t, base+"/tabs/active", http.StatusOK, &active)
		assert.Equal(t, second["id"], active["id"])
	})

	t.Run("list reports both tabs", func(t *testing.T) {
		var resp struct {
			Tabs  []map[string]interface{} `json:"tabs"`
			Stats struct {
				TotalTabs int `json:"total_tabs"`
			} `json:"stats"`
		}
		testutil.GetJSON(t, base+"/tabs", http.StatusOK, &resp)
		assert.Len(t, resp.Tabs, 2)
		assert.Equal(t, 2, resp.Stats.TotalTabs)
	})

	t.Run("get includes lifecycle state", func(t *testing.T) {
		var resp struct {
			Tab   map[string]interface{} `json:"tab"`
			State string                 `json:"state"`
		}
		testutil.GetJSON(t, base+"/tabs/"+second["id"].(string), http.StatusOK, &resp)
		assert.Equal(t, second["id"], resp.Tab["id"])
		assert.Equal(t, "active", resp.State)
	})

	t.Run("patch updates the title", func(t *testing.T) {
		id := first["id"].(string)
		status, data := testutil.DoJSON(t, http.MethodPatch, base+"/tabs/"+id,
			map[string]interface{}{"title": "Renamed"})
		require.Equal(t, http.StatusOK, status, string(data))

		var tab map[string]interface{}
		testutil.Decode(t, data, &tab)
		assert.Equal(t, "Renamed", tab["title"])
	})

	t.Run("navigate extends history", func(t *testing.T) {
		id := second["id"].(string)
		testutil.PostJSON(t, base+"/tabs/"+id+"/navigate",
			map[string]interface{}{"url": "https://example.com/b/next"},
			http.StatusOK, nil)

		var resp struct {
			Tab struct {
				URL          string   `json:"url"`
				History      []string `json:"history"`
				HistoryIndex int      `json:"history_index"`
			} `json:"tab"`
		}
		testutil.GetJSON(t, base+"/tabs/"+id, http.StatusOK, &resp)
		assert.Equal(t, "https://example.com/b/next", resp.Tab.URL)
		assert.Equal(t, []string{"https://example.com/b", "https://example.com/b/next"}, resp.Tab.History)
		assert.Equal(t, 1, resp.Tab.HistoryIndex)
	})

	t.Run("back and forward step history", func(t *testing.T) {
		id := second["id"].(string)

		var back struct {
			URL string `json:"url"`
		}
		testutil.PostJSON(t, base+"/tabs/"+id+"/back", nil, http.StatusOK, &back)
		assert.Equal(t, "https://example.com/b", back.URL)

		var fwd struct {
			URL string `json:"url"`
		}
		testutil.PostJSON(t, base+"/tabs/"+id+"/forward", nil, http.StatusOK, &fwd)
		assert.Equal(t, "https://example.com/b/next", fwd.URL)
	})

	t.Run("back past the start conflicts", func(t *testing.T) {
		id := first["id"].(string)
		status, _ := testutil.DoJSON(t, http.MethodPost, base+"/tabs/"+id+"/back", nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("activate hands focus back", func(t *testing.T) {
		id := first["id"].(string)
		var tab map[string]interface{}
		testutil.PostJSON(t, base+"/tabs/"+id+"/activate", nil, http.StatusOK, &tab)
		assert.Equal(t, true, tab["active"])

		var active map[string]interface{}
		testutil.GetJSON(t, base+"/tabs/active", http.StatusOK, &active)
		assert.Equal(t, id, active["id"])
	})

	t.Run("close and reopen round trip", func(t *testing.T) {
		id := second["id"].(string)
		testutil.DeleteJSON(t, base+"/tabs/"+id, http.StatusOK, nil)

		status, _ := testutil.DoJSON(t, http.MethodGet, base+"/tabs/"+id, nil)
		assert.Equal(t, http.StatusNotFound, status)

		var closed struct {
			Closed []struct {
				Tab map[string]interface{} `json:"tab"`
			} `json:"closed"`
		}
		testutil.GetJSON(t, base+"/tabs/recently-closed", http.StatusOK, &closed)
		require.Len(t, closed.Closed, 1)
		assert.Equal(t, id, closed.Closed[0].Tab["id"])

		var reopened map[string]interface{}
		testutil.PostJSON(t, base+"/tabs/reopen", nil, http.StatusOK, &reopened)
		assert.Equal(t, id, reopened["id"])
		assert.Equal(t, "https://example.com/b/next", reopened["url"])

		testutil.GetJSON(t, base+"/tabs/recently-closed", http.StatusOK, &closed)
		assert.Empty(t, closed.Closed)
	})

	t.Run("reopen with an empty stack is not found", func(t *testing.T) {
		status, _ := testutil.DoJSON(t, http.MethodPost, base+"/tabs/reopen", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("pinned tabs refuse close", func(t *testing.T) {
		pinned := openTab(t, base, map[string]interface{}{
			"url":          "https://example.com/pinned",
			"workspace_id": "work",
			"pinned":       true,
		})
		id := pinned["id"].(string)

		status, _ := testutil.DoJSON(t, http.MethodDelete, base+"/tabs/"+id, nil)
		assert.Equal(t, http.StatusConflict, status)

		// Unpin, then close goes through
		status, _ = testutil.DoJSON(t, http.MethodPatch, base+"/tabs/"+id,
			map[string]interface{}{"pinned": false})
		require.Equal(t, http.StatusOK, status)
		testutil.DeleteJSON(t, base+"/tabs/"+id, http.StatusOK, nil)
	})

	t.Run("unknown tab is not found", func(t *testing.T) {
		for _, probe := range []struct{ method, path string }{
			{http.MethodGet, "/tabs/missing"},
			{http.MethodDelete, "/tabs/missing"},
			{http.MethodPost, "/tabs/missing/activate"},
			{http.MethodPost, "/tabs/missing/suspend"},
			{http.MethodPost, "/tabs/missing/activity"},
		} {
			status, _ := testutil.DoJSON(t, probe.method, base+probe.path, nil)
			assert.Equal(t, http.StatusNotFound, status, "%s %s", probe.method, probe.path)
		}
	})
}

// TestTabLimit verifies the hard cap on open tabs.
func TestTabLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	cfg.Tabs.MaxTabs = 3
	base := startEngine(t, cfg)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		tab := openTab(t, base, map[string]interface{}{
			"url": fmt.Sprintf("https://example.com/%d", i),
		})
		ids = append(ids, tab["id"].(string))
	}

	status, _ := testutil.DoJSON(t, http.MethodPost, base+"/tabs",
		map[string]interface{}{"url": "https://example.com/over"})
	assert.Equal(t, http.StatusConflict, status)

	// Closing one frees a slot
	testutil.DeleteJSON(t, base+"/tabs/"+ids[0], http.StatusOK, nil)
	openTab(t, base, map[string]interface{}{"url": "https://example.com/refill"})
}

// TestGroupSurface covers group creation, membership, collapse, and
// group close with a pinned survivor.
func TestGroupSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	var group map[string]interface{}

	t.Run("create and list groups", func(t *testing.T) {
		testutil.PostJSON(t, base+"/groups",
			map[string]interface{}{"name": "Research", "color": "blue"},
			http.StatusCreated, &group)
		require.NotEmpty(t, group["id"])
		assert.Equal(t, "Research", group["name"])

		var resp struct {
			Groups []map[string]interface{} `json:"groups"`
		}
		testutil.GetJSON(t, base+"/groups", http.StatusOK, &resp)
		require.Len(t, resp.Groups, 1)
	})

	groupID := func() string { return group["id"].(string) }

	t.Run("assign tabs to the group", func(t *testing.T) {
		plain := openTab(t, base, map[string]interface{}{"url": "https://example.com/g1"})
		pinned := openTab(t, base, map[string]interface{}{"url": "https://example.com/g2", "pinned": true})

		for _, tab := range []map[string]interface{}{plain, pinned} {
			testutil.PostJSON(t, base+"/groups/"+groupID()+"/assign",
				map[string]interface{}{"tab_id": tab["id"]},
				http.StatusOK, nil)
		}

		var resp struct {
			Tab struct {
				GroupID string `json:"group_id"`
			} `json:"tab"`
		}
		testutil.GetJSON(t, base+"/tabs/"+plain["id"].(string), http.StatusOK, &resp)
		assert.Equal(t, groupID(), resp.Tab.GroupID)
	})

	t.Run("assign to a missing group is not found", func(t *testing.T) {
		tab := openTab(t, base, map[string]interface{}{"url": "https://example.com/g3"})
		status, _ := testutil.DoJSON(t, http.MethodPost, base+"/groups/missing/assign",
			map[string]interface{}{"tab_id": tab["id"]})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("collapse toggles", func(t *testing.T) {
		var resp struct {
			Collapsed bool `json:"collapsed"`
		}
		testutil.PostJSON(t, base+"/groups/"+groupID()+"/collapse",
			map[string]interface{}{"collapsed": true},
			http.StatusOK, &resp)
		assert.True(t, resp.Collapsed)
	})

	t.Run("group close spares pinned members", func(t *testing.T) {
		var resp struct {
			Closed int `json:"closed"`
		}
		testutil.DeleteJSON(t, base+"/groups/"+groupID(), http.StatusOK, &resp)
		assert.Equal(t, 1, resp.Closed)

		// The pinned member survives, ungrouped or not it is still open
		var list struct {
			Tabs []struct {
				Pinned bool `json:"pinned"`
			} `json:"tabs"`
		}
		testutil.GetJSON(t, base+"/tabs", http.StatusOK, &list)
		pinnedLeft := 0
		for _, tab := range list.Tabs {
			if tab.Pinned {
				pinnedLeft++
			}
		}
		assert.Equal(t, 1, pinnedLeft)
	})
}

// TestWorkspaceBudgets covers the budget read and override surface.
func TestWorkspaceBudgets(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	openTab(t, base, map[string]interface{}{
		"url":          "https://example.com/w",
		"workspace_id": "research",
	})

	t.Run("charged workspace shows usage", func(t *testing.T) {
		var usage struct {
			WorkspaceID string `json:"workspace_id"`
			UsedBytes   int64  `json:"used_bytes"`
			CapBytes    int64  `json:"cap_bytes"`
			Tabs        int    `json:"tabs"`
			Over        bool   `json:"over"`
		}
		testutil.GetJSON(t, base+"/workspaces/research/budget", http.StatusOK, &usage)
		assert.Equal(t, "research", usage.WorkspaceID)
		assert.Greater(t, usage.UsedBytes, int64(0))
		assert.Equal(t, 1, usage.Tabs)
		assert.False(t, usage.Over)
	})

	t.Run("tiny cap flips the workspace over budget", func(t *testing.T) {
		status, data := testutil.DoJSON(t, http.MethodPut, base+"/workspaces/research/budget",
			map[string]interface{}{"cap_bytes": 1})
		require.Equal(t, http.StatusOK, status, string(data))

		var usage struct {
			CapBytes int64 `json:"cap_bytes"`
			Over     bool  `json:"over"`
		}
		testutil.GetJSON(t, base+"/workspaces/research/budget", http.StatusOK, &usage)
		assert.Equal(t, int64(1), usage.CapBytes)
		assert.True(t, usage.Over)
	})

	t.Run("report lists the charged workspace", func(t *testing.T) {
		var resp struct {
			Workspaces []struct {
				WorkspaceID string `json:"workspace_id"`
			} `json:"workspaces"`
		}
		testutil.GetJSON(t, base+"/workspaces", http.StatusOK, &resp)
		found := false
		for _, ws := range resp.Workspaces {
			if ws.WorkspaceID == "research" {
				found = true
			}
		}
		assert.True(t, found, "research workspace missing from report")
	})
}

// TestSnapshotSurface covers explicit snapshot save, load, delete, and
// the garbage collection endpoint.
func TestSnapshotSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	tab := openTab(t, base, map[string]interface{}{"url": "https://example.com/doc"})
	id := tab["id"].(string)

	t.Run("save then load", func(t *testing.T) {
		var saved struct {
			TabID    string `json:"tab_id"`
			Revision string `json:"revision"`
			URL      string `json:"url"`
		}
		testutil.PostJSON(t, base+"/snapshots/"+id+"/save", nil, http.StatusOK, &saved)
		assert.Equal(t, id, saved.TabID)
		assert.NotEmpty(t, saved.Revision)
		assert.Equal(t, "https://example.com/doc", saved.URL)

		var loaded struct {
			Revision string `json:"revision"`
		}
		testutil.GetJSON(t, base+"/snapshots/"+id, http.StatusOK, &loaded)
		assert.Equal(t, saved.Revision, loaded.Revision)
	})

	t.Run("delete removes the snapshot", func(t *testing.T) {
		testutil.DeleteJSON(t, base+"/snapshots/"+id, http.StatusOK, nil)
		status, _ := testutil.DoJSON(t, http.MethodGet, base+"/snapshots/"+id, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("save for a missing tab is not found", func(t *testing.T) {
		status, _ := testutil.DoJSON(t, http.MethodPost, base+"/snapshots/missing/save", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("gc reports deletions", func(t *testing.T) {
		var resp struct {
			Success bool `json:"success"`
			Deleted int  `json:"deleted"`
		}
		testutil.PostJSON(t, base+"/snapshots/gc", nil, http.StatusOK, &resp)
		assert.True(t, resp.Success)
		assert.GreaterOrEqual(t, resp.Deleted, 0)
	})
}

// TestResurrectionSurface covers the closed-tab record list and the
// one-shot restore.
func TestResurrectionSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	tab := openTab(t, base, map[string]interface{}{
		"url":          "https://example.com/read-later",
		"workspace_id": "research",
	})
	id := tab["id"].(string)
	testutil.PostJSON(t, base+"/tabs/"+id+"/navigate",
		map[string]interface{}{"url": "https://example.com/read-later/part-2"},
		http.StatusOK, nil)
	testutil.DeleteJSON(t, base+"/tabs/"+id, http.StatusOK, nil)

	var recordID string

	t.Run("close leaves a record", func(t *testing.T) {
		var resp struct {
			Records []struct {
				ID    string `json:"id"`
				TabID string `json:"tab_id"`
				URL   string `json:"url"`
			} `json:"records"`
		}
		testutil.GetJSON(t, base+"/resurrection", http.StatusOK, &resp)
		require.Len(t, resp.Records, 1)
		assert.Equal(t, id, resp.Records[0].TabID)
		assert.Equal(t, "https://example.com/read-later/part-2", resp.Records[0].URL)
		recordID = resp.Records[0].ID
	})

	t.Run("restore brings the tab back active", func(t *testing.T) {
		var restored map[string]interface{}
		testutil.PostJSON(t, base+"/resurrection/"+recordID+"/restore", nil, http.StatusOK, &restored)
		assert.Equal(t, id, restored["id"])
		assert.Equal(t, "https://example.com/read-later/part-2", restored["url"])
		assert.Equal(t, true, restored["active"])
	})

	t.Run("records are one-shot", func(t *testing.T) {
		var resp struct {
			Records []struct{} `json:"records"`
		}
		testutil.GetJSON(t, base+"/resurrection", http.StatusOK, &resp)
		assert.Empty(t, resp.Records)

		// The tab is open again, so a stale record id is simply gone
		status, _ := testutil.DoJSON(t, http.MethodPost, base+"/resurrection/"+recordID+"/restore", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

// TestObservabilitySurface covers health, stats, and both metrics
// views.
func TestObservabilitySurface(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))
	openTab(t, base, map[string]interface{}{"url": "https://example.com/obs"})

	t.Run("root and health", func(t *testing.T) {
		var root struct {
			Status  string `json:"status"`
			Service string `json:"service"`
		}
		testutil.GetJSON(t, base+"/", http.StatusOK, &root)
		assert.Equal(t, "online", root.Status)

		var health struct {
			Status string `json:"status"`
			Tabs   struct {
				TotalTabs int `json:"total_tabs"`
			} `json:"tabs"`
			HostFocused bool `json:"host_focused"`
		}
		testutil.GetJSON(t, base+"/health", http.StatusOK, &health)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, 1, health.Tabs.TotalTabs)
		assert.True(t, health.HostFocused)
	})

	t.Run("stats aggregates engine counters", func(t *testing.T) {
		var stats struct {
			Tabs struct {
				TotalTabs int `json:"total_tabs"`
			} `json:"tabs"`
			States   map[string]int `json:"states"`
			Pressure struct {
				Smoothed float64 `json:"smoothed"`
			} `json:"pressure"`
		}
		testutil.GetJSON(t, base+"/stats", http.StatusOK, &stats)
		assert.Equal(t, 1, stats.Tabs.TotalTabs)
		assert.NotEmpty(t, stats.States)
	})

	t.Run("prometheus exposition", func(t *testing.T) {
		status, data := testutil.DoJSON(t, http.MethodGet, base+"/metrics", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(data), "tabengine_tabs_open")
	})

	t.Run("json metrics view", func(t *testing.T) {
		var resp struct {
			Engine  map[string]interface{} `json:"engine"`
			Summary struct {
				TotalRequests int64   `json:"total_requests"`
				UptimeSeconds float64 `json:"uptime_seconds"`
			} `json:"summary"`
		}
		testutil.GetJSON(t, base+"/metrics/json", http.StatusOK, &resp)
		assert.Equal(t, "operational", resp.Engine["status"])
		assert.GreaterOrEqual(t, resp.Summary.TotalRequests, int64(1))
		assert.Greater(t, resp.Summary.UptimeSeconds, 0.0)
	})

	t.Run("renderer log ingestion", func(t *testing.T) {
		var resp struct {
			Success         bool `json:"success"`
			EntriesReceived int  `json:"entries_received"`
		}
		testutil.PostJSON(t, base+"/logs/stream", map[string]interface{}{
			"source": "renderer",
			"entries": []map[string]interface{}{
				{"level": "info", "message": "renderer booted", "tab_id": "t1"},
				{"level": "error", "message": "paint stall", "tab_id": "t1"},
			},
		}, http.StatusOK, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, 2, resp.EntriesReceived)
	})
}
