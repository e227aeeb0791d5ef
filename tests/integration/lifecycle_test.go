//go:build integration
// +build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagebrowser/tabengine/tests/helpers/testutil"
)

// TestInactivityClock verifies the timed active, idle, suspended walk
// with the focused-tab exemption in play.
func TestInactivityClock(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	background := openTab(t, base, map[string]interface{}{
		"url":        "https://example.com/bg",
		"background": true,
	})
	foreground := openTab(t, base, map[string]interface{}{
		"url": "https://example.com/fg",
	})
	bgID := background["id"].(string)
	fgID := foreground["id"].(string)

	t.Run("background tab suspends on its own", func(t *testing.T) {
		waitForState(t, base, bgID, "suspended")

		// Suspension captured a snapshot for the resume path
		var snap struct {
			TabID string `json:"tab_id"`
		}
		testutil.GetJSON(t, base+"/snapshots/"+bgID, http.StatusOK, &snap)
		assert.Equal(t, bgID, snap.TabID)
	})

	t.Run("focused tab idles but stays live", func(t *testing.T) {
		waitForState(t, base, fgID, "idle")

		// Wait through two more suspend legs; the focused-tab
		// exemption keeps re-arming the clock
		time.Sleep(400 * time.Millisecond)
		assert.Equal(t, "idle", tabState(t, base, fgID))
	})

	t.Run("input wakes an idle tab", func(t *testing.T) {
		testutil.PostJSON(t, base+"/tabs/"+fgID+"/activity", nil, http.StatusOK, nil)
		assert.Contains(t, []string{"active", "idle"}, tabState(t, base, fgID))
	})

	t.Run("lifecycle view aggregates states", func(t *testing.T) {
		var resp struct {
			States      map[string]string `json:"states"`
			Counts      map[string]int    `json:"counts"`
			HostFocused bool              `json:"host_focused"`
		}
		testutil.GetJSON(t, base+"/lifecycle", http.StatusOK, &resp)
		assert.Len(t, resp.States, 2)
		assert.Equal(t, "suspended", resp.States[bgID])
		assert.True(t, resp.HostFocused)

		total := 0
		for _, n := range resp.Counts {
			total += n
		}
		assert.Equal(t, 2, total)
	})
}

// TestHostBlur verifies that losing host focus suspends every live
// tab, pinned and focused ones included, and that regaining focus
// leaves them parked until the user comes back.
func TestHostBlur(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	base := startEngine(t, testConfig(t))

	pinned := openTab(t, base, map[string]interface{}{
		"url":    "https://example.com/pinned",
		"pinned": true,
	})
	focused := openTab(t, base, map[string]interface{}{
		"url": "https://example.com/focused",
	})
	pinnedID := pinned["id"].(string)
	focusedID := focused["id"].(string)

	var resp struct {
		HostFocused bool `json:"host_focused"`
	}
	testutil.PostJSON(t, base+"/host/blur", nil, http.StatusOK, &resp)
	assert.False(t, resp.HostFocused)

	waitForState(t, base, pinnedID, "suspended")
	waitForState(t, base, focusedID, "suspended")

	testutil.PostJSON(t, base+"/host/focus", nil, http.StatusOK, &resp)
	assert.True(t, resp.HostFocused)

	// Focus alone does not wake anything
	assert.Equal(t, "suspended", tabState(t, base, pinnedID))
	assert.Equal(t, "suspended", tabState(t, base, focusedID))

	// Activation does
	var tab map[string]interface{}
	testutil.PostJSON(t, base+"/tabs/"+focusedID+"/activate", nil, http.StatusOK, &tab)
	assert.Equal(t, true, tab["active"])
	assert.Contains(t, []string{"active", "idle"}, tabState(t, base, focusedID))
}

// TestQuickRefocusCancelsBlur verifies that focus regained inside the
// blur delay leaves live tabs untouched.
func TestQuickRefocusCancelsBlur(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	cfg.Lifecycle.BlurSuspendDelay = 2 * time.Second
	base := startEngine(t, cfg)

	tab := openTab(t, base, map[string]interface{}{"url": "https://example.com/quick"})
	id := tab["id"].(string)

	testutil.PostJSON(t, base+"/host/blur", nil, http.StatusOK, nil)
	testutil.PostJSON(t, base+"/host/focus", nil, http.StatusOK, nil)

	// Past the original blur deadline the tab is still live
	time.Sleep(250 * time.Millisecond)
	assert.Contains(t, []string{"active", "idle"}, tabState(t, base, id))
}

// TestManualSuspendResume walks the explicit suspend and resume
// endpoints, snapshot included.
func TestManualSuspendResume(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	// Long clocks so only the manual path moves states
	cfg.Lifecycle.IdleThreshold = time.Hour
	cfg.Lifecycle.SuspendAfterIdle = time.Hour
	base := startEngine(t, cfg)

	parked := openTab(t, base, map[string]interface{}{
		"url":        "https://example.com/parked",
		"background": true,
	})
	openTab(t, base, map[string]interface{}{"url": "https://example.com/front"})
	id := parked["id"].(string)

	testutil.PostJSON(t, base+"/tabs/"+id+"/suspend", nil, http.StatusOK, nil)
	assert.Equal(t, "suspended", tabState(t, base, id))

	var snap struct {
		TabID string `json:"tab_id"`
		URL   string `json:"url"`
	}
	testutil.GetJSON(t, base+"/snapshots/"+id, http.StatusOK, &snap)
	assert.Equal(t, "https://example.com/parked", snap.URL)

	testutil.PostJSON(t, base+"/tabs/"+id+"/resume", nil, http.StatusOK, nil)
	assert.Equal(t, "active", tabState(t, base, id))

	t.Run("hibernate drops a suspended surface", func(t *testing.T) {
		testutil.PostJSON(t, base+"/tabs/"+id+"/suspend", nil, http.StatusOK, nil)
		testutil.PostJSON(t, base+"/tabs/"+id+"/hibernate", nil, http.StatusOK, nil)
		assert.Equal(t, "hibernated", tabState(t, base, id))

		// A hibernated tab still activates from its snapshot
		var tab map[string]interface{}
		testutil.PostJSON(t, base+"/tabs/"+id+"/activate", nil, http.StatusOK, &tab)
		assert.Equal(t, "active", tabState(t, base, id))
	})
}

// TestCrashHandling verifies crash accounting and that a crashed tab
// parks suspended instead of reload looping.
func TestCrashHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testConfig(t)
	cfg.Lifecycle.IdleThreshold = time.Hour
	cfg.Lifecycle.SuspendAfterIdle = time.Hour
	base := startEngine(t, cfg)

	tab := openTab(t, base, map[string]interface{}{"url": "https://example.com/crashy"})
	id := tab["id"].(string)

	for want := 1; want <= 3; want++ {
		var resp struct {
			CrashCount int `json:"crash_count"`
		}
		testutil.PostJSON(t, base+"/tabs/"+id+"/crash", nil, http.StatusOK, &resp)
		require.Equal(t, want, resp.CrashCount)
		assert.Equal(t, "suspended", tabState(t, base, id))

		if want < 3 {
			testutil.PostJSON(t, base+"/tabs/"+id+"/resume", nil, http.StatusOK, nil)
		}
	}

	// Past the crash limit activation still works at the registry
	// level; the renderer stays dark until the user navigates
	var reactivated map[string]interface{}
	testutil.PostJSON(t, base+"/tabs/"+id+"/activate", nil, http.StatusOK, &reactivated)
	assert.Equal(t, true, reactivated["active"])
	assert.Equal(t, "active", tabState(t, base, id))
}
