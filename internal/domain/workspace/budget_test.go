package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vantagebrowser/tabengine/internal/events"
	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

const testCap = 100 << 20

func newBudget() *Budget {
	return New(testCap, nil, logging.NewNop())
}

func TestChargeAndUsed(t *testing.T) {
	b := newBudget()

	b.Charge("ws-1", "tab-1", 10<<20)
	b.Charge("ws-1", "tab-2", 20<<20)
	b.Charge("ws-2", "tab-3", 5<<20)

	if got := b.Used("ws-1"); got != 30<<20 {
		t.Errorf("Expected 30MiB used, got %d", got)
	}
	if got := b.Used("ws-2"); got != 5<<20 {
		t.Errorf("Expected 5MiB used, got %d", got)
	}
	if got := b.Used("ws-3"); got != 0 {
		t.Errorf("Expected zero usage for unknown workspace, got %d", got)
	}
}

func TestChargeReplacesPriorEstimate(t *testing.T) {
	b := newBudget()

	b.Charge("ws-1", "tab-1", 40<<20)
	b.Charge("ws-1", "tab-1", 1<<20)

	if got := b.Used("ws-1"); got != 1<<20 {
		t.Errorf("Expected recharge to replace the estimate, got %d", got)
	}
}

func TestDischarge(t *testing.T) {
	b := newBudget()

	b.Charge("ws-1", "tab-1", 10<<20)
	b.Charge("ws-1", "tab-2", 20<<20)
	b.Discharge("ws-1", "tab-1")

	if got := b.Used("ws-1"); got != 20<<20 {
		t.Errorf("Expected 20MiB after discharge, got %d", got)
	}

	b.Discharge("ws-1", "tab-2")
	if got := b.Used("ws-1"); got != 0 {
		t.Errorf("Expected empty workspace after last discharge, got %d", got)
	}
	if over := b.OverWorkspaces(); len(over) != 0 {
		t.Errorf("Expected drained workspace to drop out, got %v", over)
	}
}

func TestOverBoundary(t *testing.T) {
	b := newBudget()

	b.Charge("ws-1", "tab-1", testCap)
	if b.Over("ws-1") {
		t.Error("Exactly at cap should not count as over")
	}

	b.Charge("ws-1", "tab-2", 1)
	if !b.Over("ws-1") {
		t.Error("Expected one byte past the cap to count as over")
	}
}

func TestCapOverride(t *testing.T) {
	b := newBudget()

	if got := b.Cap("ws-1"); got != testCap {
		t.Errorf("Expected default cap, got %d", got)
	}

	b.SetCap("ws-1", 10<<20)
	if got := b.Cap("ws-1"); got != 10<<20 {
		t.Errorf("Expected override cap, got %d", got)
	}

	b.Charge("ws-1", "tab-1", 11<<20)
	if !b.Over("ws-1") {
		t.Error("Expected override cap to govern over check")
	}
}

func TestBudgetEventOncePerCrossing(t *testing.T) {
	bus := events.New(logging.NewNop())
	defer bus.Close()
	ch, cancel := bus.Subscribe(events.KindBudget)
	defer cancel()

	b := New(testCap, bus, logging.NewNop())

	b.Charge("ws-1", "tab-1", testCap+1)

	select {
	case e := <-ch:
		if e.WorkspaceID != "ws-1" {
			t.Errorf("Expected event for ws-1, got %s", e.WorkspaceID)
		}
		if e.Ratio <= 1.0 {
			t.Errorf("Expected ratio above 1, got %g", e.Ratio)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a budget event on crossing")
	}

	// Already over: further charges stay silent.
	b.Charge("ws-1", "tab-2", 5<<20)
	select {
	case <-ch:
		t.Error("Expected no second event while still over")
	default:
	}

	// Dropping below and crossing again fires again.
	b.Discharge("ws-1", "tab-1")
	b.Discharge("ws-1", "tab-2")
	b.Charge("ws-1", "tab-1", testCap+1)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected a fresh event on the second crossing")
	}
}

func TestOverWorkspaces(t *testing.T) {
	b := newBudget()

	b.Charge("ws-ok", "tab-1", 1<<20)
	b.Charge("ws-over", "tab-2", testCap+1)

	over := b.OverWorkspaces()
	if len(over) != 1 || over[0] != "ws-over" {
		t.Errorf("Expected only ws-over, got %v", over)
	}
}

func TestReport(t *testing.T) {
	b := newBudget()

	b.Charge("ws-1", "tab-1", 50<<20)
	b.Charge("ws-1", "tab-2", 75<<20)

	report := b.Report()
	if len(report) != 1 {
		t.Fatalf("Expected one workspace in report, got %d", len(report))
	}
	u := report[0]
	if u.WorkspaceID != "ws-1" || u.Tabs != 2 {
		t.Errorf("Expected ws-1 with 2 tabs, got %+v", u)
	}
	if u.UsedBytes != 125<<20 || u.CapBytes != testCap {
		t.Errorf("Expected 125MiB/100MiB, got %d/%d", u.UsedBytes, u.CapBytes)
	}
	if !u.Over || u.Ratio != 1.25 {
		t.Errorf("Expected over at ratio 1.25, got over=%v ratio=%g", u.Over, u.Ratio)
	}
}

func TestEstimateTab(t *testing.T) {
	if got := EstimateTab(types.StateActive); got != WeightLive {
		t.Errorf("Expected live weight for active, got %d", got)
	}
	if got := EstimateTab(types.StateIdle); got != WeightLive {
		t.Errorf("Expected live weight for idle, got %d", got)
	}
	if got := EstimateTab(types.StateSuspended); got != WeightSuspended {
		t.Errorf("Expected suspended weight, got %d", got)
	}
	if got := EstimateTab(types.StateHibernated); got != 0 {
		t.Errorf("Expected zero weight for hibernated, got %d", got)
	}
}

func TestLoadCapsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caps.yaml")
	content := "workspaces:\n  research: 512MiB\n  media: 1GiB\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	caps, err := LoadCaps(path)
	if err != nil {
		t.Fatalf("LoadCaps failed: %v", err)
	}
	if caps["research"] != 512<<20 {
		t.Errorf("Expected 512MiB for research, got %d", caps["research"])
	}
	if caps["media"] != 1<<30 {
		t.Errorf("Expected 1GiB for media, got %d", caps["media"])
	}
}

func TestLoadCapsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caps.toml")
	content := "[workspaces]\nresearch = \"256MiB\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	caps, err := LoadCaps(path)
	if err != nil {
		t.Fatalf("LoadCaps failed: %v", err)
	}
	if caps["research"] != 256<<20 {
		t.Errorf("Expected 256MiB for research, got %d", caps["research"])
	}
}

func TestLoadCapsErrors(t *testing.T) {
	if caps, err := LoadCaps(""); caps != nil || err != nil {
		t.Errorf("Expected empty path to be a no-op, got %v, %v", caps, err)
	}

	if _, err := LoadCaps(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	iniPath := filepath.Join(t.TempDir(), "caps.ini")
	if err := os.WriteFile(iniPath, []byte("research=1"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadCaps(iniPath); err == nil {
		t.Error("Expected error for unsupported extension")
	}

	badPath := filepath.Join(t.TempDir(), "caps.yaml")
	if err := os.WriteFile(badPath, []byte("workspaces:\n  research: lots\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadCaps(badPath); err == nil {
		t.Error("Expected error for unparseable size")
	}
}

func TestApplyCaps(t *testing.T) {
	b := newBudget()

	b.ApplyCaps(map[string]int64{"ws-1": 64 << 20, "ws-2": 128 << 20})

	if got := b.Cap("ws-1"); got != 64<<20 {
		t.Errorf("Expected applied cap for ws-1, got %d", got)
	}
	if got := b.Cap("ws-2"); got != 128<<20 {
		t.Errorf("Expected applied cap for ws-2, got %d", got)
	}
	if got := b.Cap("ws-3"); got != testCap {
		t.Errorf("Expected default for unlisted workspace, got %d", got)
	}
}
