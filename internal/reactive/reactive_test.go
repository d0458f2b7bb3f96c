package reactive

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/regfold/regfold/internal/discovery"
	"github.com/regfold/regfold/internal/event"
	"github.com/regfold/regfold/internal/registry"
)

func writeUnit(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func markerHandler(calls *[]string, name string) event.Handler {
	return func(ctx context.Context, evt event.Event) error {
		*calls = append(*calls, name)
		return nil
	}
}

func TestRunMergesExportsPerGroup(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/sync.function.yaml", "exports:\n  nightly: billing.nightly\n  hourly: billing.hourly\n")
	writeUnit(t, tmp, "users/cleanup.function.yaml", "exports:\n  purge: users.purge\n")

	var calls []string
	reg := registry.New()
	for _, key := range []string{"billing.nightly", "billing.hourly", "users.purge"} {
		if err := reg.RegisterFunction(key, markerHandler(&calls, key)); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}

	units, err := discovery.Find(tmp, discovery.FunctionSuffix, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	groups, err := (&Pass{Registry: reg}).Run(units)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", groups)
	}
	if len(groups["billing"]) != 2 {
		t.Fatalf("expected 2 billing exports, got %d", len(groups["billing"]))
	}
	if err := groups["users"]["purge"](context.Background(), event.New("test")); err != nil {
		t.Fatalf("invoke purge: %v", err)
	}
	if len(calls) != 1 || calls[0] != "users.purge" {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestRunSelectorFiltersByLogicalName(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/foo.function.yaml", "exports:\n  run: billing.foo\n")
	writeUnit(t, tmp, "billing/bar.function.yaml", "exports:\n  other: billing.bar\n")
	writeUnit(t, tmp, "users/foo.function.yaml", "exports:\n  run: users.foo\n")

	var calls []string
	reg := registry.New()
	for _, key := range []string{"billing.foo", "billing.bar", "users.foo"} {
		if err := reg.RegisterFunction(key, markerHandler(&calls, key)); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}
	t.Setenv(SelectorEnv, "foo")

	units, err := discovery.Find(tmp, discovery.FunctionSuffix, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	groups, err := (&Pass{Registry: reg}).Run(units)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(groups["billing"]) != 1 {
		t.Fatalf("expected only foo exports in billing, got %v", groups["billing"])
	}
	if _, ok := groups["billing"]["other"]; ok {
		t.Fatalf("bar should have been skipped")
	}
	if len(groups["users"]) != 1 {
		t.Fatalf("expected foo exports in users regardless of group, got %v", groups["users"])
	}
}

func TestRunLastWriterWinsOnCollision(t *testing.T) {
	tmp := t.TempDir()
	// Sorted path order: alpha before omega, so omega's export wins.
	writeUnit(t, tmp, "billing/alpha.function.yaml", "exports:\n  run: billing.first\n")
	writeUnit(t, tmp, "billing/omega.function.yaml", "exports:\n  run: billing.second\n")

	var calls []string
	reg := registry.New()
	if err := reg.RegisterFunction("billing.first", markerHandler(&calls, "first")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterFunction("billing.second", markerHandler(&calls, "second")); err != nil {
		t.Fatalf("register: %v", err)
	}

	var buf bytes.Buffer
	units, err := discovery.Find(tmp, discovery.FunctionSuffix, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	groups, err := (&Pass{Registry: reg, Logger: log.New(&buf, "", 0)}).Run(units)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := groups["billing"]["run"](context.Background(), event.New("test")); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(calls) != 1 || calls[0] != "second" {
		t.Fatalf("expected last writer to win, calls %v", calls)
	}
	if !strings.Contains(buf.String(), "overwrites") {
		t.Fatalf("expected overwrite warning, log: %s", buf.String())
	}
}

func TestRunMissingRegistryKey(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/sync.function.yaml", "exports:\n  run: billing.unknown\n")

	units, err := discovery.Find(tmp, discovery.FunctionSuffix, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	_, err = (&Pass{Registry: registry.New()}).Run(units)
	if err == nil {
		t.Fatalf("expected error for unregistered key")
	}
	if !strings.Contains(err.Error(), "sync.function.yaml") || !strings.Contains(err.Error(), `group "billing"`) {
		t.Fatalf("error should name file and group: %v", err)
	}
}
