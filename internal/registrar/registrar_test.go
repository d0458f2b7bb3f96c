package registrar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

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

func TestNewRequiresRoot(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for missing root")
	}
	if _, err := New(Options{Root: "   "}); err == nil {
		t.Fatalf("expected error for blank root")
	}
}

func TestBuildBillingExample(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/invoices.endpoint.yaml", "request_type: GET\nhandler: billing.invoices\n")
	writeUnit(t, tmp, "billing/refunds.endpoint.yaml", "name: refunds\nrequest_type: POST\nhandler: billing.refunds\n")
	writeUnit(t, tmp, "billing/sync.function.yaml", "exports:\n  nightly: billing.nightly\n")

	reg := registry.New()
	for _, key := range []string{"billing.invoices", "billing.refunds"} {
		body := key
		err := reg.RegisterHandler(key, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		}))
		if err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}
	if err := reg.RegisterFunction("billing.nightly", func(ctx context.Context, evt event.Event) error { return nil }); err != nil {
		t.Fatalf("register function: %v", err)
	}

	opts := DefaultOptions(tmp)
	opts.GroupByFolder = false
	opts.Registry = reg
	reg2, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := reg2.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ns := Namespace{}
	res.MergeInto(ns)

	billing, ok := ns["billing"]
	if !ok {
		t.Fatalf("expected billing group in namespace, got %v", ns)
	}
	if billing.API == nil {
		t.Fatalf("expected api export for billing")
	}
	if len(billing.Functions) != 1 {
		t.Fatalf("expected one function export, got %v", billing.Functions)
	}

	rec := httptest.NewRecorder()
	billing.API.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/invoices", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "billing.invoices" {
		t.Fatalf("GET /billing/invoices: %d %q", rec.Code, rec.Body.String())
	}
	rec = httptest.NewRecorder()
	billing.API.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/billing/refunds", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "billing.refunds" {
		t.Fatalf("POST /billing/refunds: %d %q", rec.Code, rec.Body.String())
	}
}

func TestBuildPassToggles(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/invoices.endpoint.yaml", "request_type: GET\nhandler: h\n")
	writeUnit(t, tmp, "billing/sync.function.yaml", "exports:\n  run: fn\n")

	reg := registry.New()
	if err := reg.RegisterHandler("h", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.RegisterFunction("fn", func(ctx context.Context, evt event.Event) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	opts := DefaultOptions(tmp)
	opts.GroupByFolder = false
	opts.Registry = reg
	opts.BuildEndpoints = false
	r1, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := r1.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res["billing"].API != nil {
		t.Fatalf("endpoints pass should be disabled")
	}
	if len(res["billing"].Functions) != 1 {
		t.Fatalf("reactive pass should still run, got %v", res)
	}

	opts.BuildEndpoints = true
	opts.BuildReactive = false
	r2, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err = r2.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res["billing"].Functions != nil {
		t.Fatalf("reactive pass should be disabled, got %v", res)
	}
	if res["billing"].API == nil {
		t.Fatalf("endpoints pass should run")
	}
}

func TestBuildFailsClosedOnBadUnit(t *testing.T) {
	tmp := t.TempDir()
	writeUnit(t, tmp, "billing/good.endpoint.yaml", "request_type: GET\nhandler: h\n")
	writeUnit(t, tmp, "users/bad.endpoint.yaml", "request_type: HEAD\nhandler: h\n")

	reg := registry.New()
	if err := reg.RegisterHandler("h", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})); err != nil {
		t.Fatalf("register: %v", err)
	}
	opts := DefaultOptions(tmp)
	opts.GroupByFolder = false
	opts.Registry = reg
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := r.Build()
	if err == nil {
		t.Fatalf("expected build failure")
	}
	if res != nil {
		t.Fatalf("no partial result on failure, got %v", res)
	}
}

func TestMergeIntoSemantics(t *testing.T) {
	fnOld := func(ctx context.Context, evt event.Event) error { return nil }
	fnNew := func(ctx context.Context, evt event.Event) error { return nil }
	oldAPI := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	newAPI := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	ns := Namespace{
		"billing": {Functions: map[string]event.Handler{"keep": fnOld, "clobber": fnOld}, API: oldAPI},
	}
	res := Result{
		"billing": {Functions: map[string]event.Handler{"clobber": fnNew, "added": fnNew}, API: newAPI},
		"users":   {Functions: map[string]event.Handler{"purge": fnNew}},
	}
	res.MergeInto(ns)

	billing := ns["billing"]
	if len(billing.Functions) != 3 {
		t.Fatalf("expected merged function map, got %v", billing.Functions)
	}
	rec := httptest.NewRecorder()
	billing.API.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("api should have been overwritten, got %d", rec.Code)
	}
	if _, ok := ns["users"]; !ok {
		t.Fatalf("expected users group added")
	}
}
