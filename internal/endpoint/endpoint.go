// Package endpoint implements the REST registration pass. Discovered
// endpoint units are collected per group, the group-wide middleware policy
// is resolved, and one shared chi router per group is materialized and
// wrapped in a publishable adapter.
package endpoint

import (
	"fmt"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/regfold/regfold/internal/discovery"
	"github.com/regfold/regfold/internal/registry"
	"github.com/regfold/regfold/internal/unit"
)

// DefaultUploadMaxBytes caps multipart form memory when no limit is
// configured.
const DefaultUploadMaxBytes = int64(32 << 20) // 32MB

// Pass holds the collaborators and policy for one endpoint registration run.
type Pass struct {
	Registry *registry.Registry
	Logger   *log.Logger

	// EnableCORS forces CORS on every group regardless of per-endpoint flags.
	EnableCORS bool
	// AllowedOrigins configures CORS when active; empty means any origin.
	AllowedOrigins []string
	// UploadMaxBytes bounds multipart parsing; zero selects the default.
	UploadMaxBytes int64
}

type route struct {
	method  string
	pattern string
	source  string
	chain   []registry.Middleware
	handler http.Handler
}

// groupPlan accumulates everything known about a group before its router is
// built. Collecting first and materializing once keeps middleware scope
// independent of file order: any endpoint's flag enables the concern for
// the whole group, up front.
type groupPlan struct {
	cors   bool
	upload bool
	routes []route
}

// Run registers every discovered endpoint unit and returns one published
// HTTP adapter per group. The first invalid unit aborts the whole pass.
func (p *Pass) Run(units []discovery.Unit) (map[string]http.Handler, error) {
	plans := make(map[string]*groupPlan)
	for _, u := range units {
		if err := p.collect(plans, u); err != nil {
			return nil, err
		}
	}

	adapters := make(map[string]http.Handler, len(plans))
	for group, plan := range plans {
		adapters[group] = p.materialize(plan)
		p.logf("published adapter for group %q with %d route(s)", group, len(plan.routes))
	}
	return adapters, nil
}

func (p *Pass) collect(plans map[string]*groupPlan, u discovery.Unit) error {
	wrap := func(err error) error {
		return fmt.Errorf("register endpoint %s (group %q): %w", u.Path, u.Group, err)
	}

	desc, err := unit.LoadEndpoint(u.Path)
	if err != nil {
		return wrap(err)
	}
	method, err := desc.Method()
	if err != nil {
		return wrap(err)
	}
	handler, ok := p.Registry.Handler(desc.Handler)
	if !ok {
		return wrap(fmt.Errorf("no HTTP handler registered for key %q", desc.Handler))
	}
	var chain []registry.Middleware
	for _, key := range desc.Options.Middlewares {
		m, ok := p.Registry.Middleware(key)
		if !ok {
			return wrap(fmt.Errorf("no middleware registered for key %q", key))
		}
		chain = append(chain, m)
	}

	name := strings.TrimSpace(desc.Name)
	if name == "" {
		name = u.Name
	}
	pattern := "/" + path.Join(u.Group, name)

	plan := plans[u.Group]
	if plan == nil {
		plan = &groupPlan{}
		plans[u.Group] = plan
	}
	for _, existing := range plan.routes {
		if existing.method == method && existing.pattern == pattern {
			return wrap(fmt.Errorf("route %s %s already registered by %s", method, pattern, existing.source))
		}
	}

	plan.cors = plan.cors || desc.Options.EnableCORS
	plan.upload = plan.upload || desc.Options.EnableFileUpload
	plan.routes = append(plan.routes, route{
		method:  method,
		pattern: pattern,
		source:  u.Path,
		chain:   chain,
		handler: handler,
	})
	return nil
}

// materialize builds the shared group router, installs the resolved blanket
// middleware ahead of every route, and mounts the router at the root of a
// dedicated adapter instance.
func (p *Pass) materialize(plan *groupPlan) http.Handler {
	r := chi.NewRouter()
	if p.EnableCORS || plan.cors {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: p.corsOrigins(),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	if plan.upload {
		r.Use(p.uploadMiddleware())
	}
	for _, rt := range plan.routes {
		if len(rt.chain) == 0 {
			r.Method(rt.method, rt.pattern, rt.handler)
			continue
		}
		mws := make([]func(http.Handler) http.Handler, len(rt.chain))
		for i, m := range rt.chain {
			mws[i] = m
		}
		r.With(mws...).Method(rt.method, rt.pattern, rt.handler)
	}

	adapter := chi.NewRouter()
	adapter.Use(middleware.RequestID)
	adapter.Use(middleware.Recoverer)
	adapter.Mount("/", r)
	return adapter
}

func (p *Pass) corsOrigins() []string {
	if len(p.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return p.AllowedOrigins
}

// uploadMiddleware eagerly parses multipart bodies so downstream handlers
// can read form values and files without re-parsing.
func (p *Pass) uploadMiddleware() registry.Middleware {
	max := p.UploadMaxBytes
	if max <= 0 {
		max = DefaultUploadMaxBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if strings.HasPrefix(ct, "multipart/form-data") {
				if err := r.ParseMultipartForm(max); err != nil {
					http.Error(w, "malformed multipart form", http.StatusBadRequest)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *Pass) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
