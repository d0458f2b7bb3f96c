// Package registrar runs the construction pass: discover function and
// endpoint units beneath a root, build the per-group exports, and hand the
// assembled result back as a value the caller merges into its namespace.
package registrar

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/regfold/regfold/internal/discovery"
	"github.com/regfold/regfold/internal/endpoint"
	"github.com/regfold/regfold/internal/event"
	"github.com/regfold/regfold/internal/reactive"
	"github.com/regfold/regfold/internal/registry"
)

// Options configure a single construction pass. New does not default the
// booleans; start from DefaultOptions to get the documented defaults
// (folder grouping on, both passes on, global CORS off).
type Options struct {
	// Root is the directory scanned for unit descriptors. Required.
	Root string
	// EnableCORS forces CORS on every route in every group.
	EnableCORS bool
	// GroupByFolder selects grandparent-folder grouping instead of parent.
	GroupByFolder bool
	// BuildReactive toggles the background-function pass.
	BuildReactive bool
	// BuildEndpoints toggles the REST pass.
	BuildEndpoints bool

	// CORSAllowedOrigins narrows CORS when active; empty allows any origin.
	CORSAllowedOrigins []string
	// UploadMaxBytes bounds multipart parsing; zero selects the default.
	UploadMaxBytes int64

	// Registry supplies the callables descriptors reference. Defaults to an
	// empty registry, which only makes sense for discovery-only use.
	Registry *registry.Registry
	// Logger receives registration diagnostics. Nil disables them.
	Logger *log.Logger
}

// DefaultOptions returns Options for root with the documented defaults.
func DefaultOptions(root string) Options {
	return Options{
		Root:           root,
		GroupByFolder:  true,
		BuildReactive:  true,
		BuildEndpoints: true,
	}
}

// Exports is everything a group publishes: its merged background-function
// exports and, when the group had endpoint units, the assembled HTTP
// adapter.
type Exports struct {
	Functions map[string]event.Handler
	API       http.Handler
}

// Result maps group keys to their exports. It is the value form of a
// construction pass; nothing is published as a side effect.
type Result map[string]Exports

// Namespace is a caller-owned mutable mapping results are merged into.
type Namespace map[string]Exports

// MergeInto merges the result into ns: function maps merge key-wise with
// the result winning, API handlers overwrite.
func (r Result) MergeInto(ns Namespace) {
	for group, e := range r {
		cur := ns[group]
		if len(e.Functions) > 0 {
			if cur.Functions == nil {
				cur.Functions = make(map[string]event.Handler, len(e.Functions))
			}
			for name, h := range e.Functions {
				cur.Functions[name] = h
			}
		}
		if e.API != nil {
			cur.API = e.API
		}
		ns[group] = cur
	}
}

// Registrar executes construction passes for a fixed set of options.
type Registrar struct {
	opts Options
}

// New validates options and returns a Registrar. A missing root is fatal.
func New(opts Options) (*Registrar, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("registrar: root path is required")
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	return &Registrar{opts: opts}, nil
}

// Build runs the enabled passes synchronously and returns the assembled
// result. The first failing unit aborts the whole build; no partial result
// is returned.
func (r *Registrar) Build() (Result, error) {
	res := make(Result)

	if r.opts.BuildReactive {
		units, err := discovery.Find(r.opts.Root, discovery.FunctionSuffix, r.opts.GroupByFolder)
		if err != nil {
			return nil, fmt.Errorf("discover function units: %w", err)
		}
		pass := &reactive.Pass{Registry: r.opts.Registry, Logger: r.opts.Logger}
		groups, err := pass.Run(units)
		if err != nil {
			return nil, err
		}
		for group, fns := range groups {
			e := res[group]
			e.Functions = fns
			res[group] = e
		}
	}

	if r.opts.BuildEndpoints {
		units, err := discovery.Find(r.opts.Root, discovery.EndpointSuffix, r.opts.GroupByFolder)
		if err != nil {
			return nil, fmt.Errorf("discover endpoint units: %w", err)
		}
		pass := &endpoint.Pass{
			Registry:       r.opts.Registry,
			Logger:         r.opts.Logger,
			EnableCORS:     r.opts.EnableCORS,
			AllowedOrigins: r.opts.CORSAllowedOrigins,
			UploadMaxBytes: r.opts.UploadMaxBytes,
		}
		adapters, err := pass.Run(units)
		if err != nil {
			return nil, err
		}
		for group, api := range adapters {
			e := res[group]
			e.API = api
			res[group] = e
		}
	}

	return res, nil
}
