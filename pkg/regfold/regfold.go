// Package regfold is the public embedding surface. Applications register
// their handlers, point a registrar at a unit tree, and merge the build
// result into a namespace they serve or drive themselves.
//
//	reg := regfold.NewRegistry()
//	reg.RegisterHandler("billing.invoices", listInvoices)
//
//	r, err := regfold.New(regfold.DefaultOptions("units", reg))
//	if err != nil { ... }
//	res, err := r.Build()
//	if err != nil { ... }
//
//	ns := regfold.Namespace{}
//	res.MergeInto(ns)
package regfold

import (
	"log"

	"github.com/regfold/regfold/internal/registrar"
	"github.com/regfold/regfold/internal/registry"
)

// Registry holds the handlers, functions and middlewares that unit
// descriptors may reference by key.
type Registry = registry.Registry

// Middleware wraps an http.Handler, chi style.
type Middleware = registry.Middleware

// Options configures a Registrar.
type Options = registrar.Options

// Exports is one group's published surface.
type Exports = registrar.Exports

// Result is the outcome of a build, keyed by group.
type Result = registrar.Result

// Namespace is a mutable map a Result merges into.
type Namespace = registrar.Namespace

// Registrar scans a unit tree and builds grouped exports.
type Registrar = registrar.Registrar

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return registry.New()
}

// New creates a Registrar from opts.
func New(opts Options) (*Registrar, error) {
	return registrar.New(opts)
}

// DefaultOptions returns options that scan root with both passes enabled,
// grouping by parent directory and logging to the standard logger.
func DefaultOptions(root string, reg *Registry) Options {
	opts := registrar.DefaultOptions(root)
	opts.Registry = reg
	opts.Logger = log.Default()
	return opts
}
