package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/regfold/regfold/internal/config"
	"github.com/regfold/regfold/internal/event"
	"github.com/regfold/regfold/internal/logging"
	"github.com/regfold/regfold/internal/registrar"
	"github.com/regfold/regfold/internal/registry"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize rotating file logging when log_file is set
	const maxLogBytes = int64(100 * 1024 * 1024) // 100MB
	if target := strings.TrimSpace(cfg.LogFile); target != "" {
		rot, err := logging.NewRotatingWriter(target, maxLogBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		// Mirror to stdout as well for foreground runs
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		log.SetPrefix("[regfoldd] ")
		defer rot.Close()
	}

	reg := registry.New()
	registerBuiltins(reg)

	opts := registrar.Options{
		Root:               cfg.UnitsRoot,
		EnableCORS:         cfg.EnableCORS,
		GroupByFolder:      cfg.GroupByFolder,
		BuildReactive:      cfg.BuildReactive,
		BuildEndpoints:     cfg.BuildEndpoints,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		UploadMaxBytes:     cfg.UploadMaxBytes,
		Registry:           reg,
		Logger:             log.New(log.Writer(), "[regfoldd/registrar] ", log.LstdFlags|log.Lmicroseconds),
	}
	r, err := registrar.New(opts)
	if err != nil {
		log.Fatalf("configure registrar: %v", err)
	}
	res, err := r.Build()
	if err != nil {
		log.Fatalf("build namespace: %v", err)
	}

	ns := registrar.Namespace{}
	res.MergeInto(ns)
	groups, routesGroups, functions := 0, 0, 0
	for name, e := range ns {
		groups++
		if e.API != nil {
			routesGroups++
		}
		functions += len(e.Functions)
		log.Printf("group %q: %d function export(s), api=%t", name, len(e.Functions), e.API != nil)
	}
	log.Printf("namespace built: %d group(s), %d with api, %d function export(s)", groups, routesGroups, functions)

	emitBootEvent(ns)

	srv := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      newHost(cfg, ns),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Printf("regfold daemon listening on %s (env %s)", cfg.HTTPAddress, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// registerBuiltins installs the handlers the scaffolded demo units refer
// to, so a freshly initialized tree serves without embedding code.
func registerBuiltins(reg *registry.Registry) {
	_ = reg.RegisterHandler("builtin.echo", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"request_id": middleware.GetReqID(r.Context()),
		})
	}))
	_ = reg.RegisterFunction("builtin.log", func(ctx context.Context, evt event.Event) error {
		log.Printf("event %s type=%s group=%s function=%s", evt.ID, evt.Type, evt.Group, evt.Function)
		return nil
	})
	_ = reg.RegisterMiddleware("builtin.logger", func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
		})
	})
}

// emitBootEvent fans a startup event out to every registered function
// export, proving the reactive wiring end to end.
func emitBootEvent(ns registrar.Namespace) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for group, e := range ns {
		if len(e.Functions) == 0 {
			continue
		}
		d := &event.Dispatcher{}
		for _, h := range e.Functions {
			d.Register(h)
		}
		evt := event.New("regfold.daemon.started")
		evt.Group = group
		if err := d.Emit(ctx, evt); err != nil {
			log.Printf("boot event for group %q: %v", group, err)
		}
	}
}

// newHost assembles the daemon's top-level router: a status endpoint plus
// first-path-segment dispatch into the published group adapters.
func newHost(cfg config.Config, ns registrar.Namespace) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
			"groups":      len(ns),
		})
	})

	r.Mount("/", dispatcher(ns))
	return r
}

// dispatcher routes by the first path segment to the matching group
// adapter, falling back to the empty-group adapter for root-level units.
func dispatcher(ns registrar.Namespace) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seg := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]
		if e, ok := ns[seg]; ok && e.API != nil {
			e.API.ServeHTTP(w, r)
			return
		}
		if e, ok := ns[""]; ok && e.API != nil {
			e.API.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
