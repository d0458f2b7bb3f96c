// Package reactive implements the background-function registration pass:
// discovered function units are grouped by folder and their exports merged
// into per-group handler maps.
package reactive

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/regfold/regfold/internal/discovery"
	"github.com/regfold/regfold/internal/event"
	"github.com/regfold/regfold/internal/registry"
	"github.com/regfold/regfold/internal/unit"
)

// SelectorEnv narrows registration to a single logical function name when
// set. Files whose derived name differs are skipped, not rejected.
const SelectorEnv = "REGFOLD_FUNCTION_NAME"

// Pass holds the collaborators for one reactive registration run.
type Pass struct {
	Registry *registry.Registry
	Logger   *log.Logger
}

// Run merges every discovered function unit's exports into per-group maps.
// Units arrive sorted by path; when two files in a group export the same
// name the later path wins and the overwrite is logged.
func (p *Pass) Run(units []discovery.Unit) (map[string]map[string]event.Handler, error) {
	selector := strings.TrimSpace(os.Getenv(SelectorEnv))

	groups := make(map[string]map[string]event.Handler)
	owners := make(map[string]map[string]string)
	for _, u := range units {
		if selector != "" && selector != u.Name {
			continue
		}
		desc, err := unit.LoadFunction(u.Path)
		if err != nil {
			return nil, fmt.Errorf("register function %s (group %q): %w", u.Path, u.Group, err)
		}
		if groups[u.Group] == nil {
			groups[u.Group] = make(map[string]event.Handler)
			owners[u.Group] = make(map[string]string)
		}
		for exportName, key := range desc.Exports {
			h, ok := p.Registry.Function(key)
			if !ok {
				return nil, fmt.Errorf("register function %s (group %q): no background handler registered for key %q", u.Path, u.Group, key)
			}
			if prev, clash := owners[u.Group][exportName]; clash {
				p.logf("export %q in group %q from %s overwrites earlier export from %s", exportName, u.Group, u.Path, prev)
			}
			groups[u.Group][exportName] = h
			owners[u.Group][exportName] = u.Path
		}
	}
	return groups, nil
}

func (p *Pass) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
