// Package bootstrap scaffolds a working regfold tree: config files plus a
// small demo unit group wired to the daemon's built-in handlers.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InitOptions configures the bootstrap process for generating files.
type InitOptions struct {
	Root        string
	Environment string
	UnitsRoot   string
	HTTPAddress string
	Force       bool
}

// Init scaffolds configuration files and a demo unit group under root.
func Init(opts InitOptions) error {
	applyDefaults(&opts)
	if err := ensureDir(filepath.Join(opts.Root, "config", opts.Environment)); err != nil {
		return err
	}
	if err := ensureDir(filepath.Join(opts.Root, opts.UnitsRoot, "demo")); err != nil {
		return err
	}

	files := []struct {
		path     string
		contents string
	}{
		{filepath.Join(opts.Root, "config", "setting.ini"), settingTemplate(opts)},
		{filepath.Join(opts.Root, "config", opts.Environment, "regfold.ini"), configTemplate(opts)},
		{filepath.Join(opts.Root, opts.UnitsRoot, "demo", "ping.endpoint.yaml"), pingTemplate},
		{filepath.Join(opts.Root, opts.UnitsRoot, "demo", "heartbeat.function.yaml"), heartbeatTemplate},
	}
	for _, f := range files {
		if err := writeFile(f.path, f.contents, opts.Force); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(opts *InitOptions) {
	if strings.TrimSpace(opts.Root) == "" {
		opts.Root = "."
	}
	if strings.TrimSpace(opts.Environment) == "" {
		opts.Environment = "dev"
	}
	if strings.TrimSpace(opts.UnitsRoot) == "" {
		opts.UnitsRoot = "units"
	}
	if strings.TrimSpace(opts.HTTPAddress) == "" {
		opts.HTTPAddress = ":8080"
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeFile(path, contents string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func settingTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# regfold settings
environment=%s
units_root=%s
`, opts.Environment, opts.UnitsRoot)
}

func configTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# Environment specific overrides for %s
http_address=%s
log_level=info
# Dash '-' disables file output.
log_file=logs/regfoldd.log
# Group demo units by their parent folder.
group_by_folder=false
# enable_cors=false
`, opts.Environment, opts.HTTPAddress)
}

const pingTemplate = `# Demo endpoint served by the daemon's built-in echo handler.
request_type: GET
handler: builtin.echo
options:
  enable_cors: false
`

const heartbeatTemplate = `# Demo background function wired to the built-in event logger.
exports:
  beat: builtin.log
`
