// Package unit defines the YAML descriptor shapes for discovered units and
// their loaders.
package unit

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FunctionDescriptor declares the exported members of a background-function
// unit. Keys are export names; values are registry keys resolving to the
// background handlers the embedding program registered.
type FunctionDescriptor struct {
	Exports map[string]string `yaml:"exports"`
}

// EndpointOptions carries per-endpoint cross-cutting configuration.
type EndpointOptions struct {
	EnableCORS       bool     `yaml:"enable_cors"`
	EnableFileUpload bool     `yaml:"enable_file_upload"`
	Middlewares      []string `yaml:"middlewares"`
}

// EndpointDescriptor declares one HTTP route. Name overrides the logical
// name derived from the file name when set.
type EndpointDescriptor struct {
	Name        string          `yaml:"name"`
	RequestType string          `yaml:"request_type"`
	Handler     string          `yaml:"handler"`
	Options     EndpointOptions `yaml:"options"`
}

// requestMethods is the closed set of accepted request types.
var requestMethods = map[string]string{
	"GET":    http.MethodGet,
	"POST":   http.MethodPost,
	"PUT":    http.MethodPut,
	"DELETE": http.MethodDelete,
	"PATCH":  http.MethodPatch,
}

// Method maps the descriptor's request type onto an HTTP method. Any value
// outside the supported set is a configuration error.
func (d *EndpointDescriptor) Method() (string, error) {
	m, ok := requestMethods[strings.ToUpper(strings.TrimSpace(d.RequestType))]
	if !ok {
		return "", fmt.Errorf("unsupported request type %q: must be one of GET, POST, PUT, DELETE or PATCH", d.RequestType)
	}
	return m, nil
}

// LoadFunction reads and parses a function descriptor file. Errors carry no
// path context; callers wrap with the file and group they are registering.
func LoadFunction(path string) (*FunctionDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read function descriptor: %w", err)
	}
	var d FunctionDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse function descriptor: %w", err)
	}
	if len(d.Exports) == 0 {
		return nil, fmt.Errorf("function descriptor declares no exports")
	}
	return &d, nil
}

// LoadEndpoint reads and parses an endpoint descriptor file, enforcing the
// required fields. Errors carry no path context; callers wrap.
func LoadEndpoint(path string) (*EndpointDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoint descriptor: %w", err)
	}
	var d EndpointDescriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse endpoint descriptor: %w", err)
	}
	if strings.TrimSpace(d.RequestType) == "" {
		return nil, fmt.Errorf("endpoint descriptor missing required field request_type")
	}
	if strings.TrimSpace(d.Handler) == "" {
		return nil, fmt.Errorf("endpoint descriptor missing required field handler")
	}
	return &d, nil
}
