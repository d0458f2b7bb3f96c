// Package config loads daemon settings from INI files with environment
// variable overrides. Layout: config/setting.ini picks the environment and
// base defaults, config/<env>/regfold.ini overrides per environment, and
// REGFOLD_* environment variables override everything.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/regfold.ini"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// Config describes runtime options for the regfold daemon and CLI.
type Config struct {
	Environment string
	// UnitsRoot is the directory scanned for unit descriptors.
	UnitsRoot   string
	HTTPAddress string
	LogFile     string
	LogLevel    string
	// Registrar surface
	EnableCORS         bool
	CORSAllowedOrigins []string
	GroupByFolder      bool
	BuildReactive      bool
	BuildEndpoints     bool
	UploadMaxBytes     int64
	// HTTP server tuning
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads the current environment and the matching config file under
// root. Missing files fall back to defaults; malformed values are errors.
func Load(root string) (Config, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return Config{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return Config{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := Config{
		Environment:        s.Environment,
		UnitsRoot:          firstNonEmpty(os.Getenv("REGFOLD_UNITS_ROOT"), merged["units_root"], "units"),
		HTTPAddress:        firstNonEmpty(os.Getenv("REGFOLD_HTTP_ADDRESS"), merged["http_address"], ":8080"),
		LogFile:            firstNonEmpty(os.Getenv("REGFOLD_LOG_FILE"), merged["log_file"]),
		LogLevel:           firstNonEmpty(os.Getenv("REGFOLD_LOG_LEVEL"), merged["log_level"], "info"),
		EnableCORS:         parseBool(firstNonEmpty(os.Getenv("REGFOLD_ENABLE_CORS"), merged["enable_cors"])),
		CORSAllowedOrigins: parseCSV(firstNonEmpty(os.Getenv("REGFOLD_CORS_ALLOWED_ORIGINS"), merged["cors_allowed_origins"])),
		GroupByFolder:      parseOptionalBool(firstNonEmpty(os.Getenv("REGFOLD_GROUP_BY_FOLDER"), merged["group_by_folder"]), true),
		BuildReactive:      parseOptionalBool(firstNonEmpty(os.Getenv("REGFOLD_BUILD_REACTIVE"), merged["build_reactive"]), true),
		BuildEndpoints:     parseOptionalBool(firstNonEmpty(os.Getenv("REGFOLD_BUILD_ENDPOINTS"), merged["build_endpoints"]), true),
	}

	if v := firstNonEmpty(os.Getenv("REGFOLD_UPLOAD_MAX_BYTES"), merged["upload_max_bytes"]); strings.TrimSpace(v) != "" {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid upload_max_bytes %q: %w", v, err)
		}
		cfg.UploadMaxBytes = parsed
	}

	if cfg.ReadTimeout, err = parseDuration(firstNonEmpty(os.Getenv("REGFOLD_READ_TIMEOUT"), merged["read_timeout"]), 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("invalid read_timeout: %w", err)
	}
	if cfg.WriteTimeout, err = parseDuration(firstNonEmpty(os.Getenv("REGFOLD_WRITE_TIMEOUT"), merged["write_timeout"]), 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("invalid write_timeout: %w", err)
	}
	if cfg.IdleTimeout, err = parseDuration(firstNonEmpty(os.Getenv("REGFOLD_IDLE_TIMEOUT"), merged["idle_timeout"]), 60*time.Second); err != nil {
		return Config{}, fmt.Errorf("invalid idle_timeout: %w", err)
	}

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseOptionalBool(v string, fallback bool) bool {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return parseBool(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseDuration(v string, fallback time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func parseCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
