// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Built-in defaults, so a bare checkout runs against a local model
     server on http://localhost:5000/predict.
  2. Optional `conf/global.yaml`.
  3. Optional `conf/.env`, loaded into the process environment.
  4. Environment variables prefixed `MEDCOST_`, where `__` maps to “.”
     (e.g., `MEDCOST_PREDICT__ENDPOINT → predict.endpoint`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path, and returned to main,
which passes the pieces each package needs.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global sugared logger (`zap.S()`), so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/predict"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "MEDCOST_"

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves MEDCOST_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

func defaults(root string) map[string]any {
	return map[string]any{
		"http.listen_addr":    ":8080",
		"http.force_https":    false,
		"predict.endpoint":    predict.DefaultEndpoint,
		"form.path":           "",
		"log.dir":             filepath.Join(root, "logs"),
		"log.tee":             false,
		"log.debug":           false,
		"security.csrf_key":   "",
		"session.idle_ttl":    30 * time.Minute,
		"session.max_entries": 10000,
	}
}

// Load discovers the root directory and calls LoadFrom.
func Load() (*Config, error) { return LoadFrom(rootDir()) }

// LoadFrom reads defaults, YAML, .env, and env overrides under root,
// validates, and caches the result.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	k := koanf.New(".")
	for key, val := range defaults(root) {
		if err := k.Set(key, val); err != nil {
			return nil, err
		}
	}

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	switch _, err := os.Stat(yamlPath); {
	case errors.Is(err, fs.ErrNotExist):
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	default:
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// .env (optional, no error if missing).  Existing env vars win.
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"endpoint", cfg.Predict.Endpoint,
		"form", cfg.Form.Path,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}
