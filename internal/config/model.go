// internal/config/model.go
//
// Typed configuration model for Medcost.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four layers:
//
//   • built-in defaults                         – see defaults(),
//   • `conf/global.yaml`                        – optional static file,
//   • optional `.env`                           – dotenv values,
//   • `MEDCOST_`-prefixed environment overrides – highest precedence.
//
// The prediction endpoint is the one value operators routinely change:
// `MEDCOST_PREDICT__ENDPOINT=https://model.internal/predict`.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Security.CSRFKey may hold `vault:<mount/path>#<key>`; cmd/web
//     resolves it through internal/vault before use.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

// Predict points at the remote prediction service.
type Predict struct {
	Endpoint string `koanf:"endpoint" validate:"required,url"`
}

// Form selects the form definition.  Empty Path means the embedded default.
type Form struct {
	Path string `koanf:"path"`
}

// Log controls the zap + lumberjack sink.
type Log struct {
	Dir   string `koanf:"dir"   validate:"required"`
	Tee   bool   `koanf:"tee"`
	Debug bool   `koanf:"debug"`
}

// Security holds secrets.  An empty CSRFKey selects an ephemeral key.
type Security struct {
	CSRFKey string `koanf:"csrf_key"`
}

// Session bounds the in-memory session store.
type Session struct {
	IdleTTL    time.Duration `koanf:"idle_ttl"    validate:"min=1s"`
	MaxEntries int           `koanf:"max_entries" validate:"min=1"`
}

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // MEDCOST_ROOT or discovered parent
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Predict  Predict  `koanf:"predict"`
	Form     Form     `koanf:"form"`
	Log      Log      `koanf:"log"`
	Security Security `koanf:"security"`
	Session  Session  `koanf:"session"`
	Paths    Paths    `koanf:"-"`
}
