// internal/vault/vault.go
//
// Vault secret resolution for Medcost.
//
// Context
// -------
//   - Config values of the form `vault:<mount>/<path>#<key>` are references,
//     not secrets.  Resolve turns them into plain strings at boot; nothing
//     is cached, so a rotated secret takes effect on restart.
//   - Only the CSRF key uses this today; any string setting could.
//   - Plain values pass through untouched, so Vault is optional: without a
//     reference in config no client is ever built.
//
// Public workflow
// ---------------
//  1. if vault.IsRef(v) { cli, err := vault.New(ctx, log.Infof) }
//  2. secret, err := cli.Resolve(ctx, v)
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"golang.org/x/sync/singleflight"
)

// Prefix marks a config value as a Vault reference.
const Prefix = "vault:"

// ErrBadRef is returned for references without a path or key.
var ErrBadRef = errors.New("vault reference must look like vault:<mount>/<path>#<key>")

// Ref is a parsed reference.
type Ref struct {
	Mount string
	Path  string
	Key   string
}

// IsRef reports whether v should be resolved through Vault.
func IsRef(v string) bool { return strings.HasPrefix(v, Prefix) }

// ParseRef splits `vault:<mount>/<path>#<key>`.
func ParseRef(v string) (Ref, error) {
	if !IsRef(v) {
		return Ref{}, ErrBadRef
	}
	body := strings.TrimPrefix(v, Prefix)
	loc, key, ok := strings.Cut(body, "#")
	if !ok || key == "" {
		return Ref{}, ErrBadRef
	}
	mount, rel, ok := strings.Cut(loc, "/")
	if !ok || mount == "" || rel == "" {
		return Ref{}, ErrBadRef
	}
	return Ref{Mount: mount, Path: rel, Key: key}, nil
}

//
// Client
//

// Client wraps the Vault API.  Concurrent lookups of the same reference
// share one round trip.  Safe for concurrent use.
type Client struct {
	api   *vault.Client
	logFn func(string, ...any)
	sfg   singleflight.Group
}

// New builds a client from VAULT_ADDR / VAULT_TOKEN.
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}
	return newClient(api, logFn), nil
}

func newClient(api *vault.Client, logFn func(string, ...any)) *Client {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	logFn("vault client ready, addr=%s", api.Address())
	return &Client{api: api, logFn: logFn}
}

// Resolve returns v unchanged unless it is a reference, in which case the
// KV-v2 secret is fetched.  Nothing is cached; callers resolve once at boot.
func (c *Client) Resolve(ctx context.Context, v string) (string, error) {
	if !IsRef(v) {
		return v, nil
	}
	ref, err := ParseRef(v)
	if err != nil {
		return "", err
	}

	out, err, _ := c.sfg.Do(v, func() (any, error) { return c.fetch(ctx, ref) })
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *Client) fetch(ctx context.Context, ref Ref) (string, error) {
	sec, err := c.api.KVv2(ref.Mount).Get(ctx, ref.Path)
	if err != nil {
		return "", fmt.Errorf("vault get %s/%s: %w", ref.Mount, ref.Path, err)
	}
	raw, ok := sec.Data[ref.Key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %s/%s", ref.Key, ref.Mount, ref.Path)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s/%s#%s is not a string", ref.Mount, ref.Path, ref.Key)
	}

	c.logFn("vault secret resolved, mount=%s path=%s", ref.Mount, ref.Path)
	return sval, nil
}
