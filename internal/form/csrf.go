// internal/form/csrf.go
//
// Medcost – Forms subsystem: stateless CSRF tokens.
//
// Context
//   The rendered form embeds a hidden csrf_token input.  The web handler
//   verifies it on POST so only pages this process rendered can trigger a
//   prediction request.  Tokens are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, nonce+unixMicro) )
//
//   No server-side store is needed, so tokens survive session eviction.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size // nonce + ts + sig

	// TokenMaxAge bounds how long a rendered form stays submittable.
	TokenMaxAge = 2 * time.Hour
)

// ErrShortKey is returned by NewSigner for keys under 32 bytes.
var ErrShortKey = errors.New("csrf key must be at least 32 bytes")

// Signer issues and verifies CSRF tokens with one HMAC key.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner returns a Signer for key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < 32 {
		return nil, ErrShortKey
	}
	return &Signer{key: append([]byte(nil), key...), now: time.Now}, nil
}

// RandomSigner returns a Signer with an ephemeral key.  Tokens do not
// survive a restart.
func RandomSigner() (*Signer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return NewSigner(key)
}

// Token creates a new token.  Call once per render.
func (s *Signer) Token() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf[:nonceBytes]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[nonceBytes:nonceBytes+8], uint64(s.now().UnixMicro()))
	copy(buf[nonceBytes+8:], s.sign(buf[:nonceBytes+8]))
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok carries a valid signature and is within
// TokenMaxAge.
func (s *Signer) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(raw[nonceBytes : nonceBytes+8])))
	age := s.now().Sub(issued)
	if age > TokenMaxAge || age < -time.Minute {
		return false
	}

	return hmac.Equal(raw[nonceBytes+8:], s.sign(raw[:nonceBytes+8]))
}

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
