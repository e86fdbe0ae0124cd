package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer builds cache keys.
type Keyer interface {
	// ResolveKey is the key of a resolution of the graph document with
	// the given digest.
	ResolveKey(graphDigest, strategy string) string

	// SanityKey is the key of a sanity check report.
	SanityKey(graphDigest string, deep bool) string
}

// DefaultKeyer builds unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ResolveKey(graphDigest, strategy string) string {
	return hashKey("resolve", graphDigest, strategy)
}

func (DefaultKeyer) SanityKey(graphDigest string, deep bool) string {
	return hashKey("sanity", graphDigest, deep)
}

// ScopedKeyer prefixes every key of an inner keyer, so that several
// services can share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix. A nil inner keyer
// means the default one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ResolveKey(graphDigest, strategy string) string {
	return k.prefix + k.inner.ResolveKey(graphDigest, strategy)
}

func (k *ScopedKeyer) SanityKey(graphDigest string, deep bool) string {
	return k.prefix + k.inner.SanityKey(graphDigest, deep)
}

// hashKey formats prefix:sha256(json(parts)).
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash returns the hex SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
