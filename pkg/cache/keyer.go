package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ArtifactKeyOpts are the render parameters that distinguish artifacts of the
// same DOT source.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey returns the key for a rendered artifact of the DOT source
	// whose [Hash] is dotHash.
	ArtifactKey(dotHash string, opts ArtifactKeyOpts) string
}

// HashKeyer builds keys of the form "<Prefix>artifact:<sha256>". The zero
// value is ready to use.
type HashKeyer struct {
	Prefix string
}

func (k HashKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	b, _ := json.Marshal(struct {
		DOT string `json:"dot"`
		ArtifactKeyOpts
	}{dotHash, opts})
	return k.Prefix + "artifact:" + Hash(b)
}

// Scoped prepends prefix to every key inner builds, so that deployments or
// binary versions sharing one backend never collide:
//
//	keyer := cache.Scoped(cache.HashKeyer{}, "v1.2.0:")
func Scoped(inner Keyer, prefix string) Keyer {
	if inner == nil {
		return HashKeyer{Prefix: prefix}
	}
	return scoped{inner: inner, prefix: prefix}
}

type scoped struct {
	inner  Keyer
	prefix string
}

func (s scoped) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return s.prefix + s.inner.ArtifactKey(dotHash, opts)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
