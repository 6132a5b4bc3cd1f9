package signature

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Hash selects the keyed-hash algorithm used by the platform's webhook
// signatures. The platform documents HMAC-MD5; sha1/sha256 are also accepted.
type Hash string

const (
	HashMD5    Hash = "md5"
	HashSHA1   Hash = "sha1"
	HashSHA256 Hash = "sha256"
)

// Verifier validates webhook signatures against a shared secret.
type Verifier struct {
	secret []byte
	newHash func() hash.Hash
}

// NewVerifier creates a verifier for the given secret and hash algorithm.
func NewVerifier(secret []byte, algo Hash) (*Verifier, error) {
	var fn func() hash.Hash
	switch algo {
	case HashMD5, "":
		fn = md5.New
	case HashSHA1:
		fn = sha1.New
	case HashSHA256:
		fn = sha256.New
	default:
		return nil, fmt.Errorf("unsupported signature hash %q", algo)
	}
	return &Verifier{secret: secret, newHash: fn}, nil
}

// Verify reports whether provided is the hex-encoded keyed hash of body under
// the shared secret. Comparison is constant-time. Malformed hex, an empty
// signature, or a missing secret all yield false.
func (v *Verifier) Verify(body []byte, provided string) bool {
	if len(v.secret) == 0 || provided == "" {
		return false
	}
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

// Sign computes the hex-encoded signature for body. Used by tests and local
// tooling; the platform computes this on its side in production.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(v.newHash, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
