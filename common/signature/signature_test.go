package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	for _, algo := range []Hash{HashMD5, HashSHA1, HashSHA256} {
		t.Run(string(algo), func(t *testing.T) {
			v, err := NewVerifier([]byte("shared-secret"), algo)
			require.NoError(t, err)

			body := []byte(`{"data":{"type":"member"}}`)
			assert.True(t, v.Verify(body, v.Sign(body)))
		})
	}
}

func TestVerifyRejectsMutations(t *testing.T) {
	v, err := NewVerifier([]byte("shared-secret"), HashMD5)
	require.NoError(t, err)

	body := []byte(`{"data":{"type":"member"}}`)
	sig := v.Sign(body)

	// Flip each bit of the body in turn.
	for i := 0; i < len(body)*8; i++ {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i/8] ^= 1 << (i % 8)
		assert.False(t, v.Verify(mutated, sig), "bit %d of body", i)
	}

	// Flip each nibble of the hex signature in turn (staying within hex).
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == '0' {
			mutated[i] = '1'
		} else {
			mutated[i] = '0'
		}
		assert.False(t, v.Verify(body, string(mutated)), "char %d of signature", i)
	}
}

func TestVerifyMalformedSignature(t *testing.T) {
	v, err := NewVerifier([]byte("shared-secret"), HashMD5)
	require.NoError(t, err)

	body := []byte("payload")
	assert.False(t, v.Verify(body, ""))
	assert.False(t, v.Verify(body, "not-hex!!"))
	assert.False(t, v.Verify(body, "abc")) // odd length
}

func TestVerifyEmptySecret(t *testing.T) {
	v, err := NewVerifier(nil, HashMD5)
	require.NoError(t, err)
	assert.False(t, v.Verify([]byte("payload"), v.Sign([]byte("payload"))))
}

func TestVerifyWrongSecret(t *testing.T) {
	a, err := NewVerifier([]byte("secret-a"), HashMD5)
	require.NoError(t, err)
	b, err := NewVerifier([]byte("secret-b"), HashMD5)
	require.NoError(t, err)

	body := []byte("payload")
	assert.False(t, b.Verify(body, a.Sign(body)))
}

func TestNewVerifierUnknownHash(t *testing.T) {
	_, err := NewVerifier([]byte("secret"), Hash("crc32"))
	assert.Error(t, err)
}
