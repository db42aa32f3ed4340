package keyring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyring(t *testing.T) *Keyring {
	t.Helper()
	k, err := New(bytes.Repeat([]byte("s"), 32))
	require.NoError(t, err)
	return k
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New([]byte("too short"))
	assert.Error(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	k := testKeyring(t)
	ref, err := NewReference()
	require.NoError(t, err)

	plaintext := []byte(`{"trigger":"panic_button"}`)
	ciphertext, err := k.Seal(ref, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "panic_button")

	opened, err := k.Open(ref, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenWithWrongReferenceFails(t *testing.T) {
	k := testKeyring(t)
	ref1, _ := NewReference()
	ref2, _ := NewReference()

	ciphertext, err := k.Seal(ref1, []byte("payload"))
	require.NoError(t, err)

	_, err = k.Open(ref2, ciphertext)
	assert.Error(t, err)
}

func TestReferencesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		ref, err := NewReference()
		require.NoError(t, err)
		assert.False(t, seen[ref])
		seen[ref] = true
	}
}
