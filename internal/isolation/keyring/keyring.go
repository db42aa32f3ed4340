// Package keyring resolves opaque key references to AES-256 key material.
//
// Key records store only a reference; the actual key is derived on demand
// from a master secret via HKDF-SHA256 with the reference as the info input.
// This keeps key material out of every store the pipeline writes to, so a
// dump of the key table alone cannot decrypt anything.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32 // AES-256

// Keyring derives per-reference keys and performs AEAD seal/open.
type Keyring struct {
	masterSecret []byte
}

// New creates a keyring from a master secret. The secret must be at least 32
// bytes; in production it comes from the KMS-backed environment, never from
// source or config files checked into the repo.
func New(masterSecret []byte) (*Keyring, error) {
	if len(masterSecret) < keySize {
		return nil, fmt.Errorf("master secret must be at least %d bytes", keySize)
	}
	return &Keyring{masterSecret: masterSecret}, nil
}

// NewReference generates a fresh opaque key reference.
func NewReference() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate key reference: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// derive resolves a reference to its AES-256 key.
func (k *Keyring) derive(reference string) ([]byte, error) {
	r := hkdf.New(sha256.New, k.masterSecret, nil, []byte("beacon/signal-key/"+reference))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under the key for reference using AES-256-GCM.
// The nonce is prepended to the returned ciphertext.
func (k *Keyring) Seal(reference string, plaintext []byte) ([]byte, error) {
	gcm, err := k.aead(reference)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal.
func (k *Keyring) Open(reference string, ciphertext []byte) ([]byte, error) {
	gcm, err := k.aead(reference)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plaintext, nil
}

func (k *Keyring) aead(reference string) (cipher.AEAD, error) {
	key, err := k.derive(reference)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
