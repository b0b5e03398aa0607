package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "storefront/storage/v1"

// SealedStore encrypts values with XChaCha20-Poly1305 before handing them to
// the wrapped Store. The key name is bound as additional data, so a value
// copied under another key fails to open.
type SealedStore struct {
	inner Store
	key   []byte
}

// NewSealedStore derives the encryption key from secret with HKDF-SHA256.
func NewSealedStore(inner Store, secret string) (*SealedStore, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("storage: failed to derive key: %w", err)
	}
	return &SealedStore{inner: inner, key: key}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(key, sealed)
}

func (s *SealedStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStore) seal(key, value string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("storage: failed to generate nonce: %w", err)
	}
	out := aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(key, sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSealed, err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrSealed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSealed, err)
	}
	return string(plain), nil
}
