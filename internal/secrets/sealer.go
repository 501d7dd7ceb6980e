package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrOpen is returned when a sealed record cannot be authenticated.
var ErrOpen = errors.New("secrets: cannot open sealed record")

const sealInfo = "storefront session v1"

// Sealer encrypts records at rest with XChaCha20-Poly1305. The AEAD key is
// derived from the vault's session key with HKDF-SHA256 and rotates when the
// vault reloads.
type Sealer struct {
	vault *Vault
	key   string

	mu   sync.RWMutex
	aead cipher.AEAD
}

// NewSealer creates a Sealer keyed by the vault secret named key.
func NewSealer(v *Vault, key string) (*Sealer, error) {
	s := &Sealer{vault: v, key: key}
	if err := s.rekey(); err != nil {
		return nil, err
	}
	v.OnReload(func() {
		_ = s.rekey()
	})
	return s, nil
}

func (s *Sealer) rekey() error {
	secret := s.vault.Get(s.key)
	if secret == "" {
		return fmt.Errorf("secrets: %s is not set", s.key)
	}
	derived := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return fmt.Errorf("init aead: %w", err)
	}
	s.mu.Lock()
	s.aead = aead
	s.mu.Unlock()
	return nil
}

// Seal encrypts plaintext bound to ad (the storage key). The nonce is prepended.
func (s *Sealer) Seal(plaintext, ad []byte) ([]byte, error) {
	s.mu.RLock()
	aead := s.aead
	s.mu.RUnlock()

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

// Open decrypts a record produced by Seal with the same ad.
func (s *Sealer) Open(sealed, ad []byte) ([]byte, error) {
	s.mu.RLock()
	aead := s.aead
	s.mu.RUnlock()

	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrOpen
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	out, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, ErrOpen
	}
	return out, nil
}
