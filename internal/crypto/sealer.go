package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	xchacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrBadKeySize         = errors.New("sealer key must be 32 bytes")
)

// Sealer encrypts session secret buffers before they touch persistent
// storage. Output is nonce || ciphertext under XChaCha20-Poly1305;
// the session id is bound in as associated data so a sealed buffer
// cannot be replayed into another session record.
type Sealer struct {
	key []byte
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != xchacha.KeySize {
		return nil, ErrBadKeySize
	}
	s := &Sealer{key: make([]byte, len(key))}
	copy(s.key, key)
	return s, nil
}

func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, xchacha.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out[:len(nonce)], nonce, plaintext, aad), nil
}

func (s *Sealer) Open(ciphertext, aad []byte) ([]byte, error) {
	aead, err := xchacha.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < xchacha.NonceSizeX {
		return nil, ErrCiphertextTooShort
	}
	nonce := ciphertext[:xchacha.NonceSizeX]
	return aead.Open(nil, nonce, ciphertext[xchacha.NonceSizeX:], aad)
}

// DeriveKey expands a master key into a labeled 32-byte subkey so the
// daemon's seal key is never used raw.
func DeriveKey(master []byte, label string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(label))
	key := make([]byte, xchacha.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Zero overwrites a byte slice in memory with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
