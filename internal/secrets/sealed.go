package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedInfo domain-separates the HKDF derivation from any other use of
// the same master key.
var sealedInfo = []byte("orbit account state v1")

// Sealed stores the account blob encrypted at rest in a single file.
// For hosts without an OS keychain: the caller supplies a master key
// (e.g. from a key file with 0600 permissions) and Sealed derives an
// XChaCha20-Poly1305 key from it via HKDF-SHA256.
type Sealed struct {
	path string
	aead cipher.AEAD
}

// NewSealed creates a sealed file store at path, deriving the AEAD key
// from masterKey. The file is created lazily on first Write.
func NewSealed(path string, masterKey []byte) (*Sealed, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("sealed store: empty master key")
	}

	hk := hkdf.New(sha256.New, masterKey, nil, sealedInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, fmt.Errorf("sealed store: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed store: init cipher: %w", err)
	}

	return &Sealed{path: path, aead: aead}, nil
}

// Read decrypts and returns the stored blob, or ErrNotFound if the file
// does not exist.
func (s *Sealed) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sealed store: read: %w", err)
	}

	ns := s.aead.NonceSize()
	if len(data) < ns+s.aead.Overhead() {
		return "", fmt.Errorf("sealed store: ciphertext too short: %d bytes", len(data))
	}

	nonce, ciphertext := data[:ns], data[ns:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("sealed store: decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Write encrypts the blob under a fresh random nonce and writes it
// atomically (temp file + rename).
func (s *Sealed) Write(blob string) error {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("sealed store: nonce: %w", err)
	}

	out := s.aead.Seal(nonce, nonce, []byte(blob), nil)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".orbit-state-*")
	if err != nil {
		return fmt.Errorf("sealed store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sealed store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sealed store: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sealed store: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("sealed store: rename: %w", err)
	}

	return nil
}

// Clear removes the sealed file. Clearing a missing file is not an error.
func (s *Sealed) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("sealed store: clear: %w", err)
	}
	return nil
}
