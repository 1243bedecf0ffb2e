package infra

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

const (
	keyFileName = ".preferences.key"
	keySize     = 32
)

// ErrKeyExists is returned when a second key would orphan the encrypted store.
var ErrKeyExists = errors.New("preferences key already present")

// FileKeyProvider holds the SQLCipher passphrase for preferences.db as
// base64 text in an owner-only file beside it.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider places the key file in dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, keyFileName)}
}

// GetKey loads the passphrase. Unreadable text or a length other than 32
// bytes is ErrDataCorruption.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("preferences key %s: %w", p.keyPath, err)
	}
	return decodeKey(raw)
}

// StoreKey saves key once. The store is unreadable without the original
// passphrase, so an existing key is never replaced.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("preferences key must be %d bytes, got %d", keySize, len(key))
	}
	if p.KeyExists() {
		return fmt.Errorf("%w: %s", ErrKeyExists, p.keyPath)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("preferences key directory: %w", err)
	}

	tmp := p.keyPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(base64.StdEncoding.EncodeToString(key)), 0600); err != nil {
		return fmt.Errorf("write preferences key: %w", err)
	}
	if err := os.Rename(tmp, p.keyPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install preferences key: %w", err)
	}
	return nil
}

// KeyExists reports whether the key file is present.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

func decodeKey(raw []byte) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: preferences key is not base64", domain.ErrDataCorruption)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: preferences key has %d bytes", domain.ErrDataCorruption, len(key))
	}
	return key, nil
}

// GenerateKey draws a fresh passphrase from crypto/rand.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate preferences key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the stored passphrase, creating it the first time the
// encrypted store is opened.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

var _ domain.KeyProvider = (*FileKeyProvider)(nil)
