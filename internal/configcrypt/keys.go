// Package configcrypt encrypts the sensitive fields of config documents
// at rest and checks whole-document integrity. Keys live in an
// owner-only file and are generated on first use.
package configcrypt

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	keySize     = 32
	keyFileMode = 0o600
)

// Keeper owns the key file lifecycle: generate on first use, cache after
// first load, back up on rotation.
type Keeper struct {
	path string

	mu  sync.Mutex
	key []byte
}

// NewKeeper returns a Keeper bound to the given key file path.
func NewKeeper(path string) *Keeper { return &Keeper{path: path} }

// DefaultKeyPath resolves the per-user key file location.
func DefaultKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("configcrypt: resolve home: %w", err)
	}
	return filepath.Join(home, ".depgate", "secret.key"), nil
}

// Key returns the encryption key, generating and persisting a fresh one
// if the key file does not exist yet. Loaded once, cached thereafter.
func (k *Keeper) Key() ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keyLocked()
}

func (k *Keeper) keyLocked() ([]byte, error) {
	if k.key != nil {
		return k.key, nil
	}
	data, err := os.ReadFile(k.path)
	if err == nil {
		if len(data) != keySize {
			return nil, fmt.Errorf("configcrypt: key file holds %d bytes, want %d", len(data), keySize)
		}
		k.key = data
		return k.key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("configcrypt: read key file: %w", err)
	}
	key, err := freshKey()
	if err != nil {
		return nil, err
	}
	if err := k.writeLocked(key); err != nil {
		return nil, err
	}
	k.key = key
	return k.key, nil
}

// Rotate backs up the current key file and installs a fresh key. Callers
// must decrypt anything held under the old key before calling this.
// Returns the backup file path.
func (k *Keeper) Rotate() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, err := k.keyLocked(); err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.bak.%d", k.path, time.Now().Unix())
	if err := os.Rename(k.path, backup); err != nil {
		return "", fmt.Errorf("configcrypt: back up key file: %w", err)
	}
	key, err := freshKey()
	if err != nil {
		return "", err
	}
	if err := k.writeLocked(key); err != nil {
		return "", err
	}
	k.key = key
	return backup, nil
}

func (k *Keeper) writeLocked(key []byte) error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return fmt.Errorf("configcrypt: create key dir: %w", err)
	}
	if err := os.WriteFile(k.path, key, keyFileMode); err != nil {
		return fmt.Errorf("configcrypt: write key file: %w", err)
	}
	// WriteFile keeps the old mode on an existing file.
	if err := os.Chmod(k.path, keyFileMode); err != nil {
		return fmt.Errorf("configcrypt: restrict key file: %w", err)
	}
	return nil
}

func freshKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("configcrypt: generate key: %w", err)
	}
	return key, nil
}
