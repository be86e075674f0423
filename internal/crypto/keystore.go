package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/zalando/go-keyring"
)

// Keyring coordinates for the generated master key.
const (
	keyringService = "contentstudio"
	keyringUser    = "master-key"
)

// GenerateOrLoadKey returns the 32-byte master key from the OS keyring,
// creating and storing a fresh one on first use.
func GenerateOrLoadKey() ([]byte, error) {
	stored, err := keyring.Get(keyringService, keyringUser)
	if err == nil && stored != "" {
		return []byte(stored), nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Printf("WARNING: keyring read failed: %v", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	if err := keyring.Set(keyringService, keyringUser, string(key)); err != nil {
		// Headless Linux without a keyring daemon lands here. Tokens
		// saved under this key need re-entry after a restart.
		if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
			return nil, fmt.Errorf("keyring storage required on %s: %w", runtime.GOOS, err)
		}
		log.Printf("WARNING: failed to store master key in keyring: %v", err)
		log.Printf("WARNING: a new key will be generated on next launch")
	}

	return key, nil
}

// DeleteKey removes the master key from the keyring, for reset flows.
func DeleteKey() error {
	return keyring.Delete(keyringService, keyringUser)
}
