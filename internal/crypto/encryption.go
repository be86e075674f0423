package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// masterKey seals workspace API tokens before they reach the database.
var masterKey []byte

// InitEncryption resolves the master key. ENCRYPTION_KEY takes
// precedence when set; it accepts a base64-encoded 32-byte key or any
// passphrase, which is SHA-256 derived into one. Without the variable
// the key is loaded from, or created in, the OS keyring.
func InitEncryption() error {
	if raw := os.Getenv("ENCRYPTION_KEY"); raw != "" {
		masterKey = deriveKey(raw)
		return nil
	}

	key, err := GenerateOrLoadKey()
	if err != nil {
		return fmt.Errorf("failed to initialize encryption from keystore: %w", err)
	}
	masterKey = key
	return nil
}

// deriveKey turns an ENCRYPTION_KEY value into exactly 32 bytes. A
// base64 string that decodes to 32 bytes is used as-is, anything else
// is hashed.
func deriveKey(raw string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded
	}
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

// IsInitialized reports whether a master key is loaded.
func IsInitialized() bool {
	return len(masterKey) > 0
}

// sealer builds the AES-256-GCM AEAD both directions share.
func sealer() (cipher.AEAD, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("encryption not initialized")
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func Encrypt(plaintext string) (string, error) {
	gcm, err := sealer()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(sealedB64 string) (string, error) {
	gcm, err := sealer()
	if err != nil {
		return "", err
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptToken seals a workspace API token for storage.
func EncryptToken(token string) (string, error) {
	return Encrypt(token)
}

// DecryptToken recovers a workspace API token sealed by EncryptToken.
func DecryptToken(sealed string) (string, error) {
	return Decrypt(sealed)
}
