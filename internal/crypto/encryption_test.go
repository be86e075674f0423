package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	key := make([]byte, 32)
	rand.Read(key)
	os.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))

	if err := InitEncryption(); err != nil {
		panic("failed to initialize encryption for tests: " + err.Error())
	}

	code := m.Run()
	os.Unsetenv("ENCRYPTION_KEY")
	os.Exit(code)
}

// withKey swaps the master key for one subtest and restores it after.
func withKey(t *testing.T, key []byte) {
	t.Helper()
	prev := masterKey
	masterKey = key
	t.Cleanup(func() { masterKey = prev })
}

func TestEncryptDecrypt(t *testing.T) {
	t.Run("Should round-trip a token", func(t *testing.T) {
		sealed, err := Encrypt("cs_live_4f8a2d91b6e3")
		require.NoError(t, err)
		assert.NotEqual(t, "cs_live_4f8a2d91b6e3", sealed)

		plain, err := Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, "cs_live_4f8a2d91b6e3", plain)
	})

	t.Run("Should seal the same plaintext differently each time", func(t *testing.T) {
		first, err := Encrypt("cs_live_token123")
		require.NoError(t, err)
		second, err := Encrypt("cs_live_token123")
		require.NoError(t, err)

		// Fresh nonce per call
		assert.NotEqual(t, first, second)

		for _, sealed := range []string{first, second} {
			plain, err := Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, "cs_live_token123", plain)
		}
	})

	t.Run("Should reject input that is not base64", func(t *testing.T) {
		_, err := Decrypt("invalid-base64-data!!!")
		assert.ErrorContains(t, err, "failed to decode base64")
	})

	t.Run("Should reject sealed values shorter than a nonce", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte("short"))
		_, err := Decrypt(short)
		assert.ErrorContains(t, err, "ciphertext too short")
	})

	t.Run("Should reject a tampered sealed value", func(t *testing.T) {
		sealed, err := Encrypt("cs_live_tamperme")
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(sealed)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff

		_, err = Decrypt(base64.StdEncoding.EncodeToString(raw))
		assert.ErrorContains(t, err, "failed to decrypt")
	})

	t.Run("Should handle empty and awkward plaintexts", func(t *testing.T) {
		for _, plaintext := range []string{"", "t0ken!#$%^&*(){}[]|\\:;<>,.?/~`", string(make([]byte, 64*1024))} {
			sealed, err := Encrypt(plaintext)
			require.NoError(t, err)

			plain, err := Decrypt(sealed)
			require.NoError(t, err)
			assert.Equal(t, plaintext, plain)
		}
	})

	t.Run("Should fail both directions without a key", func(t *testing.T) {
		withKey(t, nil)

		_, err := Encrypt("test")
		assert.ErrorContains(t, err, "encryption not initialized")
		_, err = Decrypt("test")
		assert.ErrorContains(t, err, "encryption not initialized")
		assert.False(t, IsInitialized())
	})
}

func TestTokenHelpers(t *testing.T) {
	t.Run("Should round-trip through the token wrappers", func(t *testing.T) {
		sealed, err := EncryptToken("cs_workspace_token")
		require.NoError(t, err)
		assert.NotEqual(t, "cs_workspace_token", sealed)

		token, err := DecryptToken(sealed)
		require.NoError(t, err)
		assert.Equal(t, "cs_workspace_token", token)
	})
}

func TestDeriveKey(t *testing.T) {
	t.Run("Should use a base64 32-byte key as-is", func(t *testing.T) {
		raw := make([]byte, 32)
		rand.Read(raw)

		key := deriveKey(base64.StdEncoding.EncodeToString(raw))
		assert.Equal(t, raw, key)
	})

	t.Run("Should hash a passphrase to 32 bytes", func(t *testing.T) {
		key := deriveKey("correct horse battery staple")
		assert.Len(t, key, 32)
		assert.Equal(t, key, deriveKey("correct horse battery staple"), "Derivation is deterministic")
	})
}

func TestInitEncryption(t *testing.T) {
	t.Run("Should prefer the environment variable", func(t *testing.T) {
		withKey(t, nil)
		t.Setenv("ENCRYPTION_KEY", "env-provided-passphrase")

		require.NoError(t, InitEncryption())
		assert.True(t, IsInitialized())
		assert.Len(t, masterKey, 32)
	})
}
