package encryption

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// KeyBytes is the size of generated and derived keys.
const KeyBytes = 32

// SaltBytes is the recommended salt size for KeyFromPassphrase.
const SaltBytes = 16

// KDF selects the passphrase key-derivation function.
type KDF string

const (
	KDFScrypt KDF = "scrypt"
	KDFArgon2 KDF = "argon2id"
)

// Tunables for key derivation.
func scryptParams() (N, r, p int) { return 1 << 15, 8, 1 }

func argon2Params() (time, memory uint32, threads uint8) { return 1, 64 * 1024, 4 }

// GenerateKey returns a random 256-bit key, hex-encoded.
func GenerateKey() (string, error) {
	key := make([]byte, KeyBytes)
	defer wipe(key)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("encryption: generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// GenerateSalt returns SaltBytes random bytes, hex-encoded.
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("encryption: generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// KeyFromPassphrase derives a hex-encoded 256-bit key from passphrase and a
// hex-encoded salt. The same inputs always give the same key.
func KeyFromPassphrase(passphrase, hexSalt string, kdf KDF) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("encryption: empty passphrase")
	}
	salt, err := hex.DecodeString(hexSalt)
	if err != nil || len(salt) == 0 {
		return "", fmt.Errorf("encryption: invalid salt %q", hexSalt)
	}

	var key []byte
	switch kdf {
	case KDFArgon2:
		t, m, p := argon2Params()
		key = argon2.IDKey([]byte(passphrase), salt, t, m, p, KeyBytes)
	case KDFScrypt, "":
		N, r, p := scryptParams()
		key, err = scrypt.Key([]byte(passphrase), salt, N, r, p, KeyBytes)
		if err != nil {
			return "", fmt.Errorf("encryption: scrypt: %w", err)
		}
	default:
		return "", fmt.Errorf("encryption: unknown kdf %q", kdf)
	}
	defer wipe(key)
	return hex.EncodeToString(key), nil
}

// Fingerprint returns a short hex digest of a hex key, for display.
func Fingerprint(hexKey string) string {
	sum := sha256.Sum256([]byte(hexKey))
	return hex.EncodeToString(sum[:10])
}

// wipe overwrites b with zeros.
func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
