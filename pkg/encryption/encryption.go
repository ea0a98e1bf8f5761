// Package encryption protects stored secrets, such as provider API keys,
// with AES-GCM under a master key held in the keyring.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/erenbertr/op3-sub001/pkg/keyring"
)

const (
	// Keyring service name for secret storage
	KeyringService = "op3-security"
	// Keyring key holding the master encryption key
	MasterKeyName = "secret-master-key"
)

// SecretManager handles encryption and decryption of stored secrets.
// The master key is generated on first use and kept in the keyring, so
// ciphertexts in the database are useless without access to the host.
type SecretManager struct {
	keyringManager *keyring.KeyringManager
}

// NewSecretManager creates a new secret manager
func NewSecretManager() *SecretManager {
	keyringPath := keyring.GetDefaultKeyringPath()
	masterPassword := keyring.GetMasterPasswordFromEnv()
	km := keyring.NewKeyringManager(keyringPath, masterPassword)

	return &SecretManager{
		keyringManager: km,
	}
}

// masterKey retrieves the master key from the keyring, generating and
// storing a fresh one on first use.
func (sm *SecretManager) masterKey() ([]byte, error) {
	stored, err := sm.keyringManager.Get(KeyringService, MasterKeyName)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(stored)
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode stored master key: %w", decodeErr)
		}
		if len(key) != 32 {
			return nil, errors.New("stored master key has wrong length")
		}
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := sm.keyringManager.Set(KeyringService, MasterKeyName, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store master key: %w", err)
	}
	return key, nil
}

// Encrypt encrypts a payload, typically an API key or other sensitive
// string, and returns it base64 encoded for storage.
func (sm *SecretManager) Encrypt(payload string) (string, error) {
	if payload == "" {
		return "", errors.New("payload is required")
	}

	key, err := sm.masterKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(payload), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts an encrypted payload and returns the original string.
func (sm *SecretManager) Decrypt(encryptedPayload string) (string, error) {
	if encryptedPayload == "" {
		return "", errors.New("encrypted payload is required")
	}

	key, err := sm.masterKey()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encryptedPayload)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return string(plaintext), nil
}

// EncryptSecret is a convenience function for encrypting secrets
// This is the function that should be used by other services
func EncryptSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required")
	}

	manager := NewSecretManager()
	return manager.Encrypt(secret)
}

// DecryptSecret is a convenience function for decrypting secrets
// This is the function that should be used by other services
func DecryptSecret(encryptedSecret string) (string, error) {
	if encryptedSecret == "" {
		return "", errors.New("encrypted secret is required")
	}

	manager := NewSecretManager()
	return manager.Decrypt(encryptedSecret)
}

// TestEncryption performs a round-trip to verify the master key works.
func (sm *SecretManager) TestEncryption() error {
	testPayload := "test-encryption-payload"

	encrypted, err := sm.Encrypt(testPayload)
	if err != nil {
		return fmt.Errorf("test encryption failed: %w", err)
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		return fmt.Errorf("test decryption failed: %w", err)
	}

	if decrypted != testPayload {
		return errors.New("test encryption/decryption round-trip failed: decrypted payload does not match original")
	}

	return nil
}
