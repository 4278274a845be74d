package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "tasys"

// TokenKey is the keyring entry holding the task API bearer token.
const TokenKey = "api-token"

// TokenEnv overrides the keyring token when set.
const TokenEnv = "TASYS_API_TOKEN"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/tasys/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("tasys-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: filepath.Join(serviceName, key),
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring. A missing
// key is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Token returns the API token: TASYS_API_TOKEN when set, else the keyring
// entry. An absent token is not an error; the API may be unauthenticated.
func Token() (string, error) {
	if v := os.Getenv(TokenEnv); v != "" {
		return v, nil
	}

	token, err := Get(TokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return token, err
}

// SetToken stores the API token, or removes it when token is empty.
func SetToken(token string) error {
	if token == "" {
		return Delete(TokenKey)
	}
	return Set(TokenKey, token)
}
