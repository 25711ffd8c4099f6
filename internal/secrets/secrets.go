// Package secrets keeps credentials in the operating system's keyring
// (Windows Credential Manager, macOS Keychain, Secret Service).
package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

// ServiceName is the keyring service the tool's items live under.
const ServiceName = "assetkit"

// SnipeITAPIKey is the item holding the Snipe-IT API key.
const SnipeITAPIKey = "snipeit-api-key"

// ErrNotFound is returned when no item is stored under a key.
var ErrNotFound = errors.New("secret not found")

// Store reads and writes secrets.
type Store struct {
	ring keyring.Keyring
}

// Open opens the default keyring backend for this platform.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      ServiceName,
		WinCredPrefix:    ServiceName,
		KeychainName:     "login",
		FileDir:          "~/.assetkit/keys",
		FilePasswordFunc: filePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return NewStore(ring), nil
}

// filePassword unlocks the encrypted file backend, used only when no OS
// keyring is available.
func filePassword(string) (string, error) {
	if pw := os.Getenv("ASSETKIT_KEYRING_PASSWORD"); pw != "" {
		return pw, nil
	}
	return "", errors.New("set ASSETKIT_KEYRING_PASSWORD to use the file keyring")
}

// NewStore wraps an open keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Get returns the secret stored under key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keyring: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       "AssetKit " + key,
		Description: "AssetKit credential",
	})
	if err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", key, err)
	}
	return nil
}

// Remove deletes the secret under key. Removing a missing key is not an
// error.
func (s *Store) Remove(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove %s from keyring: %w", key, err)
	}
	return nil
}

// Resolve returns override when set, otherwise the stored secret. A missing
// secret yields "" without error.
func (s *Store) Resolve(key, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
