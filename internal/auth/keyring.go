package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// KeyringStore keeps records in the OS credential store
type KeyringStore struct {
	open func() (keyring.Keyring, error)
}

// NewKeyringStore opens the system keyring lazily on each access
func NewKeyringStore(serviceName, fileDir string) *KeyringStore {
	return &KeyringStore{open: func() (keyring.Keyring, error) {
		ring, err := keyring.Open(keyring.Config{
			ServiceName: serviceName,
			AllowedBackends: []keyring.BackendType{
				keyring.KeychainBackend,
				keyring.SecretServiceBackend,
				keyring.WinCredBackend,
				keyring.PassBackend,
				keyring.FileBackend,
			},
			FileDir:                  fileDir,
			FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
			KeychainTrustApplication: true,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
		return ring, nil
	}}
}

// NewKeyringStoreWith uses an already opened keyring
func NewKeyringStoreWith(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func (s *KeyringStore) Load(_ context.Context, key string) (*TokenRecord, error) {
	ring, err := s.open()
	if err != nil {
		return nil, err
	}
	item, err := ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	var record TokenRecord
	if err := json.Unmarshal(item.Data, &record); err != nil {
		return nil, fmt.Errorf("parsing credential %q: %w", key, err)
	}
	return &record, nil
}

func (s *KeyringStore) Save(_ context.Context, key string, record TokenRecord) error {
	ring, err := s.open()
	if err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: data, Label: "mailforward token"}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

func (s *KeyringStore) Delete(_ context.Context, key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
