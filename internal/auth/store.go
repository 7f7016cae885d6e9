package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StoreKey is the entry under which the provider persists its token record
const StoreKey = "auth"

// CredentialStore persists token records. Load returns nil, nil when the key
// has never been saved.
type CredentialStore interface {
	Load(ctx context.Context, key string) (*TokenRecord, error)
	Save(ctx context.Context, key string, record TokenRecord) error
}

// Deleter is implemented by stores that support signing out
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps records for the lifetime of the process
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]TokenRecord
	saves   int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]TokenRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, record TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
	s.saves++
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// FileStore keeps records in a JSON file keyed by entry name
type FileStore struct {
	Path string
}

type fileContents struct {
	Records map[string]TokenRecord `json:"records"`
}

func (s *FileStore) read() (*fileContents, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileContents{Records: map[string]TokenRecord{}}, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if contents.Records == nil {
		contents.Records = map[string]TokenRecord{}
	}
	return &contents, nil
}

func (s *FileStore) write(contents *fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token file: %w", err)
	}
	return os.WriteFile(s.Path, data, 0o600)
}

func (s *FileStore) Load(_ context.Context, key string) (*TokenRecord, error) {
	contents, err := s.read()
	if err != nil {
		return nil, err
	}
	record, ok := contents.Records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *FileStore) Save(_ context.Context, key string, record TokenRecord) error {
	contents, err := s.read()
	if err != nil {
		return err
	}
	contents.Records[key] = record
	return s.write(contents)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	contents, err := s.read()
	if err != nil {
		return err
	}
	delete(contents.Records, key)
	return s.write(contents)
}

// Settings is a string key/value backend such as the state database
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// SettingsStore serializes records into a Settings backend
type SettingsStore struct {
	settings Settings
}

// NewSettingsStore wraps a key/value backend
func NewSettingsStore(settings Settings) *SettingsStore {
	return &SettingsStore{settings: settings}
}

func (s *SettingsStore) Load(ctx context.Context, key string) (*TokenRecord, error) {
	value, ok, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var record TokenRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, fmt.Errorf("failed to parse stored token: %w", err)
	}
	return &record, nil
}

func (s *SettingsStore) Save(ctx context.Context, key string, record TokenRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.settings.SetSetting(ctx, key, string(data))
}

func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	return s.settings.DeleteSetting(ctx, key)
}

// ErrNotDeletable is returned by Forget for stores without a Delete method
var ErrNotDeletable = errors.New("credential store does not support deletion")

// Forget removes the provider's record from a store
func Forget(ctx context.Context, store CredentialStore) error {
	d, ok := store.(Deleter)
	if !ok {
		return ErrNotDeletable
	}
	return d.Delete(ctx, StoreKey)
}
