// Package session is the client-side SDK for the fieldsale API: a persistent
// expiring store, an unverified token decoder and a session lifecycle manager.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// storedItem pairs a value with an absolute expiry. Every persisted entry
// goes through this wrapper.
type storedItem[T any] struct {
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is a file-backed TTL store with lazy read-time eviction. There is no
// background sweep; an expired entry is deleted on the next read.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session store directory")
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) path(key string) string {
	// Keys are fixed identifiers ("token", "sessionInfo"); the replacer just
	// keeps a stray key from escaping the store directory.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json")
}

// Set persists value under key with a TTL expressed in days.
func (s *Store) Set(key string, value any, ttlDays int) error {
	return s.SetUntil(key, value, s.now().AddDate(0, 0, ttlDays))
}

// SetUntil persists value under key with an explicit absolute expiry. Used
// when an entry is rewritten without extending its original lifetime.
func (s *Store) SetUntil(key string, value any, expiresAt time.Time) error {
	item := storedItem[any]{
		Value:     value,
		ExpiresAt: expiresAt,
	}
	data, err := json.Marshal(item)
	if err != nil {
		return errors.Wrapf(err, "encoding stored item %q", key)
	}
	if err := os.WriteFile(s.path(key), data, 0o600); err != nil {
		return errors.Wrapf(err, "writing stored item %q", key)
	}
	return nil
}

// Get reads key into out. It returns false when the entry is absent, expired
// or unparsable; expired and unparsable entries are deleted on the way out.
func (s *Store) Get(key string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "reading stored item %q", key)
	}

	var item storedItem[json.RawMessage]
	if err := json.Unmarshal(data, &item); err != nil {
		s.Delete(key)
		return false, nil
	}
	if s.now().After(item.ExpiresAt) {
		s.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(item.Value, out); err != nil {
		s.Delete(key)
		return false, nil
	}
	return true, nil
}

// ExpiresAt returns the stored expiry for key, when a live entry exists.
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return time.Time{}, false
	}
	var item storedItem[json.RawMessage]
	if err := json.Unmarshal(data, &item); err != nil {
		return time.Time{}, false
	}
	if s.now().After(item.ExpiresAt) {
		return time.Time{}, false
	}
	return item.ExpiresAt, true
}

// Delete removes key. Missing entries are not an error.
func (s *Store) Delete(key string) {
	_ = os.Remove(s.path(key))
}
