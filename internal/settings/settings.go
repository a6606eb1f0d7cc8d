// Package settings owns the credential and toggle document shared by the
// game API client, the periodic jobs and the admin commands.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Flag is a boolean persisted as the strings "true" and "false".
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var b bool
		if berr := json.Unmarshal(data, &b); berr != nil {
			return fmt.Errorf("flag must be \"true\" or \"false\": %w", err)
		}
		*f = Flag(b)
		return nil
	}
	v, err := ParseFlag(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFlag accepts the spellings moderators actually type.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "1", "enable", "enabled":
		return true, nil
	case "false", "off", "no", "0", "disable", "disabled", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag value %q", s)
}

// Document is the persisted settings document.
type Document struct {
	CocEmail    string `json:"cocemail"`
	CocPassword string `json:"cocpassword"`
	CocToken    string `json:"coctoken"`
	BotToken    string `json:"bottoken"`
	Postgres    string `json:"postgresql"`
	UpdateStats Flag   `json:"updateStats"`
	SendPings   Flag   `json:"sendPings"`
	WarRoles    Flag   `json:"warRoles"`
}

// Toggle names accepted by SetFlag.
const (
	KeyUpdateStats = "updateStats"
	KeySendPings   = "sendPings"
	KeyWarRoles    = "warRoles"
)

// ErrUnknownKey is returned for a toggle name the document does not have.
var ErrUnknownKey = errors.New("unknown settings key")

// Store holds the in-memory copy of the document and writes it back on
// every mutation.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  Document
}

// Open loads the document at path. A missing file yields an empty document
// that is created on the first Persist.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory returns a store seeded with doc that persists to path.
func NewMemory(path string, doc Document) *Store {
	return &Store{path: path, doc: doc}
}

// Reload replaces the in-memory document with what is on disk.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.doc = Document{}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Persist writes the whole document to disk through a temp file and rename.
func (s *Store) Persist() error {
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()
	return s.write(doc)
}

func (s *Store) write(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to chmod settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Update applies fn to a copy of the document and persists the result. The
// in-memory document is only replaced once the write succeeded.
func (s *Store) Update(fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// Token returns the current game API token.
func (s *Store) Token() string {
	return s.Snapshot().CocToken
}

// SetToken stores a freshly issued game API token.
func (s *Store) SetToken(token string) error {
	return s.Update(func(d *Document) error {
		d.CocToken = token
		return nil
	})
}

// Credentials returns the developer portal login.
func (s *Store) Credentials() (email, password string) {
	doc := s.Snapshot()
	return doc.CocEmail, doc.CocPassword
}

// Flag reads a toggle by name.
func (s *Store) Flag(key string) (bool, error) {
	doc := s.Snapshot()
	switch key {
	case KeyUpdateStats:
		return bool(doc.UpdateStats), nil
	case KeySendPings:
		return bool(doc.SendPings), nil
	case KeyWarRoles:
		return bool(doc.WarRoles), nil
	}
	return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Enabled reads a toggle, treating unknown keys as off.
func (s *Store) Enabled(key string) bool {
	v, err := s.Flag(key)
	return err == nil && v
}

// SetFlag writes a toggle by name.
func (s *Store) SetFlag(key string, value bool) error {
	return s.Update(func(d *Document) error {
		switch key {
		case KeyUpdateStats:
			d.UpdateStats = Flag(value)
		case KeySendPings:
			d.SendPings = Flag(value)
		case KeyWarRoles:
			d.WarRoles = Flag(value)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		return nil
	})
}

// Keys lists the toggle names.
func Keys() []string {
	return []string{KeyUpdateStats, KeySendPings, KeyWarRoles}
}
