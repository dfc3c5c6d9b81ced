package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	ErrNotFound  = errors.New("credential profile not found")
	ErrDuplicate = errors.New("credential profile already exists")
	ErrDecrypt   = errors.New("failed to decrypt credential store (wrong password?)")
)

type storeFile struct {
	Salt []byte `json:"salt"`
	Data []byte `json:"data"`
}

// FileStore implements Provider with AES-256-GCM encrypted file persistence.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	key      []byte
	salt     []byte
	profiles map[string]Profile
}

// NewFileStore opens or creates an encrypted credential store at the given
// path. A missing file creates a new store with a fresh salt; an existing
// one is decrypted with the provided master password.
func NewFileStore(path string, password []byte) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		profiles: make(map[string]Profile),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			salt, err := generateSalt()
			if err != nil {
				return nil, err
			}
			s.salt = salt
			s.key = deriveKey(password, salt)
			return s, s.save()
		}
		return nil, err
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("corrupt credential store: %w", err)
	}

	s.salt = sf.Salt
	s.key = deriveKey(password, sf.Salt)

	plaintext, err := decrypt(s.key, sf.Data)
	if err != nil {
		return nil, ErrDecrypt
	}

	if err := json.Unmarshal(plaintext, &s.profiles); err != nil {
		return nil, fmt.Errorf("corrupt credential data: %w", err)
	}
	return s, nil
}

// save encrypts and writes the profile map to disk.
func (s *FileStore) save() error {
	plaintext, err := json.Marshal(s.profiles)
	if err != nil {
		return err
	}
	encrypted, err := encrypt(s.key, plaintext)
	if err != nil {
		return err
	}
	sf := storeFile{Salt: s.salt, Data: encrypted}
	data, err := json.Marshal(sf)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// List returns summaries of all stored profiles.
func (s *FileStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]Summary, 0, len(s.profiles))
	for _, p := range s.profiles {
		summaries = append(summaries, p.Summarize())
	}
	return summaries, nil
}

// Get returns the profile with the given name, or ErrNotFound.
func (s *FileStore) Get(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Add stores a new profile. Returns ErrDuplicate if the name already exists.
func (s *FileStore) Add(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.Name]; exists {
		return ErrDuplicate
	}
	s.profiles[p.Name] = p
	return s.save()
}

// Update replaces an existing profile. Returns ErrNotFound if the name does
// not exist.
func (s *FileStore) Update(name string, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[name]; !exists {
		return ErrNotFound
	}
	if name != p.Name {
		delete(s.profiles, name)
	}
	s.profiles[p.Name] = p
	return s.save()
}

// Remove deletes a profile by name. Returns ErrNotFound if it does not exist.
func (s *FileStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[name]; !exists {
		return ErrNotFound
	}
	delete(s.profiles, name)
	return s.save()
}
