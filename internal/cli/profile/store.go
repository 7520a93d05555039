// Package profile provides CLI-side bookkeeping for named Lockbook profiles.
//
// A profile is just a pointer to a writeable data directory and an API URL;
// the account keys themselves live inside that data directory (see
// pkg/repo). This lets a single `lockbook` binary juggle more than one
// account without any of them ever sharing state.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the directory under XDG_CONFIG_HOME holding the CLI's own config.
	DefaultConfigDir = "lockbook"
	// ConfigFileName is the name of the CLI profile file.
	ConfigFileName = "cli.json"
	// FilePermissions restricts the profile file to the owner.
	FilePermissions = 0600
	// DirPermissions restricts the profile directory to the owner.
	DirPermissions = 0700
)

// ErrNoCurrentProfile indicates no profile is currently selected.
var ErrNoCurrentProfile = errors.New("no current profile set")

// ErrProfileNotFound indicates the requested profile doesn't exist.
var ErrProfileNotFound = errors.New("profile not found")

// Profile points at one account's writeable data directory and server.
type Profile struct {
	DataDir string `json:"data_dir"`
	APIURL  string `json:"api_url"`
}

// Config is the CLI's own small on-disk config, distinct from any account data.
type Config struct {
	CurrentProfile string              `json:"current_profile"`
	Profiles       map[string]*Profile `json:"profiles"`
}

// Store manages the CLI profile file.
type Store struct {
	path   string
	config *Config
}

// NewStore loads (or initializes) the CLI profile store.
func NewStore() (*Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	s := &Store{path: path}
	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			s.config = &Config{Profiles: make(map[string]*Profile)}
		} else {
			return nil, err
		}
	}
	return s, nil
}

func configPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.config = &Config{}
	return json.Unmarshal(data, s.config)
}

func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, FilePermissions)
}

// Current returns the currently selected profile.
func (s *Store) Current() (*Profile, error) {
	if s.config.CurrentProfile == "" {
		return nil, ErrNoCurrentProfile
	}
	p, ok := s.config.Profiles[s.config.CurrentProfile]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// CurrentName returns the name of the currently selected profile.
func (s *Store) CurrentName() string {
	return s.config.CurrentProfile
}

// Get returns a named profile.
func (s *Store) Get(name string) (*Profile, error) {
	p, ok := s.config.Profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// List returns all profile names.
func (s *Store) List() []string {
	names := make([]string, 0, len(s.config.Profiles))
	for name := range s.config.Profiles {
		names = append(names, name)
	}
	return names
}

// Set creates or updates a profile and saves the store.
func (s *Store) Set(name string, p *Profile) error {
	if s.config.Profiles == nil {
		s.config.Profiles = make(map[string]*Profile)
	}
	s.config.Profiles[name] = p
	return s.save()
}

// Use switches the current profile.
func (s *Store) Use(name string) error {
	if _, ok := s.config.Profiles[name]; !ok {
		return ErrProfileNotFound
	}
	s.config.CurrentProfile = name
	return s.save()
}

// Delete removes a profile.
func (s *Store) Delete(name string) error {
	if _, ok := s.config.Profiles[name]; !ok {
		return ErrProfileNotFound
	}
	delete(s.config.Profiles, name)
	if s.config.CurrentProfile == name {
		s.config.CurrentProfile = ""
	}
	return s.save()
}

// ConfigPath returns the path to the CLI's own config file.
func (s *Store) ConfigPath() string {
	return s.path
}
