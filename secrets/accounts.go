package secrets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// API endpoints an account can target.
const (
	APITest       = "test"
	APIProduction = "production"
)

const maxDisplayName = 100

// ErrAccountNotFound is returned for an unknown account id or name.
var ErrAccountNotFound = errors.New("account not found")

// Account is the non-secret part of a DataCite login.
type Account struct {
	ID           string    `yaml:"id"`
	DisplayName  string    `yaml:"display_name"`
	Username     string    `yaml:"username"`
	APIType      string    `yaml:"api_type"`
	CreatedAt    time.Time `yaml:"created_at"`
	LastModified time.Time `yaml:"last_modified"`
}

// TestAPI reports whether the account targets the DataCite test system.
func (a Account) TestAPI() bool { return a.APIType == APITest }

type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
	LastUsed string    `yaml:"last_used,omitempty"`
}

// Accounts manages stored DataCite accounts. Metadata is kept in a YAML
// file, passwords in a Store keyed by account id.
type Accounts struct {
	path    string
	secrets Store
	file    accountsFile
	now     func() time.Time
}

// OpenAccounts loads the account file at path. A missing file is an empty
// account list.
func OpenAccounts(path string, secrets Store) (*Accounts, error) {
	a := &Accounts{path: path, secrets: secrets, now: time.Now}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return a, nil
		}
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	if err := yaml.Unmarshal(data, &a.file); err != nil {
		return nil, fmt.Errorf("parsing accounts %s: %w", path, err)
	}
	return a, nil
}

// Add stores a new account and returns its id.
func (a *Accounts) Add(displayName, username, password, apiType string) (string, error) {
	displayName = strings.TrimSpace(displayName)
	username = strings.TrimSpace(username)
	switch {
	case displayName == "":
		return "", errors.New("display name cannot be empty")
	case username == "":
		return "", errors.New("username cannot be empty")
	case password == "":
		return "", errors.New("password cannot be empty")
	case apiType != APITest && apiType != APIProduction:
		return "", fmt.Errorf("invalid api type %q, must be %q or %q", apiType, APITest, APIProduction)
	}
	if len([]rune(displayName)) > maxDisplayName {
		displayName = string([]rune(displayName)[:maxDisplayName])
	}

	id := uuid.NewString()
	if err := a.secrets.Set(id, password); err != nil {
		return "", err
	}
	now := a.now().UTC()
	a.file.Accounts = append(a.file.Accounts, Account{
		ID:           id,
		DisplayName:  displayName,
		Username:     username,
		APIType:      apiType,
		CreatedAt:    now,
		LastModified: now,
	})
	if err := a.save(); err != nil {
		a.file.Accounts = a.file.Accounts[:len(a.file.Accounts)-1]
		if derr := a.secrets.Delete(id); derr != nil {
			slog.Warn("could not remove password of unsaved account", "account", displayName, "err", derr)
		}
		return "", err
	}
	slog.Info("account saved", "account", displayName, "username", username, "api", apiType)
	return id, nil
}

// List returns all accounts sorted by display name.
func (a *Accounts) List() []Account {
	out := append([]Account(nil), a.file.Accounts...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}

// Find resolves an account by id or, case-insensitively, display name.
func (a *Accounts) Find(ref string) (Account, error) {
	for _, acc := range a.file.Accounts {
		if acc.ID == ref {
			return acc, nil
		}
	}
	for _, acc := range a.file.Accounts {
		if strings.EqualFold(acc.DisplayName, ref) {
			return acc, nil
		}
	}
	return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, ref)
}

// Password returns the stored password of an account.
func (a *Accounts) Password(id string) (string, error) {
	if _, err := a.Find(id); err != nil {
		return "", err
	}
	pw, err := a.secrets.Get(id)
	if err != nil {
		return "", fmt.Errorf("password of account %s: %w", id, err)
	}
	return pw, nil
}

// Delete removes an account and its password. A password already missing
// from the store is not an error.
func (a *Accounts) Delete(id string) error {
	i := a.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err := a.secrets.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	a.file.Accounts = append(a.file.Accounts[:i], a.file.Accounts[i+1:]...)
	if a.file.LastUsed == id {
		a.file.LastUsed = ""
	}
	return a.save()
}

// Rename changes the display name of an account.
func (a *Accounts) Rename(id, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.New("display name cannot be empty")
	}
	i := a.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	a.file.Accounts[i].DisplayName = displayName
	a.file.Accounts[i].LastModified = a.now().UTC()
	return a.save()
}

// LastUsed returns the most recently used account, if it still exists.
func (a *Accounts) LastUsed() (Account, bool) {
	if a.file.LastUsed == "" {
		return Account{}, false
	}
	acc, err := a.Find(a.file.LastUsed)
	return acc, err == nil
}

// SetLastUsed records id as the most recently used account.
func (a *Accounts) SetLastUsed(id string) error {
	if a.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	a.file.LastUsed = id
	return a.save()
}

func (a *Accounts) index(id string) int {
	for i, acc := range a.file.Accounts {
		if acc.ID == id {
			return i
		}
	}
	return -1
}

func (a *Accounts) save() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0700); err != nil {
		return fmt.Errorf("creating accounts directory: %w", err)
	}
	data, err := yaml.Marshal(&a.file)
	if err != nil {
		return fmt.Errorf("marshaling accounts: %w", err)
	}
	if err := os.WriteFile(a.path, data, 0600); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	return nil
}
