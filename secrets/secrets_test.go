package secrets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("k", "v"))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete("k"))
	assert.ErrorIs(t, s.Delete("k"), ErrNotFound)
}

func TestMemoryStoreZeroValue(t *testing.T) {
	var s MemoryStore
	require.NoError(t, s.Set("k", "v"))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestAccountsAddRemovesPasswordWhenSaveFails(t *testing.T) {
	a, store, path := newAccounts(t)
	// a directory in place of the file makes the write fail
	require.NoError(t, os.Mkdir(path, 0o700))

	_, err := a.Add("GFZ", "TIB.GFZ", "pw", APIProduction)
	require.Error(t, err)
	assert.Empty(t, store.m)
	assert.Empty(t, a.List())
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	s := KeyringStore{Service: DatabaseService}
	key := DatabaseKey("db.example.org", "sumario-pmd", "grobi")

	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(key, "secret"))
	v, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "secret", v)

	require.NoError(t, s.Delete(key))
	assert.ErrorIs(t, s.Delete(key), ErrNotFound)
}

func newAccounts(t *testing.T) (*Accounts, *MemoryStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	store := NewMemoryStore()
	a, err := OpenAccounts(path, store)
	require.NoError(t, err)
	return a, store, path
}

func TestAccountsAddAndReload(t *testing.T) {
	a, store, path := newAccounts(t)

	id, err := a.Add("GFZ Production", "TIB.GFZ", "pw1", APIProduction)
	require.NoError(t, err)
	_, err = a.Add("a test account", "XTEST.GFZ", "pw2", APITest)
	require.NoError(t, err)

	reloaded, err := OpenAccounts(path, store)
	require.NoError(t, err)
	accounts := reloaded.List()
	require.Len(t, accounts, 2)
	assert.Equal(t, "a test account", accounts[0].DisplayName)
	assert.True(t, accounts[0].TestAPI())

	acc, err := reloaded.Find("gfz production")
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)
	assert.Equal(t, "TIB.GFZ", acc.Username)

	pw, err := reloaded.Password(id)
	require.NoError(t, err)
	assert.Equal(t, "pw1", pw)
}

func TestAccountsAddValidation(t *testing.T) {
	tests := []struct {
		name                        string
		display, user, pass, apiTyp string
	}{
		{"empty display name", " ", "u", "p", APITest},
		{"empty username", "n", "", "p", APITest},
		{"empty password", "n", "u", "", APITest},
		{"bad api type", "n", "u", "p", "staging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, store, _ := newAccounts(t)
			_, err := a.Add(tt.display, tt.user, tt.pass, tt.apiTyp)
			assert.Error(t, err)
			assert.Empty(t, a.List())
			assert.Empty(t, store.m)
		})
	}
}

func TestAccountsRenameDeleteLastUsed(t *testing.T) {
	a, store, _ := newAccounts(t)
	later := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	id, err := a.Add("Old", "TIB.GFZ", "pw", APITest)
	require.NoError(t, err)

	a.now = func() time.Time { return later }
	require.NoError(t, a.Rename(id, "New"))
	acc, err := a.Find(id)
	require.NoError(t, err)
	assert.Equal(t, "New", acc.DisplayName)
	assert.Equal(t, later, acc.LastModified)

	require.NoError(t, a.SetLastUsed(id))
	last, ok := a.LastUsed()
	require.True(t, ok)
	assert.Equal(t, id, last.ID)

	require.NoError(t, a.Delete(id))
	_, ok = a.LastUsed()
	assert.False(t, ok)
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, a.Delete(id), ErrAccountNotFound)
	assert.ErrorIs(t, a.SetLastUsed("nope"), ErrAccountNotFound)
}
