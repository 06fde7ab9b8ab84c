package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gfz-dataservices/grobi/config"
	"github.com/gfz-dataservices/grobi/datacite"
	"github.com/gfz-dataservices/grobi/secrets"
	"github.com/gfz-dataservices/grobi/store"
)

const accountsFile = "accounts.yaml"

func openAccounts() (*secrets.Accounts, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return secrets.OpenAccounts(filepath.Join(dir, accountsFile), secrets.KeyringStore{Service: secrets.DataCiteService})
}

// resolveAccount picks --account, then the last used account.
func resolveAccount(accounts *secrets.Accounts) (secrets.Account, error) {
	ref := accountRef
	if ref == "" {
		ref = cfg.LastAccount
	}
	if ref != "" {
		return accounts.Find(ref)
	}
	if a, ok := accounts.LastUsed(); ok {
		return a, nil
	}
	return secrets.Account{}, errors.New("no account selected: add one with 'grobi accounts add' or pass --account")
}

// newClient builds a DataCite client for the selected account and marks
// the account as last used.
func newClient() (*datacite.Client, secrets.Account, error) {
	accounts, err := openAccounts()
	if err != nil {
		return nil, secrets.Account{}, err
	}
	acct, err := resolveAccount(accounts)
	if err != nil {
		return nil, secrets.Account{}, err
	}
	password, err := accounts.Password(acct.ID)
	if err != nil {
		return nil, acct, fmt.Errorf("reading password for %s: %w", acct.DisplayName, err)
	}
	if err := accounts.SetLastUsed(acct.ID); err != nil {
		return nil, acct, err
	}
	return clientFor(acct.Username, password, acct.TestAPI()), acct, nil
}

func clientFor(username, password string, testAPI bool) *datacite.Client {
	dc := cfg.DataCite
	return datacite.New(username, password, testAPI,
		datacite.WithHTTPClient(&http.Client{Timeout: dc.Timeout}),
		datacite.WithPageSize(dc.PageSize),
		datacite.WithRateLimit(dc.RateLimit, dc.RateBurst),
		datacite.WithRetries(dc.Retries, dc.RetryDelay),
	)
}

// openStore connects to the configured SUMARIOPMD database. It returns
// nil when the database is not enabled.
func openStore(ctx context.Context, required bool) (*store.Store, error) {
	db := cfg.Database
	if !db.Enabled || !db.Configured() {
		if required {
			return nil, errors.New("database not configured: run 'grobi accounts db set'")
		}
		return nil, nil
	}
	password, err := secrets.KeyringStore{Service: secrets.DatabaseService}.Get(secrets.DatabaseKey(db.Host, db.Name, db.User))
	if err != nil {
		return nil, fmt.Errorf("reading database password: %w", err)
	}
	s, err := store.Open(store.Config{
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Name,
		User:     db.User,
		Password: password,
	}.DSN())
	if err != nil {
		return nil, err
	}
	if _, err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", db.Host, err)
	}
	return s, nil
}

func printProgress(current, total int, message string) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", current, total, message)
}

// confirm asks a yes/no question on stderr.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "j", "ja":
		return true
	}
	return false
}
