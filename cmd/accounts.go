package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gfz-dataservices/grobi/secrets"
)

var (
	accountUsername string
	accountTestAPI  bool
	accountNoVerify bool

	dbHost string
	dbPort int
	dbName string
	dbUser string
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage DataCite accounts and the database connection",
	Long: `Manage stored DataCite accounts.

Account metadata lives in accounts.yaml in the configuration directory;
passwords are kept in the system keyring. The password is read from
GROBI_PASSWORD or prompted for.

Examples:
  grobi accounts add "GFZ Test" -u XUVM.KDVJHQ --test
  grobi accounts list
  grobi accounts use "GFZ Test"
  grobi accounts db set --host db.gfz.de --name sumario-pmd --user grobi`,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add <display-name>",
	Short: "Store a new account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsAdd,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountsList,
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <account>",
	Short: "Delete an account and its password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := openAccounts()
		if err != nil {
			return err
		}
		acct, err := accounts.Find(args[0])
		if err != nil {
			return err
		}
		if err := accounts.Delete(acct.ID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Konto %s gelöscht\n", acct.DisplayName)
		if cfg.ForgetAccount(acct.ID, acct.DisplayName) {
			return cfg.Save()
		}
		return nil
	},
}

var accountsUseCmd = &cobra.Command{
	Use:   "use <account>",
	Short: "Select the default account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := openAccounts()
		if err != nil {
			return err
		}
		acct, err := accounts.Find(args[0])
		if err != nil {
			return err
		}
		if err := accounts.SetLastUsed(acct.ID); err != nil {
			return err
		}
		cfg.LastAccount = acct.ID
		return cfg.Save()
	},
}

var accountsRenameCmd = &cobra.Command{
	Use:   "rename <account> <new-name>",
	Short: "Change the display name of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := openAccounts()
		if err != nil {
			return err
		}
		acct, err := accounts.Find(args[0])
		if err != nil {
			return err
		}
		return accounts.Rename(acct.ID, args[1])
	},
}

var accountsDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Configure the SUMARIOPMD database connection",
}

var accountsDBSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store connection settings and password, then test the connection",
	Args:  cobra.NoArgs,
	RunE:  runDBSet,
}

var accountsDBClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Disable the database and forget its password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := cfg.Database
		if db.Configured() {
			err := secrets.KeyringStore{Service: secrets.DatabaseService}.Delete(secrets.DatabaseKey(db.Host, db.Name, db.User))
			if err != nil && !errors.Is(err, secrets.ErrNotFound) {
				return err
			}
		}
		cfg.Database.Enabled = false
		return cfg.Save()
	},
}

func init() {
	accountsAddCmd.Flags().StringVarP(&accountUsername, "username", "u", "", "DataCite repository id (required)")
	accountsAddCmd.Flags().BoolVar(&accountTestAPI, "test", false, "Use the DataCite test API")
	accountsAddCmd.Flags().BoolVar(&accountNoVerify, "no-verify", false, "Store without checking the credentials")
	_ = accountsAddCmd.MarkFlagRequired("username")

	accountsDBSetCmd.Flags().StringVar(&dbHost, "host", "", "Database host (required)")
	accountsDBSetCmd.Flags().IntVar(&dbPort, "port", 3306, "Database port")
	accountsDBSetCmd.Flags().StringVar(&dbName, "name", "sumario-pmd", "Database name")
	accountsDBSetCmd.Flags().StringVar(&dbUser, "user", "", "Database user (required)")
	_ = accountsDBSetCmd.MarkFlagRequired("host")
	_ = accountsDBSetCmd.MarkFlagRequired("user")

	accountsDBCmd.AddCommand(accountsDBSetCmd, accountsDBClearCmd)
	accountsCmd.AddCommand(accountsAddCmd, accountsListCmd, accountsRemoveCmd, accountsUseCmd, accountsRenameCmd, accountsDBCmd)
}

// readPassword takes GROBI_PASSWORD, a hidden prompt on a terminal, or a
// line from stdin.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv("GROBI_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	password, err := readPassword("DataCite-Passwort: ")
	if err != nil {
		return err
	}
	apiType := secrets.APIProduction
	if accountTestAPI {
		apiType = secrets.APITest
	}

	if !accountNoVerify {
		client := clientFor(accountUsername, password, accountTestAPI)
		fmt.Fprintf(os.Stderr, "Prüfe Zugangsdaten bei %s...\n", client.BaseURL())
		if err := client.CheckCredentials(cmd.Context()); err != nil {
			return err
		}
	}

	accounts, err := openAccounts()
	if err != nil {
		return err
	}
	id, err := accounts.Add(args[0], accountUsername, password, apiType)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Konto %s gespeichert (%s)\n", args[0], id)
	return nil
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	accounts, err := openAccounts()
	if err != nil {
		return err
	}
	last, _ := accounts.LastUsed()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tUSERNAME\tAPI\tID")
	for _, a := range accounts.List() {
		marker := ""
		if a.ID == last.ID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, a.DisplayName, a.Username, a.APIType, a.ID)
	}
	return tw.Flush()
}

func runDBSet(cmd *cobra.Command, args []string) error {
	password, err := readPassword("Datenbank-Passwort: ")
	if err != nil {
		return err
	}
	key := secrets.DatabaseKey(dbHost, dbName, dbUser)
	if err := (secrets.KeyringStore{Service: secrets.DatabaseService}).Set(key, password); err != nil {
		return err
	}

	cfg.Database.Enabled = true
	cfg.Database.Host = dbHost
	cfg.Database.Port = dbPort
	cfg.Database.Name = dbName
	cfg.Database.User = dbUser

	s, err := openStore(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.Close()
	version, err := s.Ping(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Verbindung erfolgreich (MySQL %s)\n", version)
	return cfg.Save()
}
