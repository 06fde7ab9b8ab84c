package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	SetConfigDir(t.TempDir())
	t.Cleanup(func() { SetConfigDir("") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(filepath.Join(dir, "nested"))
	t.Cleanup(func() { SetConfigDir("") })

	cfg := Default()
	cfg.LastAccount = "b3c1"
	cfg.Database = Database{Enabled: true, Host: "db.example.org", Port: 3307, Name: "sumario-pmd", User: "grobi"}
	cfg.DataCite.Timeout = 45 * time.Second
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("splitter:\n  level: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Splitter.Level != 3 {
		t.Errorf("Splitter.Level = %d, want 3", cfg.Splitter.Level)
	}
	if cfg.DataCite.PageSize != 100 {
		t.Errorf("DataCite.PageSize = %d, want default 100", cfg.DataCite.PageSize)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "datacite: [unclosed"},
		{"level out of range", "splitter:\n  level: 7\n"},
		{"zero concurrency", "link_check:\n  concurrency: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("LoadFile() error = nil, want error")
			}
		})
	}
}

func TestDatabaseConfigured(t *testing.T) {
	if (Database{Host: "h", Name: "n"}).Configured() {
		t.Error("Configured() = true without user")
	}
	if !(Database{Host: "h", Name: "n", User: "u"}).Configured() {
		t.Error("Configured() = false for complete settings")
	}
}

func TestForgetAccount(t *testing.T) {
	tests := []struct {
		name        string
		lastAccount string
		wantChanged bool
		wantLast    string
	}{
		{"by id", "id-1", true, ""},
		{"by display name", "gfz test", true, ""},
		{"other account", "id-2", false, "id-2"},
		{"none selected", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LastAccount = tt.lastAccount
			if got := cfg.ForgetAccount("id-1", "GFZ Test"); got != tt.wantChanged {
				t.Errorf("ForgetAccount() = %v, want %v", got, tt.wantChanged)
			}
			if cfg.LastAccount != tt.wantLast {
				t.Errorf("LastAccount = %q, want %q", cfg.LastAccount, tt.wantLast)
			}
		})
	}
}
