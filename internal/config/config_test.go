package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err == nil {
		t.Fatalf("expected error for explicit missing config file, got %+v", cfg)
	}

	chdir(t, t.TempDir())
	cfg, err = Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "continuous" || cfg.PageSize != 50 || cfg.RateCeiling != 40 {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
	if cfg.RateCooldown != time.Second || cfg.PollInterval != 10*time.Second {
		t.Fatalf("duration defaults mismatch: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Groups, DefaultGroups) {
		t.Fatalf("groups mismatch: %v", cfg.Groups)
	}
}

func TestLoadEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indexer.yaml")
	data := []byte("rpc: https://fullnode.example\nmarket-id: \"0x02\"\npage-size: 25\ngroups:\n  - liquidation\n  - lending\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INDEXER_PG_DSN", "postgres://u:p@localhost/db")
	t.Setenv("INDEXER_RATE_COOLDOWN", "2s")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://fullnode.example" || cfg.MarketID != "0x02" || cfg.PageSize != 25 {
		t.Fatalf("file values mismatch: %+v", cfg)
	}
	if cfg.PGDSN != "postgres://u:p@localhost/db" || cfg.RateCooldown != 2*time.Second {
		t.Fatalf("env values mismatch: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Groups, []string{"liquidation", "lending"}) {
		t.Fatalf("groups mismatch: %v", cfg.Groups)
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	chdir(t, t.TempDir())
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("mode", "continuous", "")
	flags.String("groups", "", "")
	if err := flags.Parse([]string{"--mode=backfill", "--groups= flash_loans , lending,"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "backfill" {
		t.Fatalf("mode mismatch: %s", cfg.Mode)
	}
	if !reflect.DeepEqual(cfg.Groups, []string{"flash_loans", "lending"}) {
		t.Fatalf("groups mismatch: %v", cfg.Groups)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		RPCURL:          "https://fullnode.example",
		PGDSN:           "postgres://localhost/db",
		ProtocolPackage: "0x01",
		MarketID:        "0x02",
		PageSize:        50,
		PollInterval:    time.Second,
		Groups:          DefaultGroups,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	missing := valid
	missing.MarketID = ""
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected error for missing market id")
	}

	unknown := valid
	unknown.Groups = []string{"liquidation", "swaps"}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected error for unknown group")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
