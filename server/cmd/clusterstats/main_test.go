package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "snapshot": false, "seed": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSeedCmd_RequiresFixture(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"seed"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--fixture") {
		t.Fatalf("Execute: got %v, want missing --fixture error", err)
	}
}

func TestSeedCmd_IntoCatalog(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	fixture := filepath.Join(dir, "fixture.yaml")
	catalogDir := filepath.Join(dir, "catalog")

	cfg := "server:\n  catalog:\n    path: " + catalogDir + "\n    gc_interval: 0s\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	fx := `sources:
  - name: lake
    type: S3
datasets:
  - path: lake.orders
    type: PHYSICAL_DATASET
`
	if err := os.WriteFile(fixture, []byte(fx), 0o600); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"seed", "--config", cfgPath, "--fixture", fixture})
	if err := root.Execute(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := os.Stat(catalogDir); err != nil {
		t.Errorf("catalog directory not created: %v", err)
	}
}
