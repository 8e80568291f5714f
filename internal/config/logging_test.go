package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogFilePrunesOldest(t *testing.T) {
	dir := t.TempDir()

	for _, stamp := range []string{"2000-01-01T00-00-00", "2000-01-02T00-00-00", "2000-01-03T00-00-00"} {
		name := filepath.Join(dir, logFilePrefix+stamp+".log")
		if err := os.WriteFile(name, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	// A foreign file must survive pruning.
	foreign := filepath.Join(dir, "other.log")
	if err := os.WriteFile(foreign, nil, 0644); err != nil {
		t.Fatal(err)
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("SetupLogFile: %v", err)
	}
	defer f.Close()

	if base := filepath.Base(f.Name()); !strings.HasPrefix(base, logFilePrefix) {
		t.Errorf("log file name = %q", base)
	}

	kept, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"*.log"))
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %d files (%v), want 2", len(kept), kept)
	}
	for _, k := range kept {
		if strings.Contains(k, "2000-01-01") || strings.Contains(k, "2000-01-02") {
			t.Errorf("old file survived pruning: %s", k)
		}
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file removed: %v", err)
	}
}
