package sanitize

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadListsMissingFileFallsBack(t *testing.T) {
	lists, err := LoadLists(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lists.AllowedHosts) != 3 {
		t.Errorf("expected default hosts, got %v", lists.AllowedHosts)
	}
}

func TestLoadListsPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sanitize.yaml")
	content := "allowed_hosts:\n  - registry.internal.example\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	lists, err := LoadLists(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lists.AllowedHosts) != 1 || lists.AllowedHosts[0] != "registry.internal.example" {
		t.Errorf("expected overridden hosts, got %v", lists.AllowedHosts)
	}
	// Untouched fields inherit defaults.
	if len(lists.DenySubstrings) == 0 {
		t.Error("expected default deny substrings to survive a partial override")
	}
}

func TestLoadListsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sanitize.yaml")
	if err := os.WriteFile(path, []byte("allowed_hosts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLists(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestReloaderSwapsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sanitize.yaml")

	swapped := make(chan Lists, 1)
	r, err := NewReloader(path, func(l Lists) { swapped <- l })
	if err != nil {
		t.Fatal(err)
	}
	if got := len(r.Validator().Lists().AllowedHosts); got != 3 {
		t.Fatalf("expected defaults before write, got %d hosts", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Watch(ctx)

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)
	content := "allowed_hosts:\n  - only.example\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case l := <-swapped:
		if len(l.AllowedHosts) != 1 || l.AllowedHosts[0] != "only.example" {
			t.Errorf("unexpected swapped lists: %v", l.AllowedHosts)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if got := r.Validator().Lists().AllowedHosts; len(got) != 1 {
		t.Errorf("validator not swapped: %v", got)
	}
}
