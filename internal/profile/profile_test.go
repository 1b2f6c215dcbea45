package profile

import (
	"path/filepath"
	"testing"

	"camp-companion/internal/cache"
)

func openTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestEnsureCreatesProfileOnce(t *testing.T) {
	c := openTestCache(t)

	m := NewManager(c)
	p, err := m.Ensure("Jamie")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if p.UserID == "" {
		t.Fatal("Ensure() produced empty user id")
	}
	if p.Name != "Jamie" {
		t.Errorf("Name = %q, want Jamie", p.Name)
	}

	// A second manager over the same cache keeps the identity stable.
	m2 := NewManager(c)
	p2, err := m2.Ensure("Jamie")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if p2.UserID != p.UserID {
		t.Errorf("UserID changed across restarts: %q != %q", p2.UserID, p.UserID)
	}
}

func TestEnsureConfigNameWins(t *testing.T) {
	c := openTestCache(t)

	m := NewManager(c)
	p, err := m.Ensure("Jamie")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	m2 := NewManager(c)
	p2, err := m2.Ensure("Alex")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if p2.Name != "Alex" {
		t.Errorf("Name = %q after config change, want Alex", p2.Name)
	}
	if p2.UserID != p.UserID {
		t.Error("UserID changed when only the name changed")
	}
}

func TestRename(t *testing.T) {
	c := openTestCache(t)

	m := NewManager(c)
	if _, err := m.Ensure("Jamie"); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if _, err := m.Rename("Sam"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got := m.Current().Name; got != "Sam" {
		t.Errorf("Name = %q after rename, want Sam", got)
	}

	// The rename is persisted.
	m2 := NewManager(c)
	p, err := m2.Ensure("")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if p.Name != "Sam" {
		t.Errorf("persisted Name = %q, want Sam", p.Name)
	}
}
