package local

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// storedLogin mirrors what the CLI keeps after a successful login.
type storedLogin struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), ".pyquest", "state")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("NewStore() returned nil")
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_Save_Load(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	original := storedLogin{Token: "tok_abc123", UserID: "u1", DisplayName: "Ada"}
	if err := store.Save("auth", "session", original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var loaded storedLogin
	if err := store.Load("auth", "session", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Token != original.Token {
		t.Errorf("Token = %q; want %q", loaded.Token, original.Token)
	}
	if loaded.DisplayName != original.DisplayName {
		t.Errorf("DisplayName = %q; want %q", loaded.DisplayName, original.DisplayName)
	}
}

func TestStore_Load_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var data storedLogin
	if err := store.Load("auth", "nonexistent", &data); err != ErrNotFound {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	login := storedLogin{Token: "tok"}
	store.Save("auth", "session", login)

	if err := store.Delete("auth", "session"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Load("auth", "session", &login); err != ErrNotFound {
		t.Error("Load() should return ErrNotFound after deletion")
	}

	if err := store.Delete("auth", "session"); err != ErrNotFound {
		t.Errorf("second Delete() error = %v; want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, id := range []string{"python-basics", "python-advanced", "data-structures"} {
		store.Save("courses", id, map[string]string{"id": id})
	}

	ids, err := store.List("courses")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("List() returned %d items; want 3", len(ids))
	}

	found := make(map[string]bool)
	for _, id := range ids {
		found[id] = true
	}
	if !found["python-basics"] {
		t.Error("List() missing python-basics")
	}
}

func TestStore_List_EmptyCollection(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	ids, err := store.List("nothing-here")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() returned %d items; want 0", len(ids))
	}
}

func TestStore_Exists(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	if store.Exists("auth", "session") {
		t.Error("Exists() should return false before save")
	}
	store.Save("auth", "session", storedLogin{Token: "tok"})
	if !store.Exists("auth", "session") {
		t.Error("Exists() should return true after save")
	}
}

func TestStore_Overwrite(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	store.Save("auth", "session", storedLogin{Token: "old"})
	store.Save("auth", "session", storedLogin{Token: "new"})

	var loaded storedLogin
	store.Load("auth", "session", &loaded)
	if loaded.Token != "new" {
		t.Errorf("Token = %q; want new (overwritten)", loaded.Token)
	}
}

func TestStore_Concurrency(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.Save("cache", fmt.Sprintf("entry-%d", n), map[string]int{"n": n})
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.List("cache")
		}()
	}
	wg.Wait()
}
