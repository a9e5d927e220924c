package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	base := t.TempDir()
	reg, err := New(filepath.Join(base, "incoming"), filepath.Join(base, "outgoing"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return reg
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsSameDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, dir+"/"); err == nil {
		t.Fatal("expected error for identical areas")
	}
}

func TestOpenDoesNotCreateDirectories(t *testing.T) {
	base := t.TempDir()
	in, out := filepath.Join(base, "incoming"), filepath.Join(base, "outgoing")
	reg, err := Open(in, out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if names, err := reg.List(Incoming); err != nil || len(names) != 0 {
		t.Fatalf("expected empty listing for missing area, got %v (%v)", names, err)
	}
	for _, dir := range []string{in, out} {
		if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("Open created %s: %v", dir, err)
		}
	}
	if _, err := Open(in, in); err == nil {
		t.Fatal("expected error for identical areas")
	}
}

func TestListSortedAndSkipsHiddenAndDirs(t *testing.T) {
	reg := newTestRegistry(t)
	in := reg.Dir(Incoming)
	for _, name := range []string{"b.mp4", "a.mp4", ".v2a-partial", "c.mkv"} {
		writeFile(t, filepath.Join(in, name))
	}
	if err := os.Mkdir(filepath.Join(in, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := reg.ListIncoming()
	if err != nil {
		t.Fatalf("ListIncoming: %v", err)
	}
	want := []string{"a.mp4", "b.mp4", "c.mkv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	out, err := reg.ListOutgoing()
	if err != nil {
		t.Fatalf("ListOutgoing: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty outgoing, got %v", out)
	}
}

func TestListReflectsFilesystemWithoutCaching(t *testing.T) {
	reg := newTestRegistry(t)
	path := filepath.Join(reg.Dir(Outgoing), "x.mp3")
	writeFile(t, path)
	if got, _ := reg.ListOutgoing(); len(got) != 1 {
		t.Fatalf("expected one file, got %v", got)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if got, _ := reg.ListOutgoing(); len(got) != 0 {
		t.Fatalf("expected stale entry to disappear, got %v", got)
	}
}

func TestValidateRejectsTraversalInEveryArea(t *testing.T) {
	reg := newTestRegistry(t)
	names := []string{"../../etc/passwd", "", "..", ".", "a/b", `a\b`, ".hidden", "missing.mp4"}
	for _, area := range []Area{Incoming, Outgoing} {
		for _, name := range names {
			if _, err := reg.Validate(name, area); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Validate(%q, %s) = %v, want ErrInvalidName", name, area, err)
			}
		}
	}
}

func TestValidateRejectsDirectoriesAndSymlinks(t *testing.T) {
	reg := newTestRegistry(t)
	in := reg.Dir(Incoming)
	if err := os.Mkdir(filepath.Join(in, "folder"), 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "secret")
	writeFile(t, outside)
	if err := os.Symlink(outside, filepath.Join(in, "link.mp4")); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"folder", "link.mp4"} {
		if _, err := reg.Validate(name, Incoming); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestValidateAcceptsRegularFile(t *testing.T) {
	reg := newTestRegistry(t)
	writeFile(t, filepath.Join(reg.Dir(Incoming), "clip1.mp4"))
	path, err := reg.Validate("clip1.mp4", Incoming)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if path != filepath.Join(reg.Dir(Incoming), "clip1.mp4") {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := reg.Validate("clip1.mp4", Outgoing); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected file to be invalid in outgoing, got %v", err)
	}
}

func TestNameErrorCarriesKind(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Validate("../x", Outgoing)
	var nameErr *NameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("expected *NameError, got %T", err)
	}
	if nameErr.Area != Outgoing || nameErr.ErrorKind() != "invalid_name" {
		t.Fatalf("unexpected error details: %+v", nameErr)
	}
}

func TestSaveIncomingAndRemove(t *testing.T) {
	reg := newTestRegistry(t)
	n, err := reg.SaveIncoming("clip.mp4", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("SaveIncoming: %v", err)
	}
	if n != 5 {
		t.Fatalf("unexpected size %d", n)
	}
	if _, err := reg.Validate("clip.mp4", Incoming); err != nil {
		t.Fatalf("saved file invalid: %v", err)
	}
	if _, err := reg.SaveIncoming("../escape.mp4", strings.NewReader("x")); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected invalid name, got %v", err)
	}

	if err := reg.Remove(Incoming, "clip.mp4"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := reg.Remove(Incoming, "clip.mp4"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist on second remove, got %v", err)
	}
}

func TestLockSerializesSameKey(t *testing.T) {
	reg := newTestRegistry(t)
	unlock := reg.Lock(Incoming, "a.mp4")

	acquired := make(chan struct{})
	go func() {
		release := reg.Lock(Incoming, "a.mp4")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	other := reg.Lock(Outgoing, "a.mp4")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLocksAreReleasedFromMap(t *testing.T) {
	reg := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := reg.Lock(Incoming, "shared")
			unlock()
			unlock()
		}()
	}
	wg.Wait()
	if n := reg.locks.size(); n != 0 {
		t.Fatalf("expected lock map to drain, has %d entries", n)
	}
}
