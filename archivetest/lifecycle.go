package archivetest

import (
	"errors"
	"io/fs"
	"testing"

	archive "github.com/moi90/omni-archive"
)

func testLifecycle(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())

	a, err := archive.Open(target, archive.ModeRead)
	if err != nil {
		t.Fatalf("Open(read): %v", err)
	}
	if _, err := a.Join("foo.txt").ReadFile(); err != nil {
		t.Fatalf("ReadFile before Close: %v", err)
	}

	// Close is idempotent.
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	_, err = a.Join("foo.txt").ReadFile()
	if config.ReopenAfterClose {
		if err != nil {
			t.Errorf("ReadFile after Close: got %v, want transparent reopen", err)
		}
	} else if !errors.Is(err, fs.ErrClosed) {
		t.Errorf("ReadFile after Close: got %v, want ErrClosed", err)
	}

	// A fresh write session that is closed twice stays consistent too.
	wt := config.NewTarget(t)
	w, err := archive.Open(wt, archive.ModeWrite)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	if err := w.Join("m.txt").WriteFile([]byte("m")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func testAppend(t *testing.T, config Config) {
	if !config.CanAppend {
		t.Skip("backend does not support append")
		return
	}
	target := config.NewTarget(t)
	populate(t, target, map[string][]byte{
		"old.txt": []byte("old payload"),
	})

	a, err := archive.Open(target, archive.ModeAppend)
	if err != nil {
		t.Fatalf("Open(append): %v", err)
	}

	// Existing members stay readable during the append session.
	got, err := a.Join("old.txt").ReadFile()
	if err != nil {
		t.Fatalf("ReadFile(old) in append session: %v", err)
	}
	if string(got) != "old payload" {
		t.Errorf("ReadFile(old): got %q", got)
	}

	if err := a.Join("new.txt").WriteFile([]byte("new payload")); err != nil {
		t.Fatalf("WriteFile(new): %v", err)
	}
	if exists, err := a.Join("new.txt").Exists(); err != nil || !exists {
		t.Errorf("Exists(new) in append session: got %v, %v", exists, err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// An append-capable session transparently reopens after Close.
	if err := a.Join("late.txt").WriteFile([]byte("late payload")); err != nil {
		t.Fatalf("WriteFile after Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close after reopen: %v", err)
	}

	r := openRead(t, target)
	for name, want := range map[string]string{
		"old.txt":  "old payload",
		"new.txt":  "new payload",
		"late.txt": "late payload",
	} {
		got, err := r.Join(name).ReadFile()
		if err != nil {
			t.Errorf("ReadFile(%q) after append: %v", name, err)
			continue
		}
		if string(got) != want {
			t.Errorf("ReadFile(%q): got %q, want %q", name, got, want)
		}
	}

	// Appending to a missing target creates it.
	fresh := config.NewTarget(t)
	f, err := archive.Open(fresh, archive.ModeAppend)
	if err != nil {
		t.Fatalf("Open(append, fresh): %v", err)
	}
	if err := f.Join("only.txt").WriteFile([]byte("only")); err != nil {
		t.Fatalf("WriteFile(fresh): %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close(fresh): %v", err)
	}
	fr := openRead(t, fresh)
	if got, err := fr.Join("only.txt").ReadFile(); err != nil || string(got) != "only" {
		t.Errorf("ReadFile(only): got %q, %v", got, err)
	}
}
