package archivetest

import (
	"bytes"
	"errors"
	"testing"

	archive "github.com/moi90/omni-archive"
)

func testMkdirTouch(t *testing.T, config Config) {
	target := config.NewTarget(t)

	a, err := archive.Open(target, archive.ModeWrite)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}

	if err := a.Join("d").Mkdir(); err != nil {
		t.Fatalf("Mkdir(d): %v", err)
	}
	if err := a.Join("d").Mkdir(); !errors.Is(err, archive.ErrAlreadyExists) {
		t.Errorf("Mkdir(d) twice: got %v, want ErrAlreadyExists", err)
	}

	if err := a.Join("f").Touch(); err != nil {
		t.Fatalf("Touch(f): %v", err)
	}
	// Touching an existing file is idempotent.
	if err := a.Join("f").Touch(); err != nil {
		t.Errorf("Touch(f) twice: %v", err)
	}
	if err := a.Join("d").Touch(); !errors.Is(err, archive.ErrAlreadyExists) {
		t.Errorf("Touch(d): got %v, want ErrAlreadyExists", err)
	}
	if err := a.Join("f").Mkdir(); !errors.Is(err, archive.ErrAlreadyExists) {
		t.Errorf("Mkdir(f): got %v, want ErrAlreadyExists", err)
	}

	if err := a.Join("x/y/z").MkdirAll(); err != nil {
		t.Fatalf("MkdirAll(x/y/z): %v", err)
	}
	if err := a.Join("x/y/z").MkdirAll(); err != nil {
		t.Errorf("MkdirAll(x/y/z) twice: %v", err)
	}
	if err := a.Join("f/child").MkdirAll(); !errors.Is(err, archive.ErrAlreadyExists) {
		t.Errorf("MkdirAll below a file: got %v, want ErrAlreadyExists", err)
	}

	// Records with the same name and kind as written.
	for _, c := range []struct {
		path string
		dir  bool
	}{
		{"d", true}, {"f", false}, {"x", true}, {"x/y", true}, {"x/y/z", true},
	} {
		isDir, err := a.Join(c.path).IsDir()
		if err != nil {
			t.Errorf("IsDir(%q): %v", c.path, err)
			continue
		}
		if isDir != c.dir {
			t.Errorf("IsDir(%q): got %v, want %v", c.path, isDir, c.dir)
		}
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The records survive the session.
	r := openRead(t, target)
	if isDir, err := r.Join("d").IsDir(); err != nil || !isDir {
		t.Errorf("reopened IsDir(d): got %v, %v", isDir, err)
	}
	if isFile, err := r.Join("f").IsFile(); err != nil || !isFile {
		t.Errorf("reopened IsFile(f): got %v, %v", isFile, err)
	}
	if data, err := r.Join("f").ReadFile(); err != nil || len(data) != 0 {
		t.Errorf("reopened ReadFile(f): got %d bytes, %v; want empty", len(data), err)
	}
	if isDir, err := r.Join("x/y/z").IsDir(); err != nil || !isDir {
		t.Errorf("reopened IsDir(x/y/z): got %v, %v", isDir, err)
	}
}

func testReadOnly(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	if err := r.Join("new.txt").WriteFile([]byte("nope")); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("WriteFile in read mode: got %v, want ErrReadOnly", err)
	}
	if err := r.Join("new.txt").WriteFrom(bytes.NewReader([]byte("nope"))); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("WriteFrom in read mode: got %v, want ErrReadOnly", err)
	}
	if _, err := r.Join("new.txt").Create(); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("Create in read mode: got %v, want ErrReadOnly", err)
	}
	if err := r.Join("newdir").Mkdir(); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("Mkdir in read mode: got %v, want ErrReadOnly", err)
	}
	if err := r.Join("newdir").MkdirAll(); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("MkdirAll in read mode: got %v, want ErrReadOnly", err)
	}
	if err := r.Join("new.txt").Touch(); !errors.Is(err, archive.ErrReadOnly) {
		t.Errorf("Touch in read mode: got %v, want ErrReadOnly", err)
	}

	// The rejected writes left no trace.
	if exists, err := r.Join("new.txt").Exists(); err != nil || exists {
		t.Errorf("Exists(new.txt) after rejected writes: got %v, %v", exists, err)
	}
}
