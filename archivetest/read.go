package archivetest

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	archive "github.com/moi90/omni-archive"
)

// fixture is the member tree the read-side tests run against. It mixes
// top-level members with nested ones so directory synthesis is exercised.
func fixture() map[string][]byte {
	return map[string][]byte{
		"foo.txt":        []byte("foo payload"),
		"bar.txt":        []byte("bar payload"),
		"baz.txt":        []byte("baz payload"),
		"sub/a.txt":      []byte("nested a"),
		"sub/deep/b.bin": {0x00, 0x01, 0x02, 0xff},
	}
}

func testRoundTrip(t *testing.T, config Config) {
	target := config.NewTarget(t)
	payload := []byte("round-trip payload")
	streamed := bytes.Repeat([]byte("block"), 1024)

	a, err := archive.Open(target, archive.ModeWrite)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	if err := a.Join("whole.txt").WriteFile(payload); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := a.Join("from.txt").WriteFrom(bytes.NewReader(payload)); err != nil {
		t.Fatalf("WriteFrom: %v", err)
	}
	w, err := a.Join("nested", "streamed.bin").Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write(streamed); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("member Close: %v", err)
	}
	if err := a.Join("stored.txt").WriteFile(payload, archive.Uncompressed()); err != nil {
		t.Fatalf("WriteFile(Uncompressed): %v", err)
	}

	// A completed write is listed immediately; whether its payload can be
	// read back before the session ends depends on the backend.
	if exists, err := a.Join("whole.txt").Exists(); err != nil || !exists {
		t.Errorf("Exists(whole.txt) in write session: got %v, %v", exists, err)
	}
	_, err = a.Join("whole.txt").ReadFile()
	if config.ImmediateRead {
		if err != nil {
			t.Errorf("ReadFile in write session: %v", err)
		}
	} else if !errors.Is(err, archive.ErrNoData) {
		t.Errorf("ReadFile in write session: got %v, want ErrNoData", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := openRead(t, target)
	for name, want := range map[string][]byte{
		"whole.txt":           payload,
		"from.txt":            payload,
		"nested/streamed.bin": streamed,
		"stored.txt":          payload,
	} {
		got, err := r.Join(name).ReadFile()
		if err != nil {
			t.Errorf("ReadFile(%q): %v", name, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFile(%q): got %d bytes, want %d", name, len(got), len(want))
		}
	}

	// Streaming read through Open.
	rc, err := r.Join("nested/streamed.bin").Open()
	if err != nil {
		t.Fatalf("Open(member): %v", err)
	}
	got, err := io.ReadAll(rc)
	if cerr := rc.Close(); cerr != nil {
		t.Errorf("member Close: %v", cerr)
	}
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, streamed) {
		t.Errorf("streamed read: got %d bytes, want %d", len(got), len(streamed))
	}
}

func testDispatch(t *testing.T, config Config) {
	target := config.NewTarget(t)

	a, err := archive.Open(target, archive.ModeWrite)
	if err != nil {
		t.Fatalf("Open(write): %v", err)
	}
	if got := a.Format(); got != config.Format {
		t.Errorf("write Format(): got %q, want %q", got, config.Format)
	}
	if err := a.Join("probe.txt").WriteFile([]byte("probe")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Read-mode dispatch goes by content, not extension, and must land on
	// the same backend that produced the file.
	r := openRead(t, target)
	if got := r.Format(); got != config.Format {
		t.Errorf("read Format(): got %q, want %q", got, config.Format)
	}
}

func testMembers(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	names := collect(t, r.Members())
	for name := range fixture() {
		if !contains(names, name) {
			t.Errorf("Members(): missing %q in %v", name, names)
		}
	}
	for _, dir := range []string{"sub", "sub/deep"} {
		if !contains(names, dir) {
			t.Errorf("Members(): missing synthesized directory %q in %v", dir, names)
		}
	}
}

func testGlob(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	got := collect(t, r.Glob("b*.txt"))
	if !sameElements(got, []string{"bar.txt", "baz.txt"}) {
		t.Errorf("Glob(b*.txt): got %v", got)
	}

	// A single star must not cross a path separator.
	got = collect(t, r.Glob("*.bin"))
	if len(got) != 0 {
		t.Errorf("Glob(*.bin): got %v, want no matches", got)
	}

	// A double star crosses path separators.
	got = collect(t, r.Glob("**.bin"))
	if !sameElements(got, []string{"sub/deep/b.bin"}) {
		t.Errorf("Glob(**.bin): got %v", got)
	}

	got = collect(t, r.Glob("sub/*.txt"))
	if !sameElements(got, []string{"sub/a.txt"}) {
		t.Errorf("Glob(sub/*.txt): got %v", got)
	}

	// Globbing is relative to the path it is called on.
	got = collect(t, r.Join("sub").Glob("*.txt"))
	if !sameElements(got, []string{"sub/a.txt"}) {
		t.Errorf("sub.Glob(*.txt): got %v", got)
	}

	// Matching folds case only on request.
	if got = collect(t, r.Glob("FOO.txt")); len(got) != 0 {
		t.Errorf("Glob(FOO.txt): got %v, want no matches", got)
	}
	got = collect(t, r.Glob("FOO.txt", archive.FoldCase()))
	if !sameElements(got, []string{"foo.txt"}) {
		t.Errorf("Glob(FOO.txt, FoldCase): got %v", got)
	}
}

func testIterdir(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	got := collect(t, r.Root().Iterdir())
	want := []string{"foo.txt", "bar.txt", "baz.txt", "sub"}
	if !sameElements(got, want) {
		t.Errorf("Iterdir(root): got %v, want %v", got, want)
	}

	// Iterating a directory and globbing "*" under it agree.
	globbed := collect(t, r.Root().Glob("*"))
	if !sameElements(got, globbed) {
		t.Errorf("Iterdir %v disagrees with Glob(*) %v", got, globbed)
	}

	got = collect(t, r.Join("sub").Iterdir())
	if !sameElements(got, []string{"sub/a.txt", "sub/deep"}) {
		t.Errorf("Iterdir(sub): got %v", got)
	}

	// A nonexistent directory yields an empty sequence, not an error.
	if got = collect(t, r.Join("missing").Iterdir()); len(got) != 0 {
		t.Errorf("Iterdir(missing): got %v, want empty", got)
	}

	// The sequence is restartable.
	seq := r.Root().Iterdir()
	first := collect(t, seq)
	second := collect(t, seq)
	if !sameElements(first, second) {
		t.Errorf("Iterdir not restartable: %v then %v", first, second)
	}
}

func testPredicates(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	checks := []struct {
		path   string
		exists bool
		file   bool
		dir    bool
	}{
		{"foo.txt", true, true, false},
		{"sub/a.txt", true, true, false},
		{"sub", true, false, true},
		{"sub/deep", true, false, true},
		{"missing.txt", false, false, false},
		{"sub/missing", false, false, false},
	}
	for _, c := range checks {
		p := r.Join(c.path)
		if got, err := p.Exists(); err != nil || got != c.exists {
			t.Errorf("Exists(%q): got %v, %v; want %v", c.path, got, err, c.exists)
		}
		if got, err := p.IsFile(); err != nil || got != c.file {
			t.Errorf("IsFile(%q): got %v, %v; want %v", c.path, got, err, c.file)
		}
		if got, err := p.IsDir(); err != nil || got != c.dir {
			t.Errorf("IsDir(%q): got %v, %v; want %v", c.path, got, err, c.dir)
		}
	}
}

func testRootSemantics(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)
	root := r.Root()

	if root.Name() != "" || root.Stem() != "" || root.Suffix() != "" {
		t.Errorf("root name parts: got %q %q %q, want empty", root.Name(), root.Stem(), root.Suffix())
	}
	if !root.Parent().Equal(root) {
		t.Error("root.Parent() is not the root itself")
	}
	if exists, err := root.Exists(); err != nil || !exists {
		t.Errorf("root.Exists(): got %v, %v", exists, err)
	}
	if isDir, err := root.IsDir(); err != nil || !isDir {
		t.Errorf("root.IsDir(): got %v, %v", isDir, err)
	}
	if isFile, err := root.IsFile(); err != nil || isFile {
		t.Errorf("root.IsFile(): got %v, %v", isFile, err)
	}
	if _, err := root.Open(); !errors.Is(err, archive.ErrNoData) {
		t.Errorf("root.Open(): got %v, want ErrNoData", err)
	}

	// Join past the root clamps instead of escaping.
	clamped := r.Join("..", "..", "foo.txt")
	if clamped.Rel() != "foo.txt" {
		t.Errorf("Join(.., .., foo.txt): got %q", clamped.Rel())
	}

	// Walking up from a nested path terminates at the root.
	p := r.Join("sub/deep/b.bin")
	steps := 0
	for !p.Equal(root) {
		p = p.Parent()
		if steps++; steps > 10 {
			t.Fatal("Parent() does not converge on root")
		}
	}
}

func testReadErrors(t *testing.T, config Config) {
	target := config.NewTarget(t)
	populate(t, target, fixture())
	r := openRead(t, target)

	if _, err := r.Join("missing.txt").Open(); !errors.Is(err, archive.ErrMemberNotFound) {
		t.Errorf("Open(missing): got %v, want ErrMemberNotFound", err)
	}
	if _, err := r.Join("missing.txt").ReadFile(); !errors.Is(err, archive.ErrMemberNotFound) {
		t.Errorf("ReadFile(missing): got %v, want ErrMemberNotFound", err)
	}

	// Directories carry no payload.
	if _, err := r.Join("sub").Open(); !errors.Is(err, archive.ErrNoData) {
		t.Errorf("Open(sub): got %v, want ErrNoData", err)
	}

	// Failures carry the operation context.
	_, err := r.Join("missing.txt").Open()
	var ae *archive.ArchiveError
	if !errors.As(err, &ae) {
		t.Fatalf("Open(missing): error %v is not an ArchiveError", err)
	}
	if ae.Member != "missing.txt" || !strings.Contains(ae.Error(), "missing.txt") {
		t.Errorf("ArchiveError context: %+v", ae)
	}
}
