// Package archivetest provides a conformance test suite for validating
// archive backends against the shared Path contract.
//
// The suite is imported and executed by backend test files. It exercises the
// backend through the public archive API only: dispatch, round-trips,
// member listing and globbing, synthesized directories, the error taxonomy,
// and the open/close lifecycle. Backend capabilities differ, so the Config
// describes what the backend under test supports and the suite adapts.
//
// Example usage:
//
//	func TestZipConformance(t *testing.T) {
//	    archivetest.TestArchive(t, archivetest.Config{
//	        Format: "zip",
//	        NewTarget: func(t *testing.T) string {
//	            return filepath.Join(t.TempDir(), "test.zip")
//	        },
//	        CanAppend: true,
//	    })
//	}
package archivetest

import (
	"testing"

	archive "github.com/moi90/omni-archive"
)

// Config describes the backend under test.
type Config struct {
	// Format is the name Open is expected to report for targets produced
	// by NewTarget, e.g. "zip".
	Format string

	// NewTarget returns a fresh target location for one test. The location
	// must not exist yet and must dispatch to the backend under test when
	// opened in write mode.
	NewTarget func(t *testing.T) string

	// CanAppend indicates the backend supports ModeAppend for targets
	// produced by NewTarget.
	CanAppend bool

	// ImmediateRead indicates members written in the current session can be
	// read back before the archive is closed. Container-file backends
	// typically report written members as existing but refuse to serve
	// their payload until the session ends.
	ImmediateRead bool

	// ReopenAfterClose indicates a closed read-mode archive transparently
	// reopens on the next operation. Only backends without session state,
	// such as the directory backend, do.
	ReopenAfterClose bool

	// SkipTests lists test names to skip, in "Group" or "Group/SubTest"
	// form, for documented behavioral differences.
	SkipTests []string
}

func (c Config) shouldSkip(name string) bool {
	for _, skip := range c.SkipTests {
		if skip == name {
			return true
		}
	}
	return false
}

// TestArchive runs the conformance suite against one backend.
func TestArchive(t *testing.T, config Config) {
	if config.NewTarget == nil {
		t.Fatal("archivetest: Config.NewTarget is required")
	}

	groups := []struct {
		name string
		fn   func(*testing.T, Config)
	}{
		{"RoundTrip", testRoundTrip},
		{"Dispatch", testDispatch},
		{"Members", testMembers},
		{"Glob", testGlob},
		{"Iterdir", testIterdir},
		{"Predicates", testPredicates},
		{"RootSemantics", testRootSemantics},
		{"MkdirTouch", testMkdirTouch},
		{"ReadErrors", testReadErrors},
		{"ReadOnly", testReadOnly},
		{"Lifecycle", testLifecycle},
		{"Append", testAppend},
	}
	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if config.shouldSkip(g.name) {
				t.Skip("skipped by backend configuration")
				return
			}
			g.fn(t, config)
		})
	}
}

// populate writes the fixture tree used by the read-side tests and closes
// the archive, leaving target ready to open in read mode.
func populate(t *testing.T, target string, members map[string][]byte) {
	t.Helper()
	a, err := archive.Open(target, archive.ModeWrite)
	if err != nil {
		t.Fatalf("Open(%q, write): setup failed: %v", target, err)
	}
	for name, data := range members {
		if err := a.Join(name).WriteFile(data); err != nil {
			t.Fatalf("WriteFile(%q): setup failed: %v", name, err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close(): setup failed: %v", err)
	}
}

// openRead opens target for reading and registers the cleanup.
func openRead(t *testing.T, target string) *archive.Archive {
	t.Helper()
	a, err := archive.Open(target, archive.ModeRead)
	if err != nil {
		t.Fatalf("Open(%q, read): %v", target, err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// collect drains a path sequence into relative path strings.
func collect(t *testing.T, seq func(yield func(*archive.Path, error) bool)) []string {
	t.Helper()
	var out []string
	seq(func(p *archive.Path, err error) bool {
		if err != nil {
			t.Fatalf("iteration failed: %v", err)
		}
		out = append(out, p.Rel())
		return true
	})
	return out
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		set[s]--
		if set[s] < 0 {
			return false
		}
	}
	return true
}
