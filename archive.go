package archive

import (
	"fmt"
	"iter"
	"os"

	"github.com/rs/zerolog/log"
)

// Mode selects how an archive is opened.
type Mode int

const (
	// ModeRead opens an existing archive for reading. No member may be
	// created, renamed, or deleted.
	ModeRead Mode = iota

	// ModeWrite creates a new archive, truncating any existing container
	// file at the target.
	ModeWrite

	// ModeAppend opens an existing archive for writing, keeping its current
	// members, and creates it if absent. Not every format supports appending
	// in every framing: compressed TAR archives reject it with
	// ErrInvalidMode.
	ModeAppend
)

// String returns the mode's single-letter form: "r", "w" or "a".
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	default:
		return "unknown"
	}
}

func (m Mode) valid() bool {
	return m == ModeRead || m == ModeWrite || m == ModeAppend
}

// writable reports whether the mode permits member creation.
func (m Mode) writable() bool {
	return m == ModeWrite || m == ModeAppend
}

// ParseMode converts the conventional single-letter mode strings "r", "w"
// and "a" into a Mode. Anything else fails with ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("parse mode %q: %w", s, ErrInvalidMode)
	}
}

// Archive represents one opened container: a filesystem directory, a ZIP or
// TAR file, or a read-only 7z file. It is created by Open, never directly,
// and doubles as the root Path of its own member tree.
//
// An Archive is not safe for concurrent use.
type Archive struct {
	target  string
	mode    Mode
	format  string
	backend backend
	closed  bool
}

// Open opens the container at target in the given mode and returns an
// Archive bound to the backend that matched.
//
// In read mode, backends are probed in a fixed order by content: a target
// can exist without a trustworthy extension, so the bytes decide. In write
// and append modes the target may not exist yet, so the first backend whose
// registered extension set matches the target's suffix is selected instead;
// the directory backend registers the empty extension and therefore acts as
// the final catch-all. Open fails with ErrUnknownFormat when nothing
// matched, and with ErrNotExist when a read target is absent.
func Open(target string, mode Mode) (*Archive, error) {
	if !mode.valid() {
		return nil, newError("open", target, "", ErrInvalidMode)
	}

	if mode == ModeRead {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return nil, newError("open", target, "", ErrNotExist)
		}
	}

	f, err := dispatch(target, mode)
	if err != nil {
		return nil, newError("open", target, "", err)
	}

	b, err := f.open(target, mode)
	if err != nil {
		return nil, newError("open", target, "", err)
	}

	log.Debug().
		Str("target", target).
		Str("format", f.name).
		Str("mode", mode.String()).
		Msg("archive: opened")

	return &Archive{target: target, mode: mode, format: f.name, backend: b}, nil
}

// Target returns the location the archive was opened at.
func (a *Archive) Target() string { return a.target }

// Mode returns the mode the archive was opened in.
func (a *Archive) Mode() Mode { return a.mode }

// Format returns the name of the backend serving this archive:
// "dir", "zip", "tar" or "7z".
func (a *Archive) Format() string { return a.format }

// Root returns the archive itself viewed as a Path. The root is its own
// parent, has empty name, stem and suffix, and always exists as a directory.
func (a *Archive) Root() *Path {
	return &Path{archive: a, rel: ""}
}

// Join returns the Path for the given segments relative to the archive root.
// It is the entry point of the path algebra: a.Join("a", "b.txt") and
// a.Join("a/b.txt") address the same member.
func (a *Archive) Join(segments ...string) *Path {
	return a.Root().Join(segments...)
}

// Members returns the lazy sequence of every Path currently known to the
// archive, explicit directory records and synthesized directories included.
// Order is backend-defined. Within one session, a completed write is visible
// to Members immediately.
func (a *Archive) Members() iter.Seq2[*Path, error] {
	return a.Root().members("members")
}

// Glob matches the whole member tree against pattern, like Root().Glob.
func (a *Archive) Glob(pattern string, opts ...GlobOption) iter.Seq2[*Path, error] {
	return a.Root().Glob(pattern, opts...)
}

// Close flushes and releases the underlying handle and discards the cached
// member index. For write-mode container formats this is the point the
// on-disk footer or central directory is finalized. Close is idempotent.
//
// An archive opened in an append-capable mode transparently reopens on the
// next operation after Close; read and write sessions do not, and further
// operations fail with ErrClosed.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.backend.close(); err != nil {
		return newError("close", a.target, "", err)
	}
	log.Debug().
		Str("target", a.target).
		Str("format", a.format).
		Msg("archive: closed")
	return nil
}

// ensureOpen rematerializes the backend after Close when the mode allows it.
func (a *Archive) ensureOpen() error {
	if !a.closed {
		return nil
	}
	if err := a.backend.reopen(); err != nil {
		return err
	}
	a.closed = false
	log.Debug().
		Str("target", a.target).
		Str("format", a.format).
		Msg("archive: reopened")
	return nil
}
