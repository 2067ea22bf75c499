package archive

import (
	"bytes"
	"io"
	"iter"
	"strings"

	"github.com/gobwas/glob"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/moi90/omni-archive/internal/pathutil"
)

// Path represents a location inside an Archive: a reference to the owning
// archive plus a normalized, relative, slash-separated path value.
//
// Paths are pure values. Constructing, joining and inspecting them never
// touches the backend; only the I/O and query operations do. Two Paths are
// equal only if they reference the same Archive instance and an equal
// relative path. The archive root is represented by the empty relative path:
// it is its own parent, has empty name, stem and suffix, and always exists
// as a directory.
type Path struct {
	archive *Archive
	rel     string
}

// Archive returns the owning archive.
func (p *Path) Archive() *Archive { return p.archive }

// Join returns a new Path with the segments appended. Walking above the
// archive root with ".." clamps at the root.
func (p *Path) Join(segments ...string) *Path {
	return &Path{archive: p.archive, rel: pathutil.Join(p.rel, segments...)}
}

// Parent returns the logical parent of the path. The root is its own parent,
// so uniform code can walk up without special-casing the top.
func (p *Path) Parent() *Path {
	return &Path{archive: p.archive, rel: pathutil.Parent(p.rel)}
}

// Name returns the final path component, or "" at the root.
func (p *Path) Name() string { return pathutil.Base(p.rel) }

// Stem returns the final path component without its suffix.
func (p *Path) Stem() string { return pathutil.Stem(p.rel) }

// Suffix returns the extension of the final component, including the leading
// dot, or "" if there is none.
func (p *Path) Suffix() string { return pathutil.Suffix(p.rel) }

// Rel returns the relative path value, "" at the root.
func (p *Path) Rel() string { return p.rel }

// String renders the path as the archive target joined with the relative
// path, for logs and error messages.
func (p *Path) String() string {
	if p.rel == "" {
		return p.archive.target
	}
	return p.archive.target + "/" + p.rel
}

// Equal reports whether other references the same Archive instance and an
// equal relative path.
func (p *Path) Equal(other *Path) bool {
	return other != nil && p.archive == other.archive && p.rel == other.rel
}

// Compare orders paths for sorting. Paths of the same archive compare by
// relative path; paths of different archives fall back to comparing the
// archives' targets, which is documented rather than guaranteed stable
// across formats.
func (p *Path) Compare(other *Path) int {
	if p.archive != other.archive {
		if c := strings.Compare(p.archive.target, other.archive.target); c != 0 {
			return c
		}
	}
	return strings.Compare(p.rel, other.rel)
}

// Open opens the member for reading and returns its payload stream.
// It fails with ErrMemberNotFound if the relative path is not a known
// member, and with ErrNoData if the record has no retrievable payload
// (directories, non-regular entries, members pending in a write session).
func (p *Path) Open() (io.ReadCloser, error) {
	if err := p.archive.ensureOpen(); err != nil {
		return nil, p.wrap("open", err)
	}
	if p.rel == "" {
		return nil, p.wrap("open", ErrNoData)
	}
	rc, err := p.archive.backend.openMember(p.rel)
	if err != nil {
		return nil, p.wrap("open", err)
	}
	return rc, nil
}

// ReadFile reads the member and returns its entire payload.
func (p *Path) ReadFile() ([]byte, error) {
	rc, err := p.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, p.wrap("read", err)
	}
	return data, nil
}

// Create opens the member for writing and returns its payload stream.
// It fails with ErrReadOnly if the archive was opened in read mode.
//
// For append-only formats the member is buffered and committed only when the
// returned stream is closed; a stream that is never closed is never
// committed. For all formats, the member is visible to Members, Glob and the
// existence queries no later than when the stream closes.
func (p *Path) Create(opts ...MemberOption) (io.WriteCloser, error) {
	if err := p.checkWritable("create"); err != nil {
		return nil, err
	}
	if p.rel == "" {
		return nil, p.wrap("create", ErrAlreadyExists)
	}
	wc, err := p.archive.backend.createMember(p.rel, applyMemberOptions(opts))
	if err != nil {
		return nil, p.wrap("create", err)
	}
	return wc, nil
}

// WriteFile writes data as the member's entire payload in one call.
func (p *Path) WriteFile(data []byte, opts ...MemberOption) error {
	return p.WriteFrom(bytes.NewReader(data), opts...)
}

// WriteFrom streams the member's entire payload from src in one call.
func (p *Path) WriteFrom(src io.Reader, opts ...MemberOption) error {
	if err := p.checkWritable("write"); err != nil {
		return err
	}
	if p.rel == "" {
		return p.wrap("write", ErrAlreadyExists)
	}
	if err := p.archive.backend.writeMember(p.rel, src, applyMemberOptions(opts)); err != nil {
		return p.wrap("write", err)
	}
	return nil
}

// Exists reports whether the path points to an existing member or directory.
// The root always exists.
func (p *Path) Exists() (bool, error) {
	s, err := p.statMember("exists")
	return s.exists(), err
}

// IsFile reports whether the path points to a regular member.
func (p *Path) IsFile() (bool, error) {
	s, err := p.statMember("isfile")
	return s.file, err
}

// IsDir reports whether the path points to a directory: a native directory
// record if the format models one, or a synthesized directory when some
// member's parent chain contains the path.
func (p *Path) IsDir() (bool, error) {
	s, err := p.statMember("isdir")
	return s.dir, err
}

// Iterdir returns the lazy sequence of members whose parent equals this
// path, derived by scanning the member index. The sequence is restartable:
// each range re-consults the backend, so writes completed between iterations
// become visible.
func (p *Path) Iterdir() iter.Seq2[*Path, error] {
	return func(yield func(*Path, error) bool) {
		entries, err := p.listEntries("iterdir")
		if err != nil {
			yield(nil, err)
			return
		}
		prefix := pathutil.ChildPrefix(p.rel)
		seen := make(map[string]bool)
		for _, e := range entries {
			if !strings.HasPrefix(e.name, prefix) {
				continue
			}
			rest := e.name[len(prefix):]
			if rest == "" || strings.ContainsRune(rest, '/') || seen[rest] {
				continue
			}
			seen[rest] = true
			if !yield(&Path{archive: p.archive, rel: e.name}, nil) {
				return
			}
		}
	}
}

// Glob returns the lazy sequence of paths below this one whose relative path
// matches pattern. Matching is shell-style: "*" and "?" never cross a path
// separator, "**" does, and "[...]" matches character classes. Matching is
// case-sensitive unless FoldCase is given.
func (p *Path) Glob(pattern string, opts ...GlobOption) iter.Seq2[*Path, error] {
	o := applyGlobOptions(opts)
	compiled := pattern
	if o.foldCase {
		compiled = strings.ToLower(pattern)
	}
	g, globErr := glob.Compile(compiled, '/')

	return func(yield func(*Path, error) bool) {
		if globErr != nil {
			yield(nil, p.wrap("glob", platformerrors.Wrapf(globErr, platformerrors.CodeInvalidInput, "invalid pattern %q", pattern)))
			return
		}
		entries, err := p.listEntries("glob")
		if err != nil {
			yield(nil, err)
			return
		}
		prefix := pathutil.ChildPrefix(p.rel)
		for _, e := range entries {
			if !strings.HasPrefix(e.name, prefix) {
				continue
			}
			rest := e.name[len(prefix):]
			if rest == "" {
				continue
			}
			if o.foldCase {
				rest = strings.ToLower(rest)
			}
			if !g.Match(rest) {
				continue
			}
			if !yield(&Path{archive: p.archive, rel: e.name}, nil) {
				return
			}
		}
	}
}

// Mkdir creates an explicit empty-directory record. It fails with
// ErrAlreadyExists if any record, file or directory, already exists at the
// path; use MkdirAll for idempotent creation with parents.
func (p *Path) Mkdir() error {
	if err := p.checkWritable("mkdir"); err != nil {
		return err
	}
	if p.rel == "" {
		return p.wrap("mkdir", ErrAlreadyExists)
	}
	s, err := p.archive.backend.stat(p.rel)
	if err != nil {
		return p.wrap("mkdir", err)
	}
	if s.exists() {
		return p.wrap("mkdir", ErrAlreadyExists)
	}
	if err := p.archive.backend.mkdir(p.rel); err != nil {
		return p.wrap("mkdir", err)
	}
	return nil
}

// MkdirAll creates the directory and any missing parents. Existing
// directories anywhere on the chain are fine; a file conflicting with any
// requested directory fails with ErrAlreadyExists.
func (p *Path) MkdirAll() error {
	if err := p.checkWritable("mkdir"); err != nil {
		return err
	}
	if p.rel == "" {
		return nil
	}
	var chain []string
	for rel := p.rel; rel != ""; rel = pathutil.Parent(rel) {
		chain = append(chain, rel)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		rel := chain[i]
		s, err := p.archive.backend.stat(rel)
		if err != nil {
			return newError("mkdir", p.archive.target, rel, err)
		}
		if s.dir {
			continue
		}
		if s.file {
			return newError("mkdir", p.archive.target, rel, ErrAlreadyExists)
		}
		if err := p.archive.backend.mkdir(rel); err != nil {
			return newError("mkdir", p.archive.target, rel, err)
		}
	}
	return nil
}

// Touch creates an explicit empty-file record. Touching an existing file is
// a no-op for container formats and a timestamp update where the backend is
// a real filesystem; touching a directory fails with ErrAlreadyExists.
func (p *Path) Touch() error {
	if err := p.checkWritable("touch"); err != nil {
		return err
	}
	if p.rel == "" {
		return p.wrap("touch", ErrAlreadyExists)
	}
	s, err := p.archive.backend.stat(p.rel)
	if err != nil {
		return p.wrap("touch", err)
	}
	if s.dir && !s.file {
		return p.wrap("touch", ErrAlreadyExists)
	}
	if s.file {
		return nil
	}
	if err := p.archive.backend.touch(p.rel); err != nil {
		return p.wrap("touch", err)
	}
	return nil
}

// members yields every entry of the archive below this path, itself
// excluded. Shared by Archive.Members.
func (p *Path) members(op string) iter.Seq2[*Path, error] {
	return func(yield func(*Path, error) bool) {
		entries, err := p.listEntries(op)
		if err != nil {
			yield(nil, err)
			return
		}
		prefix := pathutil.ChildPrefix(p.rel)
		for _, e := range entries {
			if !strings.HasPrefix(e.name, prefix) || e.name == p.rel {
				continue
			}
			if !yield(&Path{archive: p.archive, rel: e.name}, nil) {
				return
			}
		}
	}
}

func (p *Path) listEntries(op string) ([]memberEntry, error) {
	if err := p.archive.ensureOpen(); err != nil {
		return nil, p.wrap(op, err)
	}
	entries, err := p.archive.backend.list()
	if err != nil {
		return nil, p.wrap(op, err)
	}
	return entries, nil
}

func (p *Path) statMember(op string) (memberStat, error) {
	if err := p.archive.ensureOpen(); err != nil {
		return memberStat{}, p.wrap(op, err)
	}
	if p.rel == "" {
		return memberStat{dir: true}, nil
	}
	s, err := p.archive.backend.stat(p.rel)
	if err != nil {
		return memberStat{}, p.wrap(op, err)
	}
	return s, nil
}

func (p *Path) checkWritable(op string) error {
	if err := p.archive.ensureOpen(); err != nil {
		return p.wrap(op, err)
	}
	if !p.archive.mode.writable() {
		return p.wrap(op, ErrReadOnly)
	}
	return nil
}

func (p *Path) wrap(op string, err error) error {
	return newError(op, p.archive.target, p.rel, err)
}
