package archive

import "io"

// memberEntry is one record in a backend's member listing.
type memberEntry struct {
	name string // normalized relative path
	dir  bool
}

// memberStat reports what kind of record a backend has at a relative path.
// Both fields can be false (no record) and, for flat-list formats, both can
// be true (a file entry plus a synthesized or native directory marker).
type memberStat struct {
	file bool
	dir  bool
}

func (s memberStat) exists() bool { return s.file || s.dir }

// backend is the narrow contract each container kind implements. Instances
// are constructed by the format dispatcher only; all paths passed in are
// normalized, relative, slash-separated member names.
//
// The archive mode is enforced one level up: backends never see a write
// operation while the archive is in read mode.
type backend interface {
	// list returns every member currently known, explicit directory records
	// and synthesized intermediate directories included. Order is
	// backend-defined and not guaranteed sorted.
	list() ([]memberEntry, error)

	// stat reports the record kind at name. A missing record is not an error.
	stat(name string) (memberStat, error)

	// openMember opens an existing member's payload for reading.
	openMember(name string) (io.ReadCloser, error)

	// createMember opens a member for writing. The member and its payload
	// become visible no later than when the returned stream is closed;
	// append-only formats defer the commit until exactly that point.
	createMember(name string, o memberOptions) (io.WriteCloser, error)

	// writeMember writes one member's entire payload in a single call.
	writeMember(name string, src io.Reader, o memberOptions) error

	// mkdir creates an explicit empty-directory record. Parent and conflict
	// checks happen at the Path layer.
	mkdir(name string) error

	// touch creates an explicit empty-file record.
	touch(name string) error

	// reopen transitions a closed backend back to a usable state. Backends
	// that cannot reopen (read and write-once sessions on container files)
	// return an error wrapping fs.ErrClosed.
	reopen() error

	// close flushes and releases the underlying handle and drops any cached
	// member index. For write-mode container formats this is the point the
	// container on disk becomes valid and complete.
	close() error
}
