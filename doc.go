// Package archive provides a uniform, path-like interface over heterogeneous
// archive containers: plain filesystem directories, ZIP archives, TAR archives
// (optionally gzip/bzip2/xz/lzma compressed), and read-only 7z archives.
//
// An Archive is obtained through Open, which dispatches to the correct backend
// by probing the target's content in read mode or by matching its filename
// extension in write mode. Calling code then navigates the container through
// Path values obtained from Join, without knowing which backend is in play:
//
//	a, err := archive.Open("results.zip", archive.ModeWrite)
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	if err := a.Join("data/report.txt").WriteFile([]byte("hello")); err != nil {
//	    return err
//	}
//
// Path values are pure: constructing, joining, and inspecting them
// (Parent, Name, Stem, Suffix, Compare) never touches the backend. Operations
// that do touch the backend (Open, Exists, Glob, Iterdir, ...) address the
// owning Archive by relative path.
//
// Directory semantics are synthesized for container formats that store only a
// flat list of member names: a path is a directory if the container carries a
// native directory record for it, or if it is the parent of some member.
//
// # Write lifecycle
//
// For container-file backends, the archive on disk is finalized by Close; a
// crash before Close is expected to leave the container unreadable. TAR
// members opened for writing through Create are buffered in memory and
// committed as a single append when the member stream is closed, because the
// TAR format needs the payload size before it can write the member header.
// A member stream that is never closed is never committed.
//
// # Concurrency
//
// An Archive and its Paths are not safe for concurrent use. All operations
// are synchronous and run to completion.
package archive
