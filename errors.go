package archive

import (
	"fmt"
	"io/fs"

	platformerrors "github.com/jmgilman/go/errors"
)

// Sentinel errors for the failure modes shared by every backend. Backend-local
// codec errors are translated to these at the contract boundary, so callers
// never need backend-specific handling. Each sentinel carries a platform error
// code, so both errors.Is and platformerrors.GetCode work on the chain.
var (
	// ErrUnknownFormat is returned by Open when no registered backend matched
	// the target: no content probe answered in read mode, or no filename
	// extension matched in write mode.
	ErrUnknownFormat = platformerrors.New(platformerrors.CodeInvalidInput, "no archive handler matched")

	// ErrMemberNotFound is returned when a member is opened for reading but
	// the relative path is not a known member of the archive.
	ErrMemberNotFound = platformerrors.New(platformerrors.CodeNotFound, "member not found")

	// ErrNoData is returned when a member record exists but carries no
	// retrievable payload: directories, non-regular TAR entries, and members
	// written earlier in the same write session.
	ErrNoData = platformerrors.New(platformerrors.CodeNotFound, "member has no retrievable data")

	// ErrReadOnly is returned when a write is attempted on an archive that
	// was opened in read mode.
	ErrReadOnly = platformerrors.New(platformerrors.CodeForbidden, "archive is read-only")

	// ErrAlreadyExists is returned by Mkdir and Touch when a conflicting
	// record exists: a file where a directory is requested, or vice versa.
	ErrAlreadyExists = platformerrors.New(platformerrors.CodeAlreadyExists, "path already exists")

	// ErrInvalidMode is returned for unsupported mode strings or mode/format
	// combinations, such as appending to a compressed TAR archive.
	ErrInvalidMode = platformerrors.New(platformerrors.CodeInvalidInput, "invalid archive mode")

	// ErrUnsupported is returned when the underlying codec cannot perform the
	// requested operation at all, such as writing a 7z archive or compressing
	// with bzip2.
	ErrUnsupported = platformerrors.New(platformerrors.CodeNotImplemented, "operation not supported by this archive format")

	// ErrNotExist is returned when the target itself is absent on a read.
	// Re-exported from io/fs for convenience.
	ErrNotExist = fs.ErrNotExist

	// ErrClosed is returned when an operation is performed on a closed
	// archive that cannot transparently reopen.
	// Re-exported from io/fs for convenience.
	ErrClosed = fs.ErrClosed
)

// ArchiveError provides context about a failed archive operation.
// It wraps the underlying error with the operation name, the archive target,
// and the member involved, and supports errors.Is/errors.As through Unwrap.
//
//nolint:errname // ArchiveError matches the naming of the exported Archive type
type ArchiveError struct {
	// Op is the operation that failed (e.g. "open", "glob", "mkdir").
	Op string

	// Target is the archive location the operation ran against.
	Target string

	// Member is the relative member path involved, if any.
	Member string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("%s %s: member %s: %v", e.Op, e.Target, e.Member, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// newError wraps err in an ArchiveError. Returns nil if err is nil.
func newError(op, target, member string, err error) error {
	if err == nil {
		return nil
	}
	return &ArchiveError{Op: op, Target: target, Member: member, Err: err}
}
