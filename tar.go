package archive

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"

	"github.com/moi90/omni-archive/internal/pathutil"
)

var tarFormat = &format{
	name: "tar",
	extensions: []string{
		".tar",
		".tar.gz", ".taz", ".tgz",
		".tar.bz2", ".tb2", ".tbz", ".tbz2", ".tz2",
		".tar.xz", ".txz",
		".tar.lzma", ".tlz",
	},
	readable: tarReadable,
	open:     newTarBackend,
}

// Compression framings around the tar stream. Detected by magic bytes for
// reading and by target extension for writing; lzma has no reliable magic,
// so it is recognized by extension only.
const (
	compNone  = ""
	compGzip  = "gzip"
	compBzip2 = "bzip2"
	compXz    = "xz"
	compLzma  = "lzma"
)

var tarCompExtensions = map[string]string{
	".tar.gz": compGzip, ".taz": compGzip, ".tgz": compGzip,
	".tar.bz2": compBzip2, ".tb2": compBzip2, ".tbz": compBzip2,
	".tbz2": compBzip2, ".tz2": compBzip2,
	".tar.xz": compXz, ".txz": compXz,
	".tar.lzma": compLzma, ".tlz": compLzma,
}

func tarCompressionByExtension(target string) string {
	lower := strings.ToLower(target)
	for ext, comp := range tarCompExtensions {
		if strings.HasSuffix(lower, ext) {
			return comp
		}
	}
	return compNone
}

func tarCompressionByContent(target string) string {
	head := sniff(target, 6)
	switch {
	case hasMagic(head, gzipMagic):
		return compGzip
	case hasMagic(head, bzip2Magic):
		return compBzip2
	case hasMagic(head, xzMagic):
		return compXz
	case tarCompressionByExtension(target) == compLzma:
		return compLzma
	default:
		return compNone
	}
}

// tarReadable probes whether the target is a tar stream, de-framing any
// recognized compression first. A compressed frame with an empty tar body
// counts; an uncompressed candidate must start with a valid header block.
func tarReadable(target string) bool {
	f, err := os.Open(target)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	comp := tarCompressionByContent(target)
	r, closers, err := newDecompressor(f, comp)
	if err != nil {
		return false
	}
	defer closeAll(closers)

	_, err = tar.NewReader(r).Next()
	if err == nil {
		return true
	}
	if !errors.Is(err, io.EOF) {
		return false
	}
	if comp != compNone {
		// The compression frame itself is strong evidence; an empty tar
		// body inside it still counts.
		return true
	}
	return isEmptyTar(target)
}

// isEmptyTar reports whether target is a member-less tar archive: a nonzero
// whole number of blocks starting with an all-zero trailer block.
func isEmptyTar(target string) bool {
	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 || info.Size()%tarBlockSize != 0 {
		return false
	}
	head := sniff(target, tarBlockSize)
	if len(head) != tarBlockSize {
		return false
	}
	for _, c := range head {
		if c != 0 {
			return false
		}
	}
	return true
}

func newDecompressor(r io.Reader, comp string) (io.Reader, []io.Closer, error) {
	switch comp {
	case compGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, []io.Closer{gr}, nil
	case compBzip2:
		return bzip2.NewReader(r), nil, nil
	case compXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, nil, nil
	case compLzma:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return lr, nil, nil
	default:
		return r, nil, nil
	}
}

func newCompressor(w io.Writer, comp string) (io.Writer, []io.Closer, error) {
	switch comp {
	case compGzip:
		gw := gzip.NewWriter(w)
		return gw, []io.Closer{gw}, nil
	case compBzip2:
		return nil, nil, ErrUnsupported
	case compXz:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return xw, []io.Closer{xw}, nil
	case compLzma:
		lw, err := lzma.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return lw, []io.Closer{lw}, nil
	default:
		return w, nil, nil
	}
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

const (
	tarStateUnopened = iota
	tarStateOpen
	tarStateClosed
)

// tarBackend serves members from a tar archive, optionally inside a gzip,
// bzip2, xz or lzma frame. Tar is a pure stream format, so reads scan the
// file front to back per operation and writes only ever append.
type tarBackend struct {
	target string
	mode   Mode
	comp   string
	state  int

	file    *os.File
	writers []io.Closer
	tw      *tar.Writer

	index *memberIndex
}

func newTarBackend(target string, mode Mode) (backend, error) {
	b := &tarBackend{target: target, mode: mode}
	if mode == ModeRead {
		b.comp = tarCompressionByContent(target)
	} else {
		b.comp = tarCompressionByExtension(target)
	}
	if mode == ModeAppend && b.comp != compNone {
		// A compressed stream cannot be resumed in place.
		return nil, ErrInvalidMode
	}
	if mode.writable() && b.comp == compBzip2 {
		return nil, ErrUnsupported
	}
	return b, b.ensure()
}

func (b *tarBackend) ensure() error {
	switch b.state {
	case tarStateOpen:
		return nil
	case tarStateClosed:
		return ErrClosed
	}
	b.index = nil

	switch b.mode {
	case ModeRead:
		if _, err := os.Stat(b.target); err != nil {
			if os.IsNotExist(err) {
				return ErrNotExist
			}
			return err
		}

	case ModeWrite:
		f, err := os.Create(b.target)
		if err != nil {
			return err
		}
		cw, closers, err := newCompressor(f, b.comp)
		if err != nil {
			_ = f.Close()
			return err
		}
		b.file = f
		b.writers = closers
		b.tw = tar.NewWriter(cw)
		b.index = newMemberIndex()

	case ModeAppend:
		if err := b.openForAppend(); err != nil {
			return err
		}
	}
	b.state = tarStateOpen
	return nil
}

// openForAppend positions the write cursor over the archive trailer: every
// existing entry is scanned and indexed, the file is truncated to the last
// block boundary past the final entry, and a fresh tar writer continues from
// there. The trailer is rewritten on close.
func (b *tarBackend) openForAppend() error {
	f, err := os.OpenFile(b.target, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	b.index = newMemberIndex()

	cr := &countingReader{r: f}
	tr := tar.NewReader(cr)
	var end int64
	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			_ = f.Close()
			return err
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			_ = f.Close()
			return err
		}
		end = roundUpBlock(cr.n)
		b.indexHeader(hdr, false)
	}

	if err := f.Truncate(end); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Seek(end, io.SeekStart); err != nil {
		_ = f.Close()
		return err
	}
	b.file = f
	b.tw = tar.NewWriter(f)
	return nil
}

func (b *tarBackend) indexHeader(hdr *tar.Header, session bool) {
	isDir := hdr.Typeflag == tar.TypeDir || strings.HasSuffix(hdr.Name, "/")
	b.index.add(hdr.Name, isDir, hdr.Typeflag == tar.TypeReg, session)
}

const tarBlockSize = 512

func roundUpBlock(n int64) int64 {
	return (n + tarBlockSize - 1) / tarBlockSize * tarBlockSize
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (b *tarBackend) reopen() error {
	if b.state != tarStateClosed {
		return nil
	}
	if b.mode != ModeAppend {
		return ErrClosed
	}
	b.state = tarStateUnopened
	b.file = nil
	b.tw = nil
	return b.ensure()
}

// scan walks every entry of the archive on disk, calling fn with each header
// and a reader over its payload. fn returning false stops the walk. Partial
// trailers, as seen mid append session, end the walk cleanly.
func (b *tarBackend) scan(fn func(hdr *tar.Header, r io.Reader) (bool, error)) error {
	f, err := os.Open(b.target)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return err
	}
	defer func() { _ = f.Close() }()

	r, closers, err := newDecompressor(f, b.comp)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		more, err := fn(hdr, tr)
		if err != nil || !more {
			return err
		}
	}
}

// loadIndex builds the member index on first use. In read mode the archive
// is immutable, so the index is scanned once and cached; in append mode it
// was built when the session opened and is maintained incrementally.
func (b *tarBackend) loadIndex() (*memberIndex, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}
	if b.index != nil {
		return b.index, nil
	}
	idx := newMemberIndex()
	err := b.scan(func(hdr *tar.Header, _ io.Reader) (bool, error) {
		isDir := hdr.Typeflag == tar.TypeDir || strings.HasSuffix(hdr.Name, "/")
		idx.add(hdr.Name, isDir, hdr.Typeflag == tar.TypeReg, false)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	b.index = idx
	return idx, nil
}

func (b *tarBackend) list() ([]memberEntry, error) {
	idx, err := b.loadIndex()
	if err != nil {
		return nil, err
	}
	return idx.list(), nil
}

func (b *tarBackend) stat(name string) (memberStat, error) {
	idx, err := b.loadIndex()
	if err != nil {
		return memberStat{}, err
	}
	return idx.stat(name), nil
}

// openMember scans for the named entry. Entries later in the stream shadow
// earlier ones of the same name, so the scan first counts occurrences and
// then positions a fresh reader on the last one.
func (b *tarBackend) openMember(name string) (io.ReadCloser, error) {
	idx, err := b.loadIndex()
	if err != nil {
		return nil, err
	}
	e, ok := idx.lookup(name)
	if !ok {
		if idx.stat(name).dir {
			return nil, ErrNoData
		}
		return nil, ErrMemberNotFound
	}
	if e.session {
		return nil, ErrNoData
	}
	if e.dir && !e.regular {
		return nil, ErrNoData
	}

	occurrences := 0
	err = b.scan(func(hdr *tar.Header, _ io.Reader) (bool, error) {
		if pathutil.Normalize(hdr.Name) == name {
			occurrences++
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if occurrences == 0 {
		return nil, ErrMemberNotFound
	}

	f, err := os.Open(b.target)
	if err != nil {
		return nil, err
	}
	r, closers, err := newDecompressor(f, b.comp)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	closers = append(closers, f)

	tr := tar.NewReader(r)
	seen := 0
	for {
		hdr, err := tr.Next()
		if err != nil {
			closeAll(closers)
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrMemberNotFound
			}
			return nil, err
		}
		if pathutil.Normalize(hdr.Name) != name {
			continue
		}
		seen++
		if seen < occurrences {
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			closeAll(closers)
			return nil, ErrNoData
		}
		return &tarEntryReader{r: tr, closers: closers}, nil
	}
}

type tarEntryReader struct {
	r       io.Reader
	closers []io.Closer
}

func (r *tarEntryReader) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *tarEntryReader) Close() error {
	closeAll(r.closers)
	return nil
}

// createMember returns a buffering writer. Tar headers carry the payload
// size up front, so the member is held in memory and written as one
// committed entry when the stream closes; until then it is not part of the
// archive, and a stream that is never closed is never written.
func (b *tarBackend) createMember(name string, _ memberOptions) (io.WriteCloser, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}
	return &tarMemberWriter{b: b, name: name}, nil
}

type tarMemberWriter struct {
	b    *tarBackend
	name string
	buf  bytes.Buffer
	done bool
}

func (w *tarMemberWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

func (w *tarMemberWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.b.commit(w.name, w.buf.Bytes())
}

func (b *tarBackend) commit(name string, data []byte) error {
	if b.state != tarStateOpen {
		return ErrClosed
	}
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
	}
	if err := b.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := b.tw.Write(data); err != nil {
		return err
	}
	if err := b.tw.Flush(); err != nil {
		return err
	}
	b.index.add(name, false, true, true)
	return nil
}

func (b *tarBackend) writeMember(name string, src io.Reader, _ memberOptions) error {
	if err := b.ensure(); err != nil {
		return err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	return b.commit(name, data)
}

func (b *tarBackend) mkdir(name string) error {
	if err := b.ensure(); err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:     name + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  time.Now(),
	}
	if err := b.tw.WriteHeader(hdr); err != nil {
		return err
	}
	if err := b.tw.Flush(); err != nil {
		return err
	}
	b.index.add(name, true, false, true)
	return nil
}

func (b *tarBackend) touch(name string) error {
	if err := b.ensure(); err != nil {
		return err
	}
	return b.commit(name, nil)
}

func (b *tarBackend) close() error {
	if b.state != tarStateOpen {
		b.state = tarStateClosed
		return nil
	}
	b.state = tarStateClosed

	var firstErr error
	if b.tw != nil {
		if err := b.tw.Close(); err != nil {
			firstErr = err
		}
	}
	for _, c := range b.writers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.file = nil
	b.tw = nil
	b.writers = nil
	return firstErr
}
