package archive

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/moi90/omni-archive/internal/pathutil"
)

var zipFormat = &format{
	name:       "zip",
	extensions: []string{".zip"},
	readable: func(target string) bool {
		head := sniff(target, 4)
		return hasMagic(head, zipMagicLocal) || hasMagic(head, zipMagicEmpty)
	},
	open: newZipBackend,
}

const (
	zipStateUnopened = iota
	zipStateOpen
	zipStateClosed
)

// zipBackend serves members from a ZIP archive. In read mode members are
// random-access through the central directory. In write and append mode new
// members stream straight into a zip.Writer; an append session first copies
// the existing entries forward and keeps the old central directory readable
// for the rest of the session.
type zipBackend struct {
	target string
	mode   Mode
	state  int

	reader *zip.ReadCloser
	old    map[string]*zip.File

	file   *os.File
	writer *zip.Writer

	index *memberIndex
	cur   *zipMemberWriter
}

func newZipBackend(target string, mode Mode) (backend, error) {
	b := &zipBackend{target: target, mode: mode}
	return b, b.ensure()
}

// ensure materializes the backend on first use after construction or reopen.
func (b *zipBackend) ensure() error {
	switch b.state {
	case zipStateOpen:
		return nil
	case zipStateClosed:
		return ErrClosed
	}
	b.index = newMemberIndex()
	b.old = nil

	switch b.mode {
	case ModeRead:
		r, err := zip.OpenReader(b.target)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrNotExist
			}
			return err
		}
		b.reader = r
		b.old = make(map[string]*zip.File, len(r.File))
		for _, f := range r.File {
			b.indexFile(f, false)
		}

	case ModeWrite:
		f, err := os.Create(b.target)
		if err != nil {
			return err
		}
		b.file = f
		b.writer = zip.NewWriter(f)

	case ModeAppend:
		data, err := os.ReadFile(b.target)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		// Parse the existing archive before truncating the target, so a
		// corrupt file is left untouched.
		var zr *zip.Reader
		if len(data) > 0 {
			zr, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return err
			}
		}
		f, err := os.Create(b.target)
		if err != nil {
			return err
		}
		b.file = f
		b.writer = zip.NewWriter(f)
		if zr != nil {
			b.old = make(map[string]*zip.File, len(zr.File))
			for _, zf := range zr.File {
				if err := b.writer.Copy(zf); err != nil {
					_ = f.Close()
					return err
				}
				b.indexFile(zf, false)
			}
		}
	}
	b.state = zipStateOpen
	return nil
}

func (b *zipBackend) indexFile(f *zip.File, session bool) {
	isDir := f.FileInfo().IsDir()
	b.index.add(f.Name, isDir, !isDir, session)
	if b.old != nil && !isDir {
		b.old[pathutil.Normalize(f.Name)] = f
	}
}

func (b *zipBackend) reopen() error {
	if b.state != zipStateClosed {
		return nil
	}
	if b.mode != ModeAppend {
		return ErrClosed
	}
	b.state = zipStateUnopened
	b.reader = nil
	b.file = nil
	b.writer = nil
	b.cur = nil
	return b.ensure()
}

func (b *zipBackend) list() ([]memberEntry, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}
	return b.index.list(), nil
}

func (b *zipBackend) stat(name string) (memberStat, error) {
	if err := b.ensure(); err != nil {
		return memberStat{}, err
	}
	return b.index.stat(name), nil
}

func (b *zipBackend) openMember(name string) (io.ReadCloser, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}
	e, ok := b.index.lookup(name)
	if !ok {
		if b.index.stat(name).dir {
			return nil, ErrNoData
		}
		return nil, ErrMemberNotFound
	}
	if e.dir && !e.regular {
		return nil, ErrNoData
	}
	if e.session {
		// Written in this session; payload not retrievable until the
		// central directory is finalized on Close.
		return nil, ErrNoData
	}
	f, ok := b.old[pathutil.Normalize(name)]
	if !ok {
		return nil, ErrNoData
	}
	return f.Open()
}

func (b *zipBackend) createMember(name string, o memberOptions) (io.WriteCloser, error) {
	w, err := b.createRaw(name, o)
	if err != nil {
		return nil, err
	}
	b.index.add(name, false, true, true)
	return w, nil
}

func (b *zipBackend) createRaw(name string, o memberOptions) (*zipMemberWriter, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}
	b.retire()
	method := uint16(zip.Deflate)
	if o.store {
		method = zip.Store
	}
	w, err := b.writer.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	mw := &zipMemberWriter{w: w}
	b.cur = mw
	return mw, nil
}

// retire marks any still-open member stream as finished. The zip writer only
// supports one open member at a time; starting the next entry finalizes the
// previous one.
func (b *zipBackend) retire() {
	if b.cur != nil {
		b.cur.closed = true
		b.cur = nil
	}
}

func (b *zipBackend) writeMember(name string, src io.Reader, o memberOptions) error {
	w, err := b.createMember(name, o)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *zipBackend) mkdir(name string) error {
	if err := b.ensure(); err != nil {
		return err
	}
	b.retire()
	_, err := b.writer.CreateHeader(&zip.FileHeader{
		Name:     name + "/",
		Method:   zip.Store,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	b.index.add(name, true, false, true)
	return nil
}

func (b *zipBackend) touch(name string) error {
	w, err := b.createRaw(name, memberOptions{store: true})
	if err != nil {
		return err
	}
	b.index.add(name, false, true, true)
	return w.Close()
}

func (b *zipBackend) close() error {
	if b.state != zipStateOpen {
		b.state = zipStateClosed
		return nil
	}
	b.state = zipStateClosed
	b.retire()

	var firstErr error
	if b.writer != nil {
		if err := b.writer.Close(); err != nil {
			firstErr = err
		}
	}
	if b.file != nil {
		if err := b.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.reader != nil {
		if err := b.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.reader = nil
	b.file = nil
	b.writer = nil
	b.old = nil
	return firstErr
}

// zipMemberWriter is the payload stream for a member being written. The
// underlying zip writer finalizes the entry when the next one starts or the
// archive closes; Close only fences off further writes.
type zipMemberWriter struct {
	w      io.Writer
	closed bool
}

func (w *zipMemberWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.w.Write(p)
}

func (w *zipMemberWriter) Close() error {
	w.closed = true
	return nil
}
