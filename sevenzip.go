package archive

import (
	"io"
	"os"

	"github.com/bodgit/sevenzip"

	"github.com/moi90/omni-archive/internal/pathutil"
)

var sevenZipFormat = &format{
	name:       "7z",
	extensions: []string{".7z"},
	readable: func(target string) bool {
		return hasMagic(sniff(target, len(sevenZipMagic)), sevenZipMagic)
	},
	open: newSevenZipBackend,
}

// sevenZipBackend serves members from a 7z archive. Writing 7z is not
// supported, so the backend only ever exists in read mode; dispatch rejects
// writable modes before construction.
type sevenZipBackend struct {
	target string
	reader *sevenzip.ReadCloser
	files  map[string]*sevenzip.File
	index  *memberIndex
	closed bool
}

func newSevenZipBackend(target string, mode Mode) (backend, error) {
	if mode.writable() {
		return nil, ErrUnsupported
	}
	b := &sevenZipBackend{target: target}
	return b, b.open()
}

func (b *sevenZipBackend) open() error {
	r, err := sevenzip.OpenReader(b.target)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return err
	}
	b.reader = r
	b.files = make(map[string]*sevenzip.File, len(r.File))
	b.index = newMemberIndex()
	for _, f := range r.File {
		isDir := f.FileInfo().IsDir()
		b.index.add(f.Name, isDir, !isDir, false)
		if !isDir {
			b.files[pathutil.Normalize(f.Name)] = f
		}
	}
	b.closed = false
	return nil
}

func (b *sevenZipBackend) reopen() error {
	if !b.closed {
		return nil
	}
	return ErrClosed
}

func (b *sevenZipBackend) list() ([]memberEntry, error) {
	return b.index.list(), nil
}

func (b *sevenZipBackend) stat(name string) (memberStat, error) {
	return b.index.stat(name), nil
}

func (b *sevenZipBackend) openMember(name string) (io.ReadCloser, error) {
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
	f, ok := b.files[name]
	if !ok {
		return nil, ErrNoData
	}
	return f.Open()
}

func (b *sevenZipBackend) createMember(string, memberOptions) (io.WriteCloser, error) {
	return nil, ErrReadOnly
}

func (b *sevenZipBackend) writeMember(string, io.Reader, memberOptions) error {
	return ErrReadOnly
}

func (b *sevenZipBackend) mkdir(string) error { return ErrReadOnly }

func (b *sevenZipBackend) touch(string) error { return ErrReadOnly }

func (b *sevenZipBackend) close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.reader != nil {
		err := b.reader.Close()
		b.reader = nil
		return err
	}
	return nil
}
