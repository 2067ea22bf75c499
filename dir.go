package archive

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/moi90/omni-archive/internal/pathutil"
)

var dirFormat = &format{
	name: "dir",
	// The empty extension matches any target, so "dir" acts as the
	// catch-all when no archive extension applies. It must stay last in
	// the dispatch table.
	extensions: []string{""},
	readable: func(target string) bool {
		info, err := os.Stat(target)
		return err == nil && info.IsDir()
	},
	open: newDirBackend,
}

// dirBackend serves members from an ordinary directory tree, rooted at the
// target via a chrooted filesystem so member paths cannot escape it.
type dirBackend struct {
	target string
	fs     billy.Filesystem
}

func newDirBackend(target string, mode Mode) (backend, error) {
	if mode.writable() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, err
		}
	}
	b := &dirBackend{target: target, fs: osfs.New(target)}
	return b, b.reopen()
}

func (b *dirBackend) reopen() error {
	info, err := os.Stat(b.target)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return err
	}
	if !info.IsDir() {
		return ErrUnknownFormat
	}
	return nil
}

func (b *dirBackend) list() ([]memberEntry, error) {
	var entries []memberEntry
	var walk func(dir string) error
	walk = func(dir string) error {
		infos, err := b.fs.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, info := range infos {
			name := pathutil.Join(dir, info.Name())
			entries = append(entries, memberEntry{name: name, dir: info.IsDir()})
			if info.IsDir() {
				if err := walk(name); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *dirBackend) stat(name string) (memberStat, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		if os.IsNotExist(err) {
			return memberStat{}, nil
		}
		return memberStat{}, err
	}
	if info.IsDir() {
		return memberStat{dir: true}, nil
	}
	return memberStat{file: true}, nil
}

func (b *dirBackend) openMember(name string) (io.ReadCloser, error) {
	s, err := b.stat(name)
	if err != nil {
		return nil, err
	}
	if s.dir {
		return nil, ErrNoData
	}
	f, err := b.fs.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return f, nil
}

func (b *dirBackend) createMember(name string, _ memberOptions) (io.WriteCloser, error) {
	if parent := pathutil.Parent(name); parent != "" {
		if err := b.fs.MkdirAll(parent, 0o755); err != nil {
			return nil, err
		}
	}
	return b.fs.Create(name)
}

func (b *dirBackend) writeMember(name string, src io.Reader, o memberOptions) error {
	f, err := b.createMember(name, o)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (b *dirBackend) mkdir(name string) error {
	if parent := pathutil.Parent(name); parent != "" {
		s, err := b.stat(parent)
		if err != nil {
			return err
		}
		if !s.dir {
			return ErrMemberNotFound
		}
	}
	return b.fs.MkdirAll(name, 0o755)
}

func (b *dirBackend) touch(name string) error {
	s, err := b.stat(name)
	if err != nil {
		return err
	}
	if s.file {
		now := time.Now()
		return os.Chtimes(filepath.Join(b.target, filepath.FromSlash(name)), now, now)
	}
	f, err := b.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (b *dirBackend) close() error { return nil }
