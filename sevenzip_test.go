package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	archive "github.com/moi90/omni-archive"
)

func TestSevenZipWriteRejected(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.7z")
	for _, mode := range []archive.Mode{archive.ModeWrite, archive.ModeAppend} {
		if _, err := archive.Open(target, mode); !errors.Is(err, archive.ErrUnsupported) {
			t.Errorf("Open(.7z, %v): got %v, want ErrUnsupported", mode, err)
		}
	}
}

func TestSevenZipCorruptTarget(t *testing.T) {
	// The signature alone dispatches to the 7z backend, which then rejects
	// the truncated container instead of falling through to another format.
	target := filepath.Join(t.TempDir(), "trunc.7z")
	data := []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c, 0x00, 0x04}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Open(target, archive.ModeRead); err == nil {
		t.Error("Open(truncated 7z): expected an error")
	}
}
