package archive_test

import (
	"path/filepath"
	"testing"

	"github.com/moi90/omni-archive/archivetest"
)

func TestDirConformance(t *testing.T) {
	archivetest.TestArchive(t, archivetest.Config{
		Format: "dir",
		NewTarget: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "container")
		},
		CanAppend:        true,
		ImmediateRead:    true,
		ReopenAfterClose: true,
	})
}

func TestZipConformance(t *testing.T) {
	archivetest.TestArchive(t, archivetest.Config{
		Format: "zip",
		NewTarget: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "test.zip")
		},
		CanAppend: true,
	})
}

func TestTarConformance(t *testing.T) {
	archivetest.TestArchive(t, archivetest.Config{
		Format: "tar",
		NewTarget: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "test.tar")
		},
		CanAppend: true,
	})
}

func TestTarGzipConformance(t *testing.T) {
	archivetest.TestArchive(t, archivetest.Config{
		Format: "tar",
		NewTarget: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "test.tgz")
		},
	})
}

func TestTarXzConformance(t *testing.T) {
	archivetest.TestArchive(t, archivetest.Config{
		Format: "tar",
		NewTarget: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "test.tar.xz")
		},
	})
}
