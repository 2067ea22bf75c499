package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	archive "github.com/moi90/omni-archive"
)

func TestTarDeferredCommit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "deferred.tar")

	a, err := archive.Open(target, archive.ModeWrite)
	require.NoError(t, err)

	w, err := a.Join("member.txt").Create()
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)

	// Nothing is committed while the stream is open.
	exists, err := a.Join("member.txt").Exists()
	require.NoError(t, err)
	assert.False(t, exists, "member visible before its stream closed")

	require.NoError(t, w.Close())

	exists, err = a.Join("member.txt").Exists()
	require.NoError(t, err)
	assert.True(t, exists, "member not visible after its stream closed")

	// Closing twice commits once.
	require.NoError(t, w.Close())
	require.NoError(t, a.Close())

	r, err := archive.Open(target, archive.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := r.Join("member.txt").ReadFile()
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	var count int
	r.Members()(func(p *archive.Path, err error) bool {
		require.NoError(t, err)
		count++
		return true
	})
	assert.Equal(t, 1, count)
}

func TestTarAbandonedStreamNeverCommitted(t *testing.T) {
	target := filepath.Join(t.TempDir(), "abandoned.tar")

	a, err := archive.Open(target, archive.ModeWrite)
	require.NoError(t, err)

	require.NoError(t, a.Join("kept.txt").WriteFile([]byte("kept")))

	ghost, err := a.Join("ghost.txt").Create()
	require.NoError(t, err)
	_, err = ghost.Write([]byte("never committed"))
	require.NoError(t, err)
	// The stream is dropped without Close.
	require.NoError(t, a.Close())

	r, err := archive.Open(target, archive.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	exists, err := r.Join("ghost.txt").Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	data, err := r.Join("kept.txt").ReadFile()
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))

	// Committing into the closed session fails instead of corrupting it.
	assert.Error(t, ghost.Close())
}

func TestTarCompressedAppendRejected(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.tgz", "a.tar.gz", "a.tar.xz", "a.tlz"} {
		_, err := archive.Open(filepath.Join(dir, name), archive.ModeAppend)
		assert.ErrorIs(t, err, archive.ErrInvalidMode, name)
	}
}

func TestTarBzip2WriteUnsupported(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.tar.bz2", "a.tbz", "a.tbz2"} {
		_, err := archive.Open(filepath.Join(dir, name), archive.ModeWrite)
		assert.ErrorIs(t, err, archive.ErrUnsupported, name)
	}
}

func TestTarCompressionRoundTrips(t *testing.T) {
	payload := []byte("the same payload through every framing")
	for _, name := range []string{"a.tar", "a.tar.gz", "a.tgz", "a.tar.xz", "a.txz", "a.tar.lzma", "a.tlz"} {
		t.Run(name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), name)

			a, err := archive.Open(target, archive.ModeWrite)
			require.NoError(t, err)
			require.NoError(t, a.Join("m.bin").WriteFile(payload))
			require.NoError(t, a.Close())

			r, err := archive.Open(target, archive.ModeRead)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			assert.Equal(t, "tar", r.Format())
			data, err := r.Join("m.bin").ReadFile()
			require.NoError(t, err)
			assert.Equal(t, payload, data)
		})
	}
}

func TestTarLaterEntryShadowsEarlier(t *testing.T) {
	target := filepath.Join(t.TempDir(), "shadow.tar")

	a, err := archive.Open(target, archive.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, a.Join("m.txt").WriteFile([]byte("first")))
	require.NoError(t, a.Join("m.txt").WriteFile([]byte("second, longer payload")))
	require.NoError(t, a.Close())

	r, err := archive.Open(target, archive.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := r.Join("m.txt").ReadFile()
	require.NoError(t, err)
	assert.Equal(t, "second, longer payload", string(data))
}

func TestTarAppendPreservesExistingBytes(t *testing.T) {
	target := filepath.Join(t.TempDir(), "grow.tar")

	a, err := archive.Open(target, archive.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, a.Join("one.txt").WriteFile([]byte("one")))
	require.NoError(t, a.Close())

	sizeBefore := fileSize(t, target)

	s, err := archive.Open(target, archive.ModeAppend)
	require.NoError(t, err)
	require.NoError(t, s.Join("two.txt").WriteFile([]byte("two")))
	require.NoError(t, s.Close())

	// Appending replaces only the trailer; the archive strictly grows.
	assert.Greater(t, fileSize(t, target), sizeBefore)

	r, err := archive.Open(target, archive.ModeRead)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	for name, want := range map[string]string{"one.txt": "one", "two.txt": "two"} {
		data, err := r.Join(name).ReadFile()
		require.NoError(t, err, name)
		assert.Equal(t, want, string(data), name)
	}
}

func fileSize(t *testing.T, target string) int64 {
	t.Helper()
	info, err := os.Stat(target)
	require.NoError(t, err)
	return info.Size()
}
