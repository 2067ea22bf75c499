package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return target
}

func TestMatchExtension(t *testing.T) {
	cases := []struct {
		target string
		format *format
		want   bool
	}{
		{"a.zip", zipFormat, true},
		{"A.Zip", zipFormat, true},
		{"a.zip.bak", zipFormat, false},
		{"a.tar", tarFormat, true},
		{"a.tar.bz2", tarFormat, true},
		{"a.tbz2", tarFormat, true},
		{"a.tz2", tarFormat, true},
		{"a.txz", tarFormat, true},
		{"a.tlz", tarFormat, true},
		{"a.tarx", tarFormat, false},
		{"a.7z", sevenZipFormat, true},
		{"a.7zip", sevenZipFormat, false},
		{"anything", dirFormat, true},
		{"a.zip", dirFormat, true},
	}
	for _, c := range cases {
		if got := c.format.matchExtension(c.target); got != c.want {
			t.Errorf("%s.matchExtension(%q): got %v, want %v", c.format.name, c.target, got, c.want)
		}
	}
}

func TestZipProbe(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("m.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("m")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	target := writeTemp(t, "noext", buf.Bytes())
	if !zipFormat.readable(target) {
		t.Error("populated zip not recognized")
	}

	// An empty archive starts with the end-of-central-directory record.
	buf.Reset()
	if err := zip.NewWriter(&buf).Close(); err != nil {
		t.Fatal(err)
	}
	target = writeTemp(t, "empty", buf.Bytes())
	if !zipFormat.readable(target) {
		t.Error("empty zip not recognized")
	}

	if zipFormat.readable(writeTemp(t, "junk", []byte("junk data"))) {
		t.Error("junk recognized as zip")
	}
	if zipFormat.readable(t.TempDir()) {
		t.Error("directory recognized as zip")
	}
}

func TestTarProbe(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: "m.txt", Mode: 0o644, Size: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte("m")); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	plain := buf.Bytes()

	if !tarFormat.readable(writeTemp(t, "noext", plain)) {
		t.Error("plain tar not recognized")
	}

	var gzbuf bytes.Buffer
	gw := gzip.NewWriter(&gzbuf)
	if _, err := gw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if !tarFormat.readable(writeTemp(t, "noext2", gzbuf.Bytes())) {
		t.Error("gzipped tar not recognized")
	}

	// A member-less archive is just trailer blocks.
	var empty bytes.Buffer
	if err := tar.NewWriter(&empty).Close(); err != nil {
		t.Fatal(err)
	}
	if !tarFormat.readable(writeTemp(t, "noext3", empty.Bytes())) {
		t.Error("empty tar not recognized")
	}

	if tarFormat.readable(writeTemp(t, "junk", []byte("junk that is not tar"))) {
		t.Error("junk recognized as tar")
	}
	if tarFormat.readable(t.TempDir()) {
		t.Error("directory recognized as tar")
	}

	// A gzip frame around something that is not tar is rejected.
	gzbuf.Reset()
	gw = gzip.NewWriter(&gzbuf)
	if _, err := gw.Write([]byte("compressed junk, definitely not tar blocks")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if tarFormat.readable(writeTemp(t, "noext4", gzbuf.Bytes())) {
		t.Error("gzipped junk recognized as tar")
	}
}

func TestSevenZipProbe(t *testing.T) {
	magic := append([]byte{}, sevenZipMagic...)
	magic = append(magic, 0, 4)
	if !sevenZipFormat.readable(writeTemp(t, "noext", magic)) {
		t.Error("7z magic not recognized")
	}
	if sevenZipFormat.readable(writeTemp(t, "junk", []byte("junk"))) {
		t.Error("junk recognized as 7z")
	}
}

func TestDispatchOrder(t *testing.T) {
	// The directory catch-all must come last or it would shadow the
	// archive formats in write mode.
	if formats[len(formats)-1] != dirFormat {
		t.Fatal("dir format is not the final dispatch entry")
	}

	f, err := dispatch("anything.zip", ModeWrite)
	if err != nil || f != zipFormat {
		t.Errorf("dispatch(.zip, write): got %v, %v", f, err)
	}
	f, err = dispatch("bare", ModeWrite)
	if err != nil || f != dirFormat {
		t.Errorf("dispatch(bare, write): got %v, %v", f, err)
	}
}

func TestSniff(t *testing.T) {
	target := writeTemp(t, "short", []byte("ab"))
	if got := sniff(target, 6); !bytes.Equal(got, []byte("ab")) {
		t.Errorf("sniff(short file): %q", got)
	}
	if got := sniff(t.TempDir(), 4); got != nil {
		t.Errorf("sniff(directory): %q", got)
	}
	if got := sniff(filepath.Join(t.TempDir(), "absent"), 4); got != nil {
		t.Errorf("sniff(absent): %q", got)
	}
	if !hasMagic([]byte{0x1f, 0x8b, 0x08}, gzipMagic) {
		t.Error("gzip magic not matched")
	}
	if hasMagic([]byte{0x1f}, gzipMagic) {
		t.Error("truncated magic matched")
	}
}

func TestCompressionDetection(t *testing.T) {
	byExt := []struct {
		target string
		want   string
	}{
		{"a.tar", compNone},
		{"a.tar.gz", compGzip},
		{"a.tgz", compGzip},
		{"a.taz", compGzip},
		{"a.tar.bz2", compBzip2},
		{"a.tbz", compBzip2},
		{"a.tar.xz", compXz},
		{"a.txz", compXz},
		{"a.tar.lzma", compLzma},
		{"a.tlz", compLzma},
		{"A.TGZ", compGzip},
	}
	for _, c := range byExt {
		if got := tarCompressionByExtension(c.target); got != c.want {
			t.Errorf("tarCompressionByExtension(%q): got %q, want %q", c.target, got, c.want)
		}
	}
}
