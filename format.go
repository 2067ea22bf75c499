package archive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// format describes one registered backend: its content probe for read-mode
// dispatch and its extension set for write-mode dispatch. New backends are
// added by appending to the formats table, which is evaluated in order.
type format struct {
	name       string
	extensions []string
	readable   func(target string) bool
	open       func(target string, mode Mode) (backend, error)
}

// formats is the fixed dispatch order. The directory format registers the
// empty extension, matching any target, and therefore has to come last.
var formats = []*format{
	zipFormat,
	tarFormat,
	sevenZipFormat,
	dirFormat,
}

// matchExtension reports whether the target's suffix is in the format's
// registered extension set. The empty extension matches everything.
func (f *format) matchExtension(target string) bool {
	lower := strings.ToLower(target)
	for _, ext := range f.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// dispatch selects the backend format for target. Read mode probes content;
// write and append modes match extensions, since the target may not exist
// yet to sniff.
func dispatch(target string, mode Mode) (*format, error) {
	if mode == ModeRead {
		for _, f := range formats {
			if f.readable(target) {
				return f, nil
			}
		}
		return nil, ErrUnknownFormat
	}

	for _, f := range formats {
		if f.matchExtension(target) {
			return f, nil
		}
	}
	return nil, ErrUnknownFormat
}

// Magic numbers for the content probes.
var (
	zipMagicLocal = []byte{0x50, 0x4b, 0x03, 0x04} // PK\x03\x04, local file header
	zipMagicEmpty = []byte{0x50, 0x4b, 0x05, 0x06} // PK\x05\x06, empty archive
	sevenZipMagic = []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c}
	gzipMagic     = []byte{0x1f, 0x8b}
	bzip2Magic    = []byte("BZh")
	xzMagic       = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// sniff reads up to n leading bytes of a regular file. It returns nil for
// directories and unreadable targets.
func sniff(target string, n int) []byte {
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return nil
	}
	f, err := os.Open(target)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, n)
	read, err := readAtLeastLenient(f, buf)
	if err != nil {
		return nil
	}
	return buf[:read]
}

func hasMagic(buf, magic []byte) bool {
	return bytes.HasPrefix(buf, magic)
}

// readAtLeastLenient fills buf as far as the reader allows, treating a short
// read at end of input as success.
func readAtLeastLenient(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}
