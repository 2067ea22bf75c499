// Package pathutil provides normalization and inspection helpers for the
// relative, slash-separated member paths used throughout the archive package.
package pathutil

import (
	"path"
	"strings"
)

// Normalize cleans a member path into the canonical relative form:
// forward slashes, no leading or trailing slash, "." and ".." resolved.
// Leading ".." segments are dropped, so walking above the archive root clamps
// at the root. The root itself is the empty string.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return strings.Trim(p, "/")
}

// Join joins path segments onto a normalized base path.
func Join(base string, segments ...string) string {
	parts := append([]string{base}, segments...)
	return Normalize(path.Join(parts...))
}

// Parent returns the parent of a normalized path, and "" for top-level names
// and for the root itself.
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the final segment of a normalized path, and "" for the root.
func Base(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Suffix returns the extension of the final segment, including the leading
// dot, or "" if there is none.
func Suffix(p string) string {
	return path.Ext(Base(p))
}

// Stem returns the final segment without its suffix.
func Stem(p string) string {
	base := Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ChildPrefix returns the prefix that direct and indirect children of a
// normalized path share: "" for the root, p+"/" otherwise.
func ChildPrefix(p string) string {
	if p == "" {
		return ""
	}
	return p + "/"
}

// IsAncestor reports whether ancestor is the root or a proper prefix
// directory of p.
func IsAncestor(ancestor, p string) bool {
	if ancestor == "" {
		return p != ""
	}
	return strings.HasPrefix(p, ancestor+"/")
}
