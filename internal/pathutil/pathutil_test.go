package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"a", "a"},
		{"a/b", "a/b"},
		{"/a/b/", "a/b"},
		{"a//b", "a/b"},
		{"./a/./b", "a/b"},
		{"a/b/../c", "a/c"},
		{"..", ""},
		{"../..", ""},
		{"../../a", "a"},
		{`a\b\c`, "a/b/c"},
		{"a/..", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		base     string
		segments []string
		want     string
	}{
		{"", nil, ""},
		{"", []string{"a"}, "a"},
		{"a", []string{"b", "c"}, "a/b/c"},
		{"a", []string{"b/c"}, "a/b/c"},
		{"a", []string{".."}, ""},
		{"a", []string{"..", "..", "b"}, "b"},
		{"a/b", []string{"../c"}, "a/c"},
	}
	for _, c := range cases {
		if got := Join(c.base, c.segments...); got != c.want {
			t.Errorf("Join(%q, %v): got %q, want %q", c.base, c.segments, got, c.want)
		}
	}
}

func TestParent(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"a":     "",
		"a/b":   "a",
		"a/b/c": "a/b",
	}
	for in, want := range cases {
		if got := Parent(in); got != want {
			t.Errorf("Parent(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestNameParts(t *testing.T) {
	cases := []struct {
		in                 string
		base, stem, suffix string
	}{
		{"", "", "", ""},
		{"a", "a", "a", ""},
		{"a.txt", "a.txt", "a", ".txt"},
		{"d/a.tar.gz", "a.tar.gz", "a.tar", ".gz"},
		{"d/.hidden", ".hidden", "", ".hidden"},
		{"d/noext", "noext", "noext", ""},
	}
	for _, c := range cases {
		if got := Base(c.in); got != c.base {
			t.Errorf("Base(%q): got %q, want %q", c.in, got, c.base)
		}
		if got := Stem(c.in); got != c.stem {
			t.Errorf("Stem(%q): got %q, want %q", c.in, got, c.stem)
		}
		if got := Suffix(c.in); got != c.suffix {
			t.Errorf("Suffix(%q): got %q, want %q", c.in, got, c.suffix)
		}
	}
}

func TestChildPrefix(t *testing.T) {
	if got := ChildPrefix(""); got != "" {
		t.Errorf("ChildPrefix(root): got %q", got)
	}
	if got := ChildPrefix("a/b"); got != "a/b/" {
		t.Errorf("ChildPrefix(a/b): got %q", got)
	}
}

func TestIsAncestor(t *testing.T) {
	cases := []struct {
		ancestor, p string
		want        bool
	}{
		{"", "a", true},
		{"", "", false},
		{"a", "a/b", true},
		{"a", "a/b/c", true},
		{"a", "a", false},
		{"a", "ab/c", false},
		{"a/b", "a/b/c", true},
		{"a/b", "a/bc", false},
	}
	for _, c := range cases {
		if got := IsAncestor(c.ancestor, c.p); got != c.want {
			t.Errorf("IsAncestor(%q, %q): got %v, want %v", c.ancestor, c.p, got, c.want)
		}
	}
}
