package archive

import (
	"github.com/moi90/omni-archive/internal/pathutil"
)

// memberIndex reconciles a container's flat member-name list with the
// hierarchical path contract. It records explicit entries in encounter order
// and synthesizes the intermediate directories implied by nested member
// names, the same way S3-style object stores expose virtual directories.
type memberIndex struct {
	order   []string
	entries map[string]*indexEntry
}

type indexEntry struct {
	name string
	dir  bool
	// regular is true for file entries whose payload can be retrieved.
	// Directories and non-regular records read as ErrNoData.
	regular bool
	// session marks entries written during the current write session, whose
	// payload is not retrievable until the archive is reopened for reading.
	session bool
}

func newMemberIndex() *memberIndex {
	return &memberIndex{entries: make(map[string]*indexEntry)}
}

// add records an explicit entry, overwriting any previous record of the same
// name. Names may carry a trailing slash as a native directory marker.
func (ix *memberIndex) add(name string, dir, regular, session bool) {
	trimmed := pathutil.Normalize(name)
	if trimmed == "" {
		return
	}
	if len(name) > 0 && name[len(name)-1] == '/' {
		dir = true
	}
	if _, ok := ix.entries[trimmed]; !ok {
		ix.order = append(ix.order, trimmed)
	}
	ix.entries[trimmed] = &indexEntry{name: trimmed, dir: dir, regular: regular, session: session}
}

// lookup returns the explicit entry at name, if any.
func (ix *memberIndex) lookup(name string) (*indexEntry, bool) {
	e, ok := ix.entries[name]
	return e, ok
}

// stat resolves the record kind at name. A native directory record is
// preferred; when none exists the directory bit is synthesized from the
// parent chain of the explicit entries. The two sources are OR-ed, so a
// native marker is never required and never contradicted.
func (ix *memberIndex) stat(name string) memberStat {
	var s memberStat
	if e, ok := ix.entries[name]; ok {
		s.file = !e.dir
		s.dir = e.dir
	}
	if !s.dir {
		for _, e := range ix.entries {
			if pathutil.IsAncestor(name, e.name) {
				s.dir = true
				break
			}
		}
	}
	return s
}

// list returns the explicit entries in encounter order, followed by the
// synthesized intermediate directories in first-seen order.
func (ix *memberIndex) list() []memberEntry {
	out := make([]memberEntry, 0, len(ix.order))
	for _, name := range ix.order {
		out = append(out, memberEntry{name: name, dir: ix.entries[name].dir})
	}
	seen := make(map[string]bool, len(ix.order))
	for _, name := range ix.order {
		seen[name] = true
	}
	for _, name := range ix.order {
		for parent := pathutil.Parent(name); parent != ""; parent = pathutil.Parent(parent) {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			out = append(out, memberEntry{name: parent, dir: true})
		}
	}
	return out
}

// len returns the number of explicit entries.
func (ix *memberIndex) len() int {
	return len(ix.order)
}
