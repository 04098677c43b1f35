package engine

import "mercator-hq/ropsim/pkg/templates"

// LivePath is a currently published link.
type LivePath struct {
	// ID is stable for the life of the process, across rotations.
	ID int `json:"id"`

	Category  templates.Category `json:"category"`
	NodeIndex int                `json:"node_index"`

	// Template is the bin path the link points at.
	Template string `json:"template"`

	// Path is the published link.
	Path string `json:"path"`
}

// Snapshot is a structural copy of the live set: path -> category.
type Snapshot map[string]templates.Category

type slot struct {
	category templates.Category
	index    int
}

// registry is an arena of live paths. Entries are never removed; rotation
// moves an entry to its new path in place.
type registry struct {
	entries []LivePath
	byPath  map[string]int
	bySlot  map[slot]int
}

func newRegistry() *registry {
	return &registry{
		byPath: make(map[string]int),
		bySlot: make(map[slot]int),
	}
}

func (r *registry) add(c templates.Category, index int, template, path string) LivePath {
	lp := LivePath{
		ID:        len(r.entries),
		Category:  c,
		NodeIndex: index,
		Template:  template,
		Path:      path,
	}
	r.entries = append(r.entries, lp)
	r.byPath[path] = lp.ID
	r.bySlot[slot{c, index}] = lp.ID
	return lp
}

func (r *registry) hasPath(path string) bool {
	_, ok := r.byPath[path]
	return ok
}

func (r *registry) hasSlot(c templates.Category, index int) bool {
	_, ok := r.bySlot[slot{c, index}]
	return ok
}

// move re-keys entry id under path. The backing template travels with it.
func (r *registry) move(id int, path string) {
	delete(r.byPath, r.entries[id].Path)
	r.entries[id].Path = path
	r.byPath[path] = id
}

func (r *registry) len() int {
	return len(r.entries)
}

// list returns a copy of all entries in id order.
func (r *registry) list() []LivePath {
	return append([]LivePath(nil), r.entries...)
}

func (r *registry) countByCategory() map[templates.Category]int {
	counts := make(map[templates.Category]int)
	for _, e := range r.entries {
		counts[e.Category]++
	}
	return counts
}

func (r *registry) snapshot() Snapshot {
	s := make(Snapshot, len(r.entries))
	for _, e := range r.entries {
		s[e.Path] = e.Category
	}
	return s
}
