package templates

import (
	"path"
	"strings"
	"sync"
)

// Template is an uploaded file in the remote bin area.
type Template struct {
	// Path is the remote path of the uploaded file.
	Path string `json:"path"`

	// Category is assigned once at upload time.
	Category Category `json:"category"`
}

// Pool is the ordered set of uploaded templates. Insertion order is kept so
// round-robin selection is reproducible.
type Pool struct {
	mu        sync.RWMutex
	templates []Template
	index     map[string]int
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{index: make(map[string]int)}
}

// Add records a template. Adding a path twice replaces its category in place.
func (p *Pool) Add(t Template) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i, ok := p.index[t.Path]; ok {
		p.templates[i] = t
		return
	}
	p.index[t.Path] = len(p.templates)
	p.templates = append(p.templates, t)
}

// ByCategory returns the templates of category c in insertion order.
func (p *Pool) ByCategory(c Category) []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []Template
	for _, t := range p.templates {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}

// All returns a copy of every template in insertion order.
func (p *Pool) All() []Template {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Template(nil), p.templates...)
}

// Counts returns the number of templates per category, Unknown included.
func (p *Pool) Counts() map[Category]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	counts := make(map[Category]int)
	for _, t := range p.templates {
		counts[t.Category]++
	}
	return counts
}

// Len returns the number of templates.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.templates)
}

// StripBinDir maps a template path under binDir onto the published tree
// under baseDir. Paths outside binDir are returned unchanged.
func StripBinDir(p, baseDir, binDir string) string {
	binDir = path.Clean(binDir)
	if binDir == "." || binDir == path.Clean(baseDir) {
		return p
	}
	rest, ok := strings.CutPrefix(p, binDir+"/")
	if !ok {
		return p
	}
	return path.Join(baseDir, rest)
}
