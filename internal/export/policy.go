package export

import (
	"fmt"
	"strings"

	"psdprocessor/internal/domain"

	"github.com/oov/psd"
)

// Combination is one named visibility state of the document's layers that
// renders to a single artifact. Overrides are keyed by layer path
// (lower-cased, trimmed names joined with "/"); layers without an entry
// keep their authored visibility flag.
type Combination struct {
	Name      string
	Overrides map[string]bool
}

// Policy enumerates the combinations to render from a decoded document.
type Policy interface {
	Combinations(doc *psd.PSD) ([]Combination, error)
}

// LayerPolicy emits one combination per visible top-level layer, each
// isolating its target: the target layer is shown, its top-level siblings
// are hidden, and nested layers keep their authored flags.
type LayerPolicy struct{}

// Combinations implements Policy.
func (LayerPolicy) Combinations(doc *psd.PSD) ([]Combination, error) {
	type top struct {
		path string
		name string
	}
	var (
		tops       []top
		renderable []int
	)
	for i := range doc.Layer {
		l := &doc.Layer[i]
		name := layerName(l)
		tops = append(tops, top{path: layerKey(name), name: name})
		if l.Visible() && (l.Folder() || l.HasImage()) {
			renderable = append(renderable, i)
		}
	}
	if len(renderable) == 0 {
		return nil, fmt.Errorf("%w: no renderable layers", domain.ErrProcessing)
	}

	combos := make([]Combination, 0, len(renderable))
	for _, target := range renderable {
		overrides := make(map[string]bool, len(tops))
		for i, tp := range tops {
			overrides[tp.path] = i == target
		}
		combos = append(combos, Combination{Name: tops[target].name, Overrides: overrides})
	}
	return combos, nil
}

// layerName prefers the unicode name record over the legacy one.
func layerName(l *psd.Layer) string {
	if l.UnicodeName != "" {
		return l.UnicodeName
	}
	return l.Name
}

// layerKey normalizes a layer name for override lookups.
func layerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// childPath extends a parent path with a child's normalized name.
func childPath(parent, name string) string {
	if parent == "" {
		return layerKey(name)
	}
	return parent + "/" + layerKey(name)
}
