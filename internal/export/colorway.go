package export

import (
	"fmt"

	"psdprocessor/internal/domain"

	"github.com/oov/psd"
)

// requiredGroups are the top-level groups a colorway document must carry.
var requiredGroups = []string{"@main", "camera", "colors", "base", "bg"}

// ColorwayPolicy reproduces the catalog workflow the service was built
// for: a color is valid when it appears as a child layer name in the
// camera, colors, and base groups; each valid color renders once with
// the competing colors hidden everywhere.
type ColorwayPolicy struct{}

// Combinations implements Policy.
func (ColorwayPolicy) Combinations(doc *psd.PSD) ([]Combination, error) {
	groups := topLevelGroups(doc)
	for _, name := range requiredGroups {
		if _, ok := groups[name]; !ok {
			return nil, fmt.Errorf("%w: missing required group %q", domain.ErrProcessing, name)
		}
	}

	cameraColors := childNames(groups["camera"])
	colorSet := toSet(childNames(groups["colors"]))
	baseSet := toSet(childNames(groups["base"]))

	allColors := make(map[string]bool, len(cameraColors))
	for _, c := range cameraColors {
		allColors[c] = true
	}
	for c := range colorSet {
		allColors[c] = true
	}
	for c := range baseSet {
		allColors[c] = true
	}

	var valid []string
	for _, c := range cameraColors {
		if colorSet[c] && baseSet[c] {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid color combinations found", domain.ErrProcessing)
	}

	combos := make([]Combination, 0, len(valid))
	for _, color := range valid {
		combos = append(combos, Combination{
			Name:      color,
			Overrides: colorwayOverrides(doc, color, allColors),
		})
	}
	return combos, nil
}

// topLevelGroups indexes the document's root folders by normalized name.
func topLevelGroups(doc *psd.PSD) map[string]*psd.Layer {
	groups := make(map[string]*psd.Layer)
	for i := range doc.Layer {
		if l := &doc.Layer[i]; l.Folder() {
			groups[layerKey(layerName(l))] = l
		}
	}
	return groups
}

// childNames collects the distinct normalized names of a group's direct
// children, preserving layer order.
func childNames(group *psd.Layer) []string {
	var names []string
	seen := make(map[string]bool, len(group.Layer))
	for i := range group.Layer {
		name := layerKey(layerName(&group.Layer[i]))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// colorwayOverrides computes the visibility plan for one target color.
// Every layer gets an explicit entry, defaulting to visible, so authored
// hidden flags never leak a competing color into the render.
func colorwayOverrides(doc *psd.PSD, target string, colors map[string]bool) map[string]bool {
	overrides := make(map[string]bool)
	for i := range doc.Layer {
		l := &doc.Layer[i]
		path := childPath("", layerName(l))
		overrides[path] = true
		walkOverrides(l, path, target, colors, overrides)
	}
	return overrides
}

func walkOverrides(parent *psd.Layer, parentPath, target string, colors, overrides map[string]bool) {
	parentName := layerKey(layerName(parent))
	for i := range parent.Layer {
		child := &parent.Layer[i]
		path := childPath(parentPath, layerName(child))
		overrides[path] = colorwayVisible(layerKey(layerName(child)), parentName, target, colors)
		walkOverrides(child, path, target, colors, overrides)
	}
}

// colorwayVisible decides one layer's visibility from its own name and
// its immediate parent: bg content always shows, the camera/colors/base
// groups show only the target color, color names inside @main follow the
// target, and layers nested in a color group follow that group.
func colorwayVisible(name, parent, target string, colors map[string]bool) bool {
	switch parent {
	case "bg":
		return true
	case "base", "colors", "camera":
		if name == target {
			return true
		}
		return !colors[name]
	case "@main":
		if colors[name] {
			return name == target
		}
		return true
	}
	if colors[parent] {
		return parent == target
	}
	return true
}
