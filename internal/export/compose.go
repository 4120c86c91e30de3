package export

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"github.com/oov/psd"
)

// blendFuncs maps Photoshop blend keys onto bild's operations. Modes with
// no counterpart (hard light, vivid light, hue, ...) fall back to normal
// source-over compositing.
var blendFuncs = map[psd.BlendMode]func(image.Image, image.Image) *image.RGBA{
	psd.BlendModeDarken:      blend.Darken,
	psd.BlendModeMultiply:    blend.Multiply,
	psd.BlendModeColorBurn:   blend.ColorBurn,
	psd.BlendModeLinearBurn:  blend.LinearBurn,
	psd.BlendModeLighten:     blend.Lighten,
	psd.BlendModeScreen:      blend.Screen,
	psd.BlendModeColorDodge:  blend.ColorDodge,
	psd.BlendModeLinearDodge: blend.Add,
	psd.BlendModeOverlay:     blend.Overlay,
	psd.BlendModeSoftLight:   blend.SoftLight,
	psd.BlendModeLinearLight: blend.LinearLight,
	psd.BlendModeDifference:  blend.Difference,
	psd.BlendModeExclusion:   blend.Exclusion,
	psd.BlendModeSubtract:    blend.Subtract,
	psd.BlendModeDivide:      blend.Divide,
}

// compose renders the document onto a transparent canvas, applying the
// combination's visibility overrides.
func compose(doc *psd.PSD, overrides map[string]bool) image.Image {
	canvas := transparentCanvas(doc.Config.Rect)
	return composeLayers(canvas, doc.Layer, "", overrides)
}

func transparentCanvas(r image.Rectangle) image.Image {
	return imaging.New(r.Dx(), r.Dy(), color.NRGBA{})
}

// composeLayers folds the slice onto the canvas in slice order, which is
// bottom-to-top in the decoded document. A group renders to its own
// canvas first so its blend mode and opacity apply to the merged result.
func composeLayers(canvas image.Image, layers []psd.Layer, prefix string, overrides map[string]bool) image.Image {
	for i := range layers {
		l := &layers[i]
		path := childPath(prefix, layerName(l))
		if !layerVisible(l, path, overrides) {
			continue
		}
		if l.Folder() {
			sub := composeLayers(transparentCanvas(canvas.Bounds()), l.Layer, path, overrides)
			canvas = blendOnto(canvas, sub, image.Pt(0, 0), l.BlendMode, l.Opacity)
			continue
		}
		if !l.HasImage() || l.Picker == nil {
			continue
		}
		canvas = blendOnto(canvas, l.Picker, l.Rect.Min, l.BlendMode, l.Opacity)
	}
	return canvas
}

func layerVisible(l *psd.Layer, path string, overrides map[string]bool) bool {
	if v, ok := overrides[path]; ok {
		return v
	}
	return l.Visible()
}

// blendOnto composites fg onto the canvas at pos. Non-normal modes pad
// the layer to canvas size first because bild blends equal-sized images
// only.
func blendOnto(canvas, fg image.Image, pos image.Point, mode psd.BlendMode, opacity uint8) image.Image {
	op := float64(opacity) / 255
	fn, ok := blendFuncs[mode]
	if !ok {
		return imaging.Overlay(canvas, fg, pos, op)
	}
	padded := imaging.Paste(transparentCanvas(canvas.Bounds()), fg, pos)
	blended := fn(canvas, padded)
	if opacity == 255 {
		return blended
	}
	return blend.Opacity(canvas, blended, op)
}
