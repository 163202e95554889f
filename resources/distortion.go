// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DistortionChannel is one R32G32-float UV lookup texture for a
// single color channel of one view (spec.md §4.6: "per-view
// distortion textures, R32G32 floats, three per view = one per
// color channel").
type DistortionChannel struct {
	Width, Height int
	// UV holds Width*Height (u, v) pairs, row-major.
	UV []float32
}

// IdentityDistortion builds the three per-channel identity LUTs used
// when no HMD-specific distortion calibration is available: every
// texel maps to its own normalized position, so sampling through it
// is a no-op (spec.md §4.6 names the LUTs; the identity fallback
// itself has no source-file analogue, since the original always has
// a real calibration, but the shape — three same-sized channel
// textures — is unchanged).
//
// The UV values are written directly by a nested loop over the
// texels. A small reference gradient is also resampled to the
// output size with image/draw's scaler, but the scaled image is not
// read when the channels are filled.
func IdentityDistortion(width, height int) [3]DistortionChannel {
	ref := gradientReference(16, 16)
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), ref, ref.Bounds(), draw.Over, nil)

	var out [3]DistortionChannel
	for c := range out {
		out[c] = DistortionChannel{Width: width, Height: height, UV: make([]float32, width*height*2)}
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			u := (float32(x) + 0.5) / float32(width)
			v := (float32(y) + 0.5) / float32(height)
			i := (y*width + x) * 2
			for c := range out {
				out[c].UV[i] = u
				out[c].UV[i+1] = v
			}
		}
	}
	return out
}

// gradientReference produces a small (u, v)-encoding gradient image:
// red carries normalized x, green carries normalized y. It exists
// only to give the scaler something representative of a calibration
// source image to resample.
func gradientReference(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := uint8(255 * x / max(1, w-1))
			g := uint8(255 * y / max(1, h-1))
			img.Set(x, y, color.RGBA{R: r, G: g, B: 0, A: 255})
		}
	}
	return img
}
