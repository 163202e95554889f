// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package render

import (
	"testing"

	"xrcompositor/driver"
)

func TestUsesFastPathSingleStereoProjection(t *testing.T) {
	d := &DispatchData{
		FastPath: true,
		Views: []View{
			{Layers: []Layer{{Kind: StereoProjection}}},
			{Layers: []Layer{{Kind: StereoProjection}}},
		},
	}
	if !usesFastPath(d) {
		t.Error("usesFastPath = false, want true for a single stereo projection layer per view")
	}
}

func TestUsesFastPathFalseWithExtraLayer(t *testing.T) {
	d := &DispatchData{
		FastPath: true,
		Views: []View{
			{Layers: []Layer{{Kind: StereoProjection}, {Kind: Quad}}},
		},
	}
	if usesFastPath(d) {
		t.Error("usesFastPath = true, want false when a view carries more than one layer")
	}
}

func TestUsesFastPathFalseWhenFlagUnset(t *testing.T) {
	d := &DispatchData{
		FastPath: false,
		Views:    []View{{Layers: []Layer{{Kind: StereoProjection}}}},
	}
	if usesFastPath(d) {
		t.Error("usesFastPath = true, want false when DispatchData.FastPath is unset")
	}
}

func TestSquashBoundsAtMaxLayers(t *testing.T) {
	v := &View{}
	for i := 0; i < MaxLayers+1; i++ {
		v.Layers = append(v.Layers, Layer{Kind: Quad})
	}
	if _, err := squash(v, 0); err != ErrTooManyLayers {
		t.Errorf("squash = %v, want ErrTooManyLayers", err)
	}
}

func TestSquashOrdersByKind(t *testing.T) {
	v := &View{Layers: []Layer{
		{Kind: Quad},
		{Kind: StereoProjection},
		{Kind: Cylinder},
	}}
	sv, err := squash(v, 0)
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	want := []LayerKind{StereoProjection, Cylinder, Quad}
	if len(sv.layers) != len(want) {
		t.Fatalf("squash produced %d layers, want %d", len(sv.layers), len(want))
	}
	for i, k := range want {
		if sv.layers[i].Kind != k {
			t.Errorf("layer %d kind = %v, want %v", i, sv.layers[i].Kind, k)
		}
	}
}

func TestLayerVisibleToBothEyesByDefault(t *testing.T) {
	l := Layer{Kind: Quad}
	if !l.visibleTo(0) || !l.visibleTo(1) {
		t.Error("layer with no eye-visibility flags should be visible to both eyes")
	}
}

func TestLayerVisibleToSingleEye(t *testing.T) {
	l := Layer{Kind: Quad, Flags: EyeVisibilityLeft}
	if !l.visibleTo(0) || l.visibleTo(1) {
		t.Error("layer flagged EyeVisibilityLeft should be visible only to eye 0")
	}
}

func TestBlendFactorsPremultiplied(t *testing.T) {
	l := Layer{Premultiplied: true}
	src, dstColor, dstAlpha := l.blendFactors()
	if src != driver.BOne || dstColor != driver.BInvSrcAlpha || dstAlpha != driver.BOne {
		t.Errorf("premultiplied blend factors = (%v, %v, %v)", src, dstColor, dstAlpha)
	}
}
