// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import "testing"

func TestIdentityDistortionShape(t *testing.T) {
	chans := IdentityDistortion(8, 4)
	if len(chans) != 3 {
		t.Fatalf("IdentityDistortion returned %d channels, want 3", len(chans))
	}
	for i, c := range chans {
		if c.Width != 8 || c.Height != 4 {
			t.Errorf("channel %d dims = (%d, %d), want (8, 4)", i, c.Width, c.Height)
		}
		if len(c.UV) != 8*4*2 {
			t.Errorf("channel %d UV length = %d, want %d", i, len(c.UV), 8*4*2)
		}
	}
}

func TestIdentityDistortionCentersUV(t *testing.T) {
	chans := IdentityDistortion(2, 2)
	u, v := chans[0].UV[0], chans[0].UV[1]
	if u != 0.25 || v != 0.25 {
		t.Errorf("first texel UV = (%v, %v), want (0.25, 0.25)", u, v)
	}
}
