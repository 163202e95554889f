// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package config

import "testing"

func TestPacerDefaults(t *testing.T) {
	p := Pacer()
	if p.PresentToDisplayOffset != 4.0 {
		t.Errorf("PresentToDisplayOffset default = %g, want 4.0", p.PresentToDisplayOffset)
	}
	if p.MinTime != 3.0 {
		t.Errorf("MinTime default = %g, want 3.0", p.MinTime)
	}
	if p.LiveStats {
		t.Error("LiveStats default = true, want false")
	}
}

func TestPacerEnv(t *testing.T) {
	t.Setenv("COMPOSITOR_PRESENT_TO_DISPLAY_OFFSET_MS", "100")
	t.Setenv("COMPOSITOR_MIN_TIME_MS", "7.5")
	t.Setenv("COMPOSITOR_LIVE_STATS", "true")
	p := Pacer()
	if p.PresentToDisplayOffset != 40 {
		t.Errorf("PresentToDisplayOffset = %g, want clamped 40", p.PresentToDisplayOffset)
	}
	if p.MinTime != 7.5 {
		t.Errorf("MinTime = %g, want 7.5", p.MinTime)
	}
	if !p.LiveStats {
		t.Error("LiveStats = false, want true")
	}
}

func TestTrackingOriginDefaults(t *testing.T) {
	tr := TrackingOrigin()
	if tr.OffsetX != 0 || tr.OffsetY != 0 || tr.OffsetZ != 0 {
		t.Errorf("TrackingOrigin defaults = %+v, want all zero", tr)
	}
}
