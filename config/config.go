// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package config reads the environment variables that tune the
// compositor's runtime behavior (spec.md §6). There is no
// config-file layer: every tunable here is a plain struct filled
// once, the way the teacher's driver/engine packages take their
// parameters as plain fields rather than from a loaded file.
package config

import (
	"log"
	"os"
	"strconv"
)

const prefix = "config: "

// Pacing holds the frame pacer's environment-driven tunables.
type Pacing struct {
	// PresentToDisplayOffset is COMPOSITOR_PRESENT_TO_DISPLAY_OFFSET_MS,
	// clamped to [1, 40] ms. Default 4.0.
	PresentToDisplayOffset float64

	// MinTime is COMPOSITOR_MIN_TIME_MS, the lower bound on the
	// composition budget. Default 3.0.
	MinTime float64

	// LiveStats is COMPOSITOR_LIVE_STATS: when true, the pacer
	// prints median/mean/worst statistics through log as each
	// per-metric buffer fills.
	LiveStats bool
}

// Tracking holds the tracking-origin offset applied to all
// tracking-origin anchors at startup.
type Tracking struct {
	OffsetX, OffsetY, OffsetZ float64
}

// Pacer reads the pacer's environment variables, applying the
// documented defaults and clamps for any that are unset or
// unparsable.
func Pacer() Pacing {
	p := Pacing{
		PresentToDisplayOffset: clamp(floatEnv("COMPOSITOR_PRESENT_TO_DISPLAY_OFFSET_MS", 4.0), 1, 40),
		MinTime:                floatEnv("COMPOSITOR_MIN_TIME_MS", 3.0),
		LiveStats:              boolEnv("COMPOSITOR_LIVE_STATS", false),
	}
	return p
}

// TrackingOrigin reads the TRACKING_ORIGIN_OFFSET_{X,Y,Z} variables.
func TrackingOrigin() Tracking {
	return Tracking{
		OffsetX: floatEnv("TRACKING_ORIGIN_OFFSET_X", 0),
		OffsetY: floatEnv("TRACKING_ORIGIN_OFFSET_Y", 0),
		OffsetZ: floatEnv("TRACKING_ORIGIN_OFFSET_Z", 0),
	}
}

func floatEnv(name string, deflt float64) float64 {
	s, ok := os.LookupEnv(name)
	if !ok {
		return deflt
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf(prefix+"invalid %s %q, using default %g", name, s, deflt)
		return deflt
	}
	return v
}

func boolEnv(name string, deflt bool) bool {
	s, ok := os.LookupEnv(name)
	if !ok {
		return deflt
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		log.Printf(prefix+"invalid %s %q, using default %t", name, s, deflt)
		return deflt
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
