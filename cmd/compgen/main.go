// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Command compgen drives the compositor against an offscreen Target
// for manual smoke-testing, without a window system or an
// application swapchain (SPEC_FULL.md §0: "a small CLI harness
// exercising the whole pipeline against the offscreen target").
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"xrcompositor/compositor"
	"xrcompositor/driver"
	"xrcompositor/pacer"
	"xrcompositor/render"
	"xrcompositor/resources"
	"xrcompositor/scratch"
	"xrcompositor/session"
	"xrcompositor/target"
	"xrcompositor/xmath"
)

func main() {
	shaderDir := flag.String("shaders", "shaders", "directory holding the compiled .spv shader set")
	width := flag.Int("width", 1024, "per-eye target width in pixels")
	height := flag.Int("height", 1024, "per-eye target height in pixels")
	frames := flag.Int("frames", 60, "number of frames to render")
	compute := flag.Bool("compute", false, "use the compute dispatch path instead of graphics")
	flag.Parse()

	if err := run(*shaderDir, *width, *height, *frames, *compute); err != nil {
		log.Fatal(err)
	}
}

type fileLoader struct{ dir string }

func (l fileLoader) Load(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.dir, name+".spv"))
}

func run(shaderDir string, width, height, frames int, compute bool) error {
	const colorFmt = driver.RGBA8un

	targ, err := target.NewOffscreen()
	if err != nil {
		return err
	}
	defer targ.Destroy()
	if err := targ.CreateImages(target.CreateInfo{
		Width: width * 2, Height: height,
		Format:      colorFmt,
		PresentMode: target.PresentFIFO,
	}); err != nil {
		return err
	}

	res, err := resources.New(resources.Config{
		Loader:   fileLoader{dir: shaderDir},
		ColorFmt: colorFmt,
		UBOCap:   4 << 20,
	})
	if err != nil {
		return err
	}
	defer res.Destroy()

	scr := []*scratch.Set{scratch.NewSingle(), scratch.NewSingle()}
	defer func() {
		for _, s := range scr {
			s.Free()
		}
	}()

	p := pacer.New(int64(time.Second / 90))
	sys := session.NewSystem()

	comp, err := compositor.New(compositor.Config{
		Target:     targ,
		TargetInfo: target.CreateInfo{Width: width * 2, Height: height, Format: colorFmt, PresentMode: target.PresentFIFO},
		Pacer:      p,
		Resources:  res,
		Scratch:    scr,
		Sessions:   sys,
		UseCompute: compute,
	})
	if err != nil {
		return err
	}
	defer comp.Close()

	in := syntheticFrame(width, height)
	now := int64(0)
	for i := 0; i < frames; i++ {
		stats, err := comp.RenderFrame(now, in)
		if err != nil && err != compositor.ErrFrameDropped {
			return err
		}
		log.Printf("frame %d: dropped=%v gpu_ok=%v gpu_ns=%.0f",
			stats.FrameID, stats.Dropped, stats.GPUTimingOK, stats.GPUNanos)
		now += int64(time.Second / 90)
	}
	return nil
}

// syntheticFrame builds a two-view frame input with a single
// stereo-projection layer per eye and no head movement, enough to
// exercise the fast path end to end.
func syntheticFrame(width, height int) compositor.FrameInput {
	fov := render.FOV{Left: -0.7, Right: 0.7, Up: 0.7, Down: -0.7}
	rect := driver.Viewport{Width: float32(width), Height: float32(height), Zfar: 1}

	mkView := func(x float32) compositor.ViewInput {
		pose := xmath.PoseIdent
		vp := rect
		vp.X = x
		var pre xmath.Mat4
		pre.I()
		return compositor.ViewInput{
			WorldPose:          pose,
			EyePose:            pose,
			FOV:                fov,
			TargetViewportRect: vp,
			TargetPreTransform: pre,
			Layers: []render.Layer{{
				Kind:          render.StereoProjection,
				Pose:          pose,
				Premultiplied: true,
			}},
		}
	}

	return compositor.FrameInput{
		Views:      []compositor.ViewInput{mkView(0), mkView(float32(width))},
		FastPath:   true,
		DoTimewarp: false,
	}
}
