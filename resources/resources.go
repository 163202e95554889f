// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import (
	"xrcompositor/driver"
	"xrcompositor/internal/ctxt"
	"xrcompositor/render"
)

// Store owns every long-lived, once-per-device render resource:
// samplers, the descriptor pool, the compiled pipeline set, the
// per-frame UBO sub-allocator and the GPU timestamp query pool
// (spec.md §4.6). It implements render.Resources so the render
// package's dispatch recorders can draw from it without importing
// it back.
type Store struct {
	samplers   *samplerSet
	descs      *descPool
	shaders    *shaderSet
	pipelines  *pipelineSet
	ubo        *uboAllocator
	timestamps *timestamps

	scratchPass driver.RenderPass
	targetPass  driver.RenderPass

	scratchFBs map[driver.ImageView]driver.Framebuf
	targetFBs  map[driver.ImageView]driver.Framebuf
}

// Config parameterizes Store creation with the shader source and
// the render-pass-compatible formats/extents pipelines are compiled
// against.
type Config struct {
	Loader     ShaderLoader
	ColorFmt   driver.PixelFmt
	UBOCap     int64
}

// New creates every long-lived resource described in spec.md §4.6.
// It does not create per-frame framebuffers; those are created
// lazily by ScratchFramebuf/TargetFramebuf as views are first seen.
func New(cfg Config) (*Store, error) {
	gpu := ctxt.GPU()

	samplers, err := newSamplerSet()
	if err != nil {
		return nil, err
	}
	descs, err := newDescPool(gpu)
	if err != nil {
		samplers.destroy()
		return nil, err
	}
	shaders, err := newShaders(gpu, cfg.Loader)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		return nil, err
	}

	scratchPass, err := newScratchPass(gpu, cfg.ColorFmt)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		return nil, err
	}
	targetPass, err := newTargetPass(gpu, cfg.ColorFmt)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		return nil, err
	}

	meshNoTW, meshTW, err := newMeshPipelines(gpu, shaders, descs.meshTab, targetPass, cfg.ColorFmt)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		targetPass.Destroy()
		return nil, err
	}
	layerPipes, err := newLayerPipelines(gpu, shaders, descs.layerTab, scratchPass)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		targetPass.Destroy()
		meshNoTW.Destroy()
		meshTW.Destroy()
		return nil, err
	}
	pipelines, err := newComputePipelines(gpu, shaders, descs.sharedTab)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		targetPass.Destroy()
		meshNoTW.Destroy()
		meshTW.Destroy()
		for _, p := range layerPipes {
			p.Destroy()
		}
		return nil, err
	}
	pipelines.meshNoTimewarp = meshNoTW
	pipelines.meshTimewarp = meshTW
	pipelines.layer = layerPipes

	layerRuns := MaxLayerRuns
	uboCap := cfg.UBOCap
	if uboCap == 0 {
		uboCap = int64(layerRuns+layerRuns) * uboAlign
	}
	ubo, err := newUBOAllocator(gpu, uboCap)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		targetPass.Destroy()
		pipelines.destroy()
		return nil, err
	}

	ts, err := newTimestamps(gpu)
	if err != nil {
		samplers.destroy()
		descs.destroy()
		shaders.destroy()
		scratchPass.Destroy()
		targetPass.Destroy()
		pipelines.destroy()
		ubo.destroy()
		return nil, err
	}

	return &Store{
		samplers:    samplers,
		descs:       descs,
		shaders:     shaders,
		pipelines:   pipelines,
		ubo:         ubo,
		timestamps:  ts,
		scratchPass: scratchPass,
		targetPass:  targetPass,
		scratchFBs:  make(map[driver.ImageView]driver.Framebuf),
		targetFBs:   make(map[driver.ImageView]driver.Framebuf),
	}, nil
}

// ResetFrame rewinds the per-frame UBO sub-allocator, the timestamp
// query pool, and the descriptor heap copy allocators, called once
// at the start of every frame.
func (s *Store) ResetFrame() {
	s.ubo.Reset()
	s.timestamps.Reset()
	s.descs.resetFrame()
}

// UBO returns the shared per-frame UBO sub-allocator.
func (s *Store) UBO() *uboAllocator { return s.ubo }

// Timestamps returns the GPU timestamp query pool wrapper.
func (s *Store) Timestamps() *timestamps { return s.timestamps }

// ScratchFramebuf implements render.Resources, caching one
// framebuffer per distinct scratch image view (views are stable for
// the lifetime of a scratch.Set, so the cache never grows
// unboundedly within one session).
func (s *Store) ScratchFramebuf(v *render.View) (driver.RenderPass, driver.Framebuf) {
	fb, ok := s.scratchFBs[v.SRGBView]
	if !ok {
		var err error
		fb, err = s.scratchPass.NewFB([]driver.ImageView{v.SRGBView},
			int(v.LayerViewport.Width), int(v.LayerViewport.Height), 1)
		if err != nil {
			return s.scratchPass, nil
		}
		s.scratchFBs[v.SRGBView] = fb
	}
	return s.scratchPass, fb
}

// TargetFramebuf implements render.Resources, caching one
// framebuffer per distinct target view (the target swapchain cycles
// through a small, fixed set of image views).
func (s *Store) TargetFramebuf(d *render.DispatchData) (driver.RenderPass, driver.Framebuf) {
	fb, ok := s.targetFBs[d.TargetView]
	if !ok {
		var err error
		w, h := 0, 0
		if len(d.Views) > 0 {
			w = int(d.Views[0].TargetViewportRect.Width)
			h = int(d.Views[0].TargetViewportRect.Height)
		}
		fb, err = s.targetPass.NewFB([]driver.ImageView{d.TargetView}, w, h, 1)
		if err != nil {
			return s.targetPass, nil
		}
		s.targetFBs[d.TargetView] = fb
	}
	return s.targetPass, fb
}

// Destroy releases every resource the Store owns. Framebuffers must
// be destroyed before the render passes they were created from.
func (s *Store) Destroy() {
	for _, fb := range s.scratchFBs {
		fb.Destroy()
	}
	for _, fb := range s.targetFBs {
		fb.Destroy()
	}
	s.pipelines.destroy()
	s.scratchPass.Destroy()
	s.targetPass.Destroy()
	s.shaders.destroy()
	s.descs.destroy()
	s.samplers.destroy()
	s.ubo.destroy()
	s.timestamps.destroy()
}
