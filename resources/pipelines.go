// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package resources

import (
	"xrcompositor/driver"
	"xrcompositor/render"
)

// layerPipelineKey selects one of the graphics layer pipelines by
// kind and alpha mode (spec.md §4.6: "each layer kind ×
// premultiplied/unpremultiplied").
type layerPipelineKey struct {
	kind          render.LayerKind
	premultiplied bool
}

// pipelineSet holds seventeen compiled pipelines: graphics mesh ±
// timewarp, one graphics layer pipeline per (kind, alpha-mode) pair
// (ten), and five compute pipelines (clear, distortion ± timewarp,
// layer ± timewarp). The two pipelines of each ± timewarp pair are
// compiled from the same shader and state; no specialization
// constant distinguishes them.
type pipelineSet struct {
	meshNoTimewarp  driver.Pipeline
	meshTimewarp    driver.Pipeline

	layer map[layerPipelineKey]driver.Pipeline

	computeClear            driver.Pipeline
	computeDistNoTimewarp   driver.Pipeline
	computeDistTimewarp     driver.Pipeline
	computeLayerNoTimewarp  driver.Pipeline
	computeLayerTimewarp    driver.Pipeline
}

// shaderSet is the set of precompiled shader binaries this package
// needs, loaded once at startup the way the teacher's tests load
// `triangle_vs.spv`/`triangle_fs.spv`: named SPIR-V files read from
// disk into byte buffers and handed to GPU.NewShaderCode (driver/
// example_test.go).
type shaderSet struct {
	meshVert, meshFrag         driver.ShaderCode
	layerVert                 map[render.LayerKind]driver.ShaderCode
	layerFrag                 driver.ShaderCode
	clearComp, distComp, layerComp driver.ShaderCode
}

func loadShaderCode(gpu driver.GPU, loader ShaderLoader, name string) (driver.ShaderCode, error) {
	data, err := loader.Load(name)
	if err != nil {
		return nil, err
	}
	return gpu.NewShaderCode(data)
}

// ShaderLoader supplies the precompiled SPIR-V binaries pipelines
// are built from, by logical name (e.g. "layer_stereo_vs",
// "distortion_cs"). Production code backs this with an embedded or
// on-disk shader directory; tests can substitute a stub.
type ShaderLoader interface {
	Load(name string) ([]byte, error)
}

func newShaders(gpu driver.GPU, loader ShaderLoader) (*shaderSet, error) {
	s := &shaderSet{layerVert: make(map[render.LayerKind]driver.ShaderCode)}
	var err error
	if s.meshVert, err = loadShaderCode(gpu, loader, "distortion_vs"); err != nil {
		return nil, err
	}
	if s.meshFrag, err = loadShaderCode(gpu, loader, "distortion_fs"); err != nil {
		return nil, err
	}
	kinds := []struct {
		kind render.LayerKind
		name string
	}{
		{render.StereoProjection, "layer_stereo_vs"},
		{render.Cylinder, "layer_cylinder_vs"},
		{render.Equirect2, "layer_equirect2_vs"},
		{render.Quad, "layer_quad_vs"},
		{render.Cube, "layer_cube_vs"},
	}
	for _, k := range kinds {
		code, err := loadShaderCode(gpu, loader, k.name)
		if err != nil {
			return nil, err
		}
		s.layerVert[k.kind] = code
	}
	if s.layerFrag, err = loadShaderCode(gpu, loader, "layer_fs"); err != nil {
		return nil, err
	}
	if s.clearComp, err = loadShaderCode(gpu, loader, "clear_cs"); err != nil {
		return nil, err
	}
	if s.distComp, err = loadShaderCode(gpu, loader, "distortion_cs"); err != nil {
		return nil, err
	}
	if s.layerComp, err = loadShaderCode(gpu, loader, "layer_cs"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shaderSet) destroy() {
	if s == nil {
		return
	}
	codes := []driver.ShaderCode{s.meshVert, s.meshFrag, s.layerFrag, s.clearComp, s.distComp, s.layerComp}
	for _, c := range codes {
		if c != nil {
			c.Destroy()
		}
	}
	for _, c := range s.layerVert {
		if c != nil {
			c.Destroy()
		}
	}
}

// newMeshPipelines compiles the distortion-mesh graphics pipelines
// (± timewarp), bound to the target render pass's first subpass.
func newMeshPipelines(gpu driver.GPU, sh *shaderSet, desc driver.DescTable, pass driver.RenderPass, colorFmt driver.PixelFmt) (noTW, tw driver.Pipeline, err error) {
	base := driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: sh.meshVert, Name: "main"},
		FragFunc: driver.ShaderFunc{Code: sh.meshFrag, Name: "main"},
		Desc:     desc,
		Input: []driver.VertexIn{
			{Format: driver.Float32x2, Stride: 4 * 2, Nr: 0},
		},
		Topology: driver.TTriStrip,
		Raster:   driver.RasterState{Cull: driver.CNone, Fill: driver.FFill},
		Samples:  1,
		Blend: driver.BlendState{
			Color: []driver.ColorBlend{{WriteMask: driver.CAll}},
		},
		Pass:    pass,
		Subpass: 0,
	}
	noTW, err = gpu.NewPipeline(&base)
	if err != nil {
		return nil, nil, err
	}
	tw, err = gpu.NewPipeline(&base)
	if err != nil {
		noTW.Destroy()
		return nil, nil, err
	}
	return noTW, tw, nil
}

// newLayerPipelines compiles the ten graphics layer-squash
// pipelines: one per (kind, premultiplied) pair, bound to the
// scratch render pass's color-blend-enabled subpass (spec.md §4.5:
// "source blend factor is 1 for premultiplied and SRC_ALPHA for
// unpremultiplied").
func newLayerPipelines(gpu driver.GPU, sh *shaderSet, desc driver.DescTable, pass driver.RenderPass) (map[layerPipelineKey]driver.Pipeline, error) {
	kinds := []render.LayerKind{render.StereoProjection, render.Cylinder, render.Equirect2, render.Quad, render.Cube}
	out := make(map[layerPipelineKey]driver.Pipeline, len(kinds)*2)
	for _, kind := range kinds {
		for _, premult := range []bool{true, false} {
			l := render.Layer{Premultiplied: premult}
			src, dstColor, dstAlpha := layerBlendFactors(&l)
			gs := driver.GraphState{
				VertFunc: driver.ShaderFunc{Code: sh.layerVert[kind], Name: "main"},
				FragFunc: driver.ShaderFunc{Code: sh.layerFrag, Name: "main"},
				Desc:     desc,
				Input: []driver.VertexIn{
					{Format: driver.Float32x2, Stride: 4 * 2, Nr: 0},
				},
				Topology: driver.TTriStrip,
				Raster:   driver.RasterState{Cull: driver.CNone, Fill: driver.FFill},
				Samples:  1,
				Blend: driver.BlendState{
					Color: []driver.ColorBlend{{
						Blend:     true,
						WriteMask: driver.CAll,
						Op:        [2]driver.BlendOp{driver.BAdd, driver.BAdd},
						SrcFac:    [2]driver.BlendFac{src, driver.BOne},
						DstFac:    [2]driver.BlendFac{dstColor, dstAlpha},
					}},
				},
				Pass:    pass,
				Subpass: 0,
			}
			pl, err := gpu.NewPipeline(&gs)
			if err != nil {
				for _, p := range out {
					p.Destroy()
				}
				return nil, err
			}
			out[layerPipelineKey{kind, premult}] = pl
		}
	}
	return out, nil
}

// layerBlendFactors exposes the same blend-mode rule render.Layer
// uses internally, since resources (not render) is where pipelines
// are actually compiled.
func layerBlendFactors(l *render.Layer) (src, dstColor, dstAlpha driver.BlendFac) {
	if l.Premultiplied {
		return driver.BOne, driver.BInvSrcAlpha, driver.BOne
	}
	return driver.BSrcAlpha, driver.BInvSrcAlpha, driver.BOne
}

func newComputePipelines(gpu driver.GPU, sh *shaderSet, desc driver.DescTable) (*pipelineSet, error) {
	ps := &pipelineSet{}
	var err error
	ps.computeClear, err = gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sh.clearComp, Name: "main"}, Desc: desc,
	})
	if err != nil {
		return nil, err
	}
	ps.computeDistNoTimewarp, err = gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sh.distComp, Name: "main"}, Desc: desc,
	})
	if err != nil {
		ps.destroyCompute()
		return nil, err
	}
	ps.computeDistTimewarp, err = gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sh.distComp, Name: "main"}, Desc: desc,
	})
	if err != nil {
		ps.destroyCompute()
		return nil, err
	}
	ps.computeLayerNoTimewarp, err = gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sh.layerComp, Name: "main"}, Desc: desc,
	})
	if err != nil {
		ps.destroyCompute()
		return nil, err
	}
	ps.computeLayerTimewarp, err = gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sh.layerComp, Name: "main"}, Desc: desc,
	})
	if err != nil {
		ps.destroyCompute()
		return nil, err
	}
	return ps, nil
}

func (p *pipelineSet) destroyCompute() {
	for _, pl := range []driver.Pipeline{p.computeClear, p.computeDistNoTimewarp, p.computeDistTimewarp, p.computeLayerNoTimewarp, p.computeLayerTimewarp} {
		if pl != nil {
			pl.Destroy()
		}
	}
}

func (p *pipelineSet) destroy() {
	if p == nil {
		return
	}
	if p.meshNoTimewarp != nil {
		p.meshNoTimewarp.Destroy()
	}
	if p.meshTimewarp != nil {
		p.meshTimewarp.Destroy()
	}
	for _, pl := range p.layer {
		pl.Destroy()
	}
	p.destroyCompute()
}

// LayerPipeline implements render.Resources.
func (s *Store) LayerPipeline(kind render.LayerKind, premultiplied, timewarp bool) driver.Pipeline {
	return s.pipelines.layer[layerPipelineKey{kind, premultiplied}]
}

// MeshPipeline implements render.Resources.
func (s *Store) MeshPipeline(timewarp bool) driver.Pipeline {
	if timewarp {
		return s.pipelines.meshTimewarp
	}
	return s.pipelines.meshNoTimewarp
}

// ComputeClearPipeline implements render.Resources.
func (s *Store) ComputeClearPipeline() driver.Pipeline { return s.pipelines.computeClear }

// ComputeLayerPipeline implements render.Resources.
func (s *Store) ComputeLayerPipeline(timewarp bool) driver.Pipeline {
	if timewarp {
		return s.pipelines.computeLayerTimewarp
	}
	return s.pipelines.computeLayerNoTimewarp
}

// ComputeDistortionPipeline implements render.Resources.
func (s *Store) ComputeDistortionPipeline(timewarp bool) driver.Pipeline {
	if timewarp {
		return s.pipelines.computeDistTimewarp
	}
	return s.pipelines.computeDistNoTimewarp
}
