// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

import (
	"errors"

	vk "github.com/goki/vulkan"

	"xrcompositor/driver"
)

// pipeline implements driver.Pipeline.
type pipeline struct {
	d         *Driver
	handle    vk.Pipeline
	bindPoint vk.PipelineBindPoint
}

// NewPipeline creates a new pipeline.
func (d *Driver) NewPipeline(state any) (driver.Pipeline, error) {
	switch t := state.(type) {
	case *driver.GraphState:
		return d.newGraphics(t)
	case *driver.CompState:
		return d.newCompute(t)
	default:
		return nil, errors.New("vk: unknown pipeline state type")
	}
}

// newGraphics creates a new graphics pipeline.
func (d *Driver) newGraphics(gs *driver.GraphState) (driver.Pipeline, error) {
	layout, err := pipelineLayout(d, gs.Desc)
	if err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: gs.VertFunc.Code.(*shaderCode).handle,
		PName:  cstr(gs.VertFunc.Name),
	}}
	if gs.FragFunc.Code != nil {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: gs.FragFunc.Code.(*shaderCode).handle,
			PName:  cstr(gs.FragFunc.Name),
		})
	}

	var binds []vk.VertexInputBindingDescription
	var attrs []vk.VertexInputAttributeDescription
	for i, in := range gs.Input {
		binds = append(binds, vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    uint32(in.Stride),
			InputRate: vk.VertexInputRateVertex,
		})
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(in.Nr),
			Binding:  uint32(i),
			Format:   vertexFmt(in.Format),
		})
	}
	vertInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(binds)),
		PVertexBindingDescriptions:      binds,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	ia := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(gs.Topology),
	}

	vp := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	frontFace := vk.FrontFaceCounterClockwise
	if gs.Raster.Clockwise {
		frontFace = vk.FrontFaceClockwise
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode:             fillMode(gs.Raster.Fill),
		CullMode:                vk.CullModeFlags(cullMode(gs.Raster.Cull)),
		FrontFace:               frontFace,
		DepthBiasEnable:         vk.Bool32(boolToU32(gs.Raster.DepthBias)),
		DepthBiasConstantFactor: gs.Raster.BiasValue,
		DepthBiasClamp:          gs.Raster.BiasClamp,
		DepthBiasSlopeFactor:    gs.Raster.BiasSlope,
		LineWidth:               1,
	}

	ms := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: sampleCount(gs.Samples),
	}

	ds := vk.PipelineDepthStencilStateCreateInfo{SType: vk.StructureTypePipelineDepthStencilStateCreateInfo}
	if gs.DS.DepthTest {
		ds.DepthTestEnable = vk.True
		if gs.DS.DepthWrite {
			ds.DepthWriteEnable = vk.True
		}
		ds.DepthCompareOp = cmpFunc(gs.DS.DepthCmp)
	}
	if gs.DS.StencilTest {
		ds.StencilTestEnable = vk.True
		ds.Front = vk.StencilOpState{
			FailOp:      stencilOp(gs.DS.Front.DSFail[1]),
			PassOp:      stencilOp(gs.DS.Front.Pass),
			DepthFailOp: stencilOp(gs.DS.Front.DSFail[0]),
			CompareOp:   cmpFunc(gs.DS.Front.Cmp),
			CompareMask: uint32(gs.DS.Front.ReadMask),
			WriteMask:   uint32(gs.DS.Front.WriteMask),
		}
		ds.Back = vk.StencilOpState{
			FailOp:      stencilOp(gs.DS.Back.DSFail[1]),
			PassOp:      stencilOp(gs.DS.Back.Pass),
			DepthFailOp: stencilOp(gs.DS.Back.DSFail[0]),
			CompareOp:   cmpFunc(gs.DS.Back.Cmp),
			CompareMask: uint32(gs.DS.Back.ReadMask),
			WriteMask:   uint32(gs.DS.Back.WriteMask),
		}
	}

	ncolor := gs.Pass.(*renderPass).ncolor[gs.Subpass]
	var blend *vk.PipelineColorBlendStateCreateInfo
	if ncolor > 0 {
		attState := func(c driver.ColorBlend) vk.PipelineColorBlendAttachmentState {
			return vk.PipelineColorBlendAttachmentState{
				BlendEnable:         vk.Bool32(boolToU32(c.Blend)),
				SrcColorBlendFactor: blendFac(c.SrcFac[0]),
				DstColorBlendFactor: blendFac(c.DstFac[0]),
				ColorBlendOp:        blendOp(c.Op[0]),
				SrcAlphaBlendFactor: blendFac(c.SrcFac[1]),
				DstAlphaBlendFactor: blendFac(c.DstFac[1]),
				AlphaBlendOp:        blendOp(c.Op[1]),
				ColorWriteMask:      colorMask(c.WriteMask),
			}
		}
		atts := make([]vk.PipelineColorBlendAttachmentState, ncolor)
		if gs.Blend.IndependentBlend {
			for i := range atts {
				atts[i] = attState(gs.Blend.Color[i])
			}
		} else {
			a := attState(gs.Blend.Color[0])
			for i := range atts {
				atts[i] = a
			}
		}
		blend = &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(atts)),
			PAttachments:    atts,
		}
	}

	dynStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	if ncolor > 0 {
		dynStates = append(dynStates, vk.DynamicStateBlendConstants)
	}
	if gs.DS.StencilTest {
		dynStates = append(dynStates, vk.DynamicStateStencilReference)
	}
	dyn := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynStates)),
		PDynamicStates:    dynStates,
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertInput,
		PInputAssemblyState: &ia,
		PViewportState:      &vp,
		PRasterizationState: &raster,
		PMultisampleState:   &ms,
		PDepthStencilState:  &ds,
		PColorBlendState:    blend,
		PDynamicState:       &dyn,
		Layout:              layout,
		RenderPass:          gs.Pass.(*renderPass).pass,
		Subpass:             uint32(gs.Subpass),
		BasePipelineIndex:   -1,
	}
	handles := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.dev, nil, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, handles); res != vk.Success {
		return nil, checkResult(res)
	}
	return &pipeline{d: d, handle: handles[0], bindPoint: vk.PipelineBindPointGraphics}, nil
}

// newCompute creates a new compute pipeline.
func (d *Driver) newCompute(cs *driver.CompState) (driver.Pipeline, error) {
	layout, err := pipelineLayout(d, cs.Desc)
	if err != nil {
		return nil, err
	}
	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: cs.Func.Code.(*shaderCode).handle,
			PName:  cstr(cs.Func.Name),
		},
		Layout:            layout,
		BasePipelineIndex: -1,
	}
	handles := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(d.dev, nil, 1, []vk.ComputePipelineCreateInfo{info}, nil, handles); res != vk.Success {
		return nil, checkResult(res)
	}
	return &pipeline{d: d, handle: handles[0], bindPoint: vk.PipelineBindPointCompute}, nil
}

// pipelineLayout returns the pipeline layout for desc, creating
// a temporary empty descriptor table if desc is nil (a valid
// pipeline layout is required even when the shader declares no
// resources).
func pipelineLayout(d *Driver, desc driver.DescTable) (vk.PipelineLayout, error) {
	if desc != nil {
		return desc.(*descTable).layout, nil
	}
	t, err := d.NewDescTable(nil)
	if err != nil {
		return nil, err
	}
	defer t.Destroy()
	return t.(*descTable).layout, nil
}

// Destroy destroys the pipeline.
func (p *pipeline) Destroy() {
	if p == nil {
		return
	}
	if p.handle != nil {
		vk.DestroyPipeline(p.d.dev, p.handle, nil)
	}
	*p = pipeline{}
}

// vertexFmt converts a driver.VertexFmt to a vk.Format.
func vertexFmt(vf driver.VertexFmt) vk.Format {
	switch vf {
	case driver.Int8:
		return vk.FormatR8Sint
	case driver.Int8x2:
		return vk.FormatR8g8Sint
	case driver.Int8x3:
		return vk.FormatR8g8b8Sint
	case driver.Int8x4:
		return vk.FormatR8g8b8a8Sint
	case driver.Int16:
		return vk.FormatR16Sint
	case driver.Int16x2:
		return vk.FormatR16g16Sint
	case driver.Int16x3:
		return vk.FormatR16g16b16Sint
	case driver.Int16x4:
		return vk.FormatR16g16b16a16Sint
	case driver.Int32:
		return vk.FormatR32Sint
	case driver.Int32x2:
		return vk.FormatR32g32Sint
	case driver.Int32x3:
		return vk.FormatR32g32b32Sint
	case driver.Int32x4:
		return vk.FormatR32g32b32a32Sint
	case driver.UInt8:
		return vk.FormatR8Uint
	case driver.UInt8x2:
		return vk.FormatR8g8Uint
	case driver.UInt8x3:
		return vk.FormatR8g8b8Uint
	case driver.UInt8x4:
		return vk.FormatR8g8b8a8Uint
	case driver.UInt16:
		return vk.FormatR16Uint
	case driver.UInt16x2:
		return vk.FormatR16g16Uint
	case driver.UInt16x3:
		return vk.FormatR16g16b16Uint
	case driver.UInt16x4:
		return vk.FormatR16g16b16a16Uint
	case driver.UInt32:
		return vk.FormatR32Uint
	case driver.UInt32x2:
		return vk.FormatR32g32Uint
	case driver.UInt32x3:
		return vk.FormatR32g32b32Uint
	case driver.UInt32x4:
		return vk.FormatR32g32b32a32Uint
	case driver.Float32:
		return vk.FormatR32Sfloat
	case driver.Float32x2:
		return vk.FormatR32g32Sfloat
	case driver.Float32x3:
		return vk.FormatR32g32b32Sfloat
	case driver.Float32x4:
		return vk.FormatR32g32b32a32Sfloat
	default:
		panic("vk: undefined driver.VertexFmt")
	}
}

// topology converts a driver.Topology to a vk.PrimitiveTopology.
func topology(top driver.Topology) vk.PrimitiveTopology {
	switch top {
	case driver.TPoint:
		return vk.PrimitiveTopologyPointList
	case driver.TLine:
		return vk.PrimitiveTopologyLineList
	case driver.TLnStrip:
		return vk.PrimitiveTopologyLineStrip
	case driver.TTriangle:
		return vk.PrimitiveTopologyTriangleList
	case driver.TTriStrip:
		return vk.PrimitiveTopologyTriangleStrip
	default:
		panic("vk: undefined driver.Topology")
	}
}

// cullMode converts a driver.CullMode to a vk.CullModeFlagBits.
func cullMode(cm driver.CullMode) vk.CullModeFlagBits {
	switch cm {
	case driver.CNone:
		return vk.CullModeNone
	case driver.CFront:
		return vk.CullModeFrontBit
	case driver.CBack:
		return vk.CullModeBackBit
	default:
		panic("vk: undefined driver.CullMode")
	}
}

// fillMode converts a driver.FillMode to a vk.PolygonMode.
func fillMode(fm driver.FillMode) vk.PolygonMode {
	switch fm {
	case driver.FFill:
		return vk.PolygonModeFill
	case driver.FLines:
		return vk.PolygonModeLine
	default:
		panic("vk: undefined driver.FillMode")
	}
}

// stencilOp converts a driver.StencilOp to a vk.StencilOp.
func stencilOp(op driver.StencilOp) vk.StencilOp {
	switch op {
	case driver.SKeep:
		return vk.StencilOpKeep
	case driver.SZero:
		return vk.StencilOpZero
	case driver.SReplace:
		return vk.StencilOpReplace
	case driver.SIncClamp:
		return vk.StencilOpIncrementAndClamp
	case driver.SDecClamp:
		return vk.StencilOpDecrementAndClamp
	case driver.SInvert:
		return vk.StencilOpInvert
	case driver.SIncWrap:
		return vk.StencilOpIncrementAndWrap
	case driver.SDecWrap:
		return vk.StencilOpDecrementAndWrap
	default:
		panic("vk: undefined driver.StencilOp")
	}
}

// blendOp converts a driver.BlendOp to a vk.BlendOp.
func blendOp(op driver.BlendOp) vk.BlendOp {
	switch op {
	case driver.BAdd:
		return vk.BlendOpAdd
	case driver.BSubtract:
		return vk.BlendOpSubtract
	case driver.BRevSubtract:
		return vk.BlendOpReverseSubtract
	case driver.BMin:
		return vk.BlendOpMin
	case driver.BMax:
		return vk.BlendOpMax
	default:
		panic("vk: undefined driver.BlendOp")
	}
}

// blendFac converts a driver.BlendFac to a vk.BlendFactor.
func blendFac(fac driver.BlendFac) vk.BlendFactor {
	switch fac {
	case driver.BZero:
		return vk.BlendFactorZero
	case driver.BOne:
		return vk.BlendFactorOne
	case driver.BSrcColor:
		return vk.BlendFactorSrcColor
	case driver.BInvSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case driver.BSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case driver.BInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case driver.BDstColor:
		return vk.BlendFactorDstColor
	case driver.BInvDstColor:
		return vk.BlendFactorOneMinusDstColor
	case driver.BDstAlpha:
		return vk.BlendFactorDstAlpha
	case driver.BInvDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case driver.BSrcAlphaSaturated:
		return vk.BlendFactorSrcAlphaSaturate
	case driver.BBlendColor:
		return vk.BlendFactorConstantColor
	case driver.BInvBlendColor:
		return vk.BlendFactorOneMinusConstantColor
	default:
		panic("vk: undefined driver.BlendFac")
	}
}

// colorMask converts a driver.ColorMask to a vk.ColorComponentFlags.
func colorMask(cm driver.ColorMask) vk.ColorComponentFlags {
	if cm == driver.CAll {
		return vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
	}
	var f vk.ColorComponentFlagBits
	if cm&driver.CRed != 0 {
		f |= vk.ColorComponentRBit
	}
	if cm&driver.CGreen != 0 {
		f |= vk.ColorComponentGBit
	}
	if cm&driver.CBlue != 0 {
		f |= vk.ColorComponentBBit
	}
	if cm&driver.CAlpha != 0 {
		f |= vk.ColorComponentABit
	}
	return vk.ColorComponentFlags(f)
}
