// Package gpu is the WebGPU implementation of the picking backend. Handles are
// drawn with a flat-colour pipeline, picking targets are RGBA8 textures and
// readback goes through a mapped copy buffer.
package gpu

import (
	"errors"
	"fmt"
	"image/color"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/gizmo/core"
	"github.com/gekko3d/gizmo/picking"
	"github.com/gekko3d/gizmo/shaders"
)

const (
	targetFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat  = wgpu.TextureFormatDepth32Float
)

var ErrForeignTarget = errors.New("gpu: target was not created by this backend")

// handleVertex matches the WGSL VertexInput.
type handleVertex struct {
	Pos  [3]float32
	Axis uint32
}

// uniforms matches the WGSL Uniforms struct.
type uniforms struct {
	MVP    mgl32.Mat4
	Colors [3][4]float32
}

const uniformSize = uint64(unsafe.Sizeof(uniforms{}))

type pipelineKey struct {
	format    wgpu.TextureFormat
	depthTest bool
}

type modeMesh struct {
	buf   *wgpu.Buffer
	count uint32
}

type Backend struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	shader    *wgpu.ShaderModule
	layout    *wgpu.PipelineLayout
	bgl       *wgpu.BindGroupLayout
	uniforms  *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	meshes    map[core.Mode]modeMesh
}

func NewBackend(device *wgpu.Device) (*Backend, error) {
	b := &Backend{
		device:    device,
		queue:     device.GetQueue(),
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		meshes:    make(map[core.Mode]modeMesh),
	}

	var err error
	b.shader, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "HandleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.HandlesWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create handle shader: %w", err)
	}

	b.bgl, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "HandleUniformsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group layout: %w", err)
	}

	b.layout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create pipeline layout: %w", err)
	}

	b.uniforms, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "HandleUniforms",
		Size:  uniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create uniform buffer: %w", err)
	}

	b.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "HandleUniformsBG",
		Layout: b.bgl,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.uniforms,
				Size:    uniformSize,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}

	for _, mode := range []core.Mode{core.Translate, core.Rotate, core.Scale} {
		verts := handleVertices(core.HandleMeshes(mode))
		buf, err := b.vertexBuffer("HandleVertices "+mode.String(), verts)
		if err != nil {
			return nil, err
		}
		b.meshes[mode] = modeMesh{buf: buf, count: uint32(len(verts))}
	}
	return b, nil
}

func (b *Backend) Device() *wgpu.Device { return b.device }

func (b *Backend) Release() {
	for _, m := range b.meshes {
		m.buf.Release()
	}
	for _, p := range b.pipelines {
		p.Release()
	}
	b.bindGroup.Release()
	b.uniforms.Release()
	b.layout.Release()
	b.bgl.Release()
	b.shader.Release()
}

func (b *Backend) NewTarget(width, height int) (picking.Target, error) {
	t, err := newTarget(b, width, height)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Backend) RenderHandles(dst picking.Target, pass picking.HandlePass) error {
	t, ok := dst.(*Target)
	if !ok || t.b != b {
		return ErrForeignTarget
	}
	mesh, ok := b.meshes[pass.Mode]
	if !ok {
		return fmt.Errorf("gpu: no handles for mode %d", pass.Mode)
	}
	mvp := pass.Projection.Mul4(pass.View).Mul4(pass.Model)
	return b.draw(t, mesh.buf, mesh.count, packUniforms(mvp, pass.Colors), pass.DepthTest, true)
}

// RenderMesh draws host geometry with one flat colour, depth tested against
// the target's depth buffer.
func (b *Backend) RenderMesh(dst picking.Target, tris []mgl32.Vec3, mvp mgl32.Mat4, col color.RGBA) error {
	t, ok := dst.(*Target)
	if !ok || t.b != b {
		return ErrForeignTarget
	}
	if len(tris) == 0 {
		return nil
	}
	verts := make([]handleVertex, len(tris))
	for i, p := range tris {
		verts[i] = handleVertex{Pos: p}
	}
	buf, err := b.vertexBuffer("MeshVertices", verts)
	if err != nil {
		return err
	}
	defer buf.Release()
	return b.draw(t, buf, uint32(len(verts)), packUniforms(mvp, [3]color.RGBA{col, col, col}), true, false)
}

// draw records and submits one render pass. Handle passes clear depth so
// they are only tested against each other.
func (b *Backend) draw(t *Target, vertices *wgpu.Buffer, count uint32, u uniforms, depthTest, clearDepth bool) error {
	if t.view == nil {
		return fmt.Errorf("gpu: target has no view")
	}
	pipeline, err := b.pipeline(t.format, depthTest)
	if err != nil {
		return err
	}

	b.queue.WriteBuffer(b.uniforms, 0, unsafe.Slice((*byte)(unsafe.Pointer(&u)), uniformSize))

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	depthLoad := wgpu.LoadOpLoad
	if clearDepth {
		depthLoad = wgpu.LoadOpClear
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "HandlePass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    t.view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depthView,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.SetVertexBuffer(0, vertices, 0, vertices.GetSize())
	pass.Draw(count, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: end handle pass: %w", err)
	}
	return b.submit(encoder)
}

func (b *Backend) submit(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: finish encoder: %w", err)
	}
	defer cmd.Release()
	b.queue.Submit(cmd)
	return nil
}

func (b *Backend) pipeline(format wgpu.TextureFormat, depthTest bool) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{format: format, depthTest: depthTest}
	if p, ok := b.pipelines[key]; ok {
		return p, nil
	}

	keep := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionAlways,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
	depth := &wgpu.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: depthTest,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      keep,
		StencilBack:       keep,
	}
	if depthTest {
		depth.DepthCompare = wgpu.CompareFunctionLess
	}

	p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "HandlePipeline",
		Layout: b.layout,
		Vertex: wgpu.VertexState{
			Module:     b.shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(handleVertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{
							Format:         wgpu.VertexFormatFloat32x3,
							Offset:         0,
							ShaderLocation: 0,
						},
						{
							Format:         wgpu.VertexFormatUint32,
							Offset:         12,
							ShaderLocation: 1,
						},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					// No blend state: fragments replace the target exactly.
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create handle pipeline for format %v: %w", format, err)
	}
	b.pipelines[key] = p
	return p, nil
}

func (b *Backend) vertexBuffer(label string, verts []handleVertex) (*wgpu.Buffer, error) {
	size := uint64(len(verts)) * uint64(unsafe.Sizeof(handleVertex{}))
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), size))
	return buf, nil
}

// handleVertices flattens the three handle meshes of a mode, tagging every
// vertex with its axis index.
func handleVertices(meshes [3]core.HandleMesh) []handleVertex {
	var n int
	for _, m := range meshes {
		n += len(m.Triangles)
	}
	verts := make([]handleVertex, 0, n)
	for i, m := range meshes {
		for _, p := range m.Triangles {
			verts = append(verts, handleVertex{Pos: p, Axis: uint32(i)})
		}
	}
	return verts
}

func packUniforms(mvp mgl32.Mat4, colors [3]color.RGBA) uniforms {
	u := uniforms{MVP: mvp}
	for i, c := range colors {
		u.Colors[i] = [4]float32{
			float32(c.R) / 255,
			float32(c.G) / 255,
			float32(c.B) / 255,
			float32(c.A) / 255,
		}
	}
	return u
}
