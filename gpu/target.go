package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/gizmo/picking"
)

// maxPolls bounds the wait for a readback mapping.
const maxPolls = 1000

var (
	ErrScaledCopy  = errors.New("gpu: copies must not scale")
	ErrNotReadable = errors.New("gpu: surface targets cannot be copied or read")
)

// Target is a colour texture plus its depth buffer. Surface targets wrap a
// swapchain view that changes every frame and own only the depth buffer.
type Target struct {
	b *Backend

	tex       *wgpu.Texture
	view      *wgpu.TextureView
	depth     *wgpu.Texture
	depthView *wgpu.TextureView
	format    wgpu.TextureFormat
	size      image.Point

	readback     *wgpu.Buffer
	readbackSize uint64
}

func newTarget(b *Backend, width, height int) (*Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: target size %dx%d: %w", width, height, picking.ErrInvalidSize)
	}
	t := &Target{b: b, format: targetFormat, size: image.Pt(width, height)}

	var err error
	t.tex, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PickingTarget",
		Size:          t.extent(),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create target texture: %w", err)
	}
	t.view, err = t.tex.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create target view: %w", err)
	}
	if err := t.createDepth(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewSurfaceTarget creates a target for drawing into a swapchain. Call
// SetView with the current frame's view before drawing.
func (b *Backend) NewSurfaceTarget(format wgpu.TextureFormat, width, height int) (*Target, error) {
	t := &Target{b: b, format: format, size: image.Pt(width, height)}
	if err := t.createDepth(); err != nil {
		return nil, err
	}
	return t, nil
}

// SetView points a surface target at the current frame.
func (t *Target) SetView(view *wgpu.TextureView) { t.view = view }

// Resize recreates a surface target's depth buffer.
func (t *Target) Resize(width, height int) error {
	if t.tex != nil {
		return ErrNotReadable
	}
	t.releaseDepth()
	t.size = image.Pt(width, height)
	return t.createDepth()
}

func (t *Target) createDepth() error {
	var err error
	t.depth, err = t.b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HandleDepth",
		Size:          t.extent(),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("gpu: create depth texture: %w", err)
	}
	t.depthView, err = t.depth.CreateView(nil)
	if err != nil {
		return fmt.Errorf("gpu: create depth view: %w", err)
	}
	return nil
}

func (t *Target) extent() wgpu.Extent3D {
	return wgpu.Extent3D{Width: uint32(t.size.X), Height: uint32(t.size.Y), DepthOrArrayLayers: 1}
}

func (t *Target) Size() image.Point { return t.size }

func (t *Target) Clear() error {
	if t.view == nil {
		return fmt.Errorf("gpu: target has no view")
	}
	encoder, err := t.b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ClearTarget",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: end clear pass: %w", err)
	}
	return t.b.submit(encoder)
}

// CopyTo copies src onto dst texel for texel. Both must be textures of this
// backend and src must have dst's size. Parts of src outside t are skipped.
func (t *Target) CopyTo(dst picking.Target, src image.Rectangle) error {
	d, ok := dst.(*Target)
	if !ok || d.b != t.b {
		return ErrForeignTarget
	}
	if t.tex == nil || d.tex == nil {
		return ErrNotReadable
	}
	if src.Size() != d.size {
		return fmt.Errorf("%w: %v onto %v", ErrScaledCopy, src.Size(), d.size)
	}
	from, to, ok := copyRegion(src, t.size)
	if !ok {
		return nil
	}

	encoder, err := t.b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(from.Min.X), Y: uint32(from.Min.Y), Z: 0},
		},
		&wgpu.ImageCopyTexture{
			Texture:  d.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(to.X), Y: uint32(to.Y), Z: 0},
		},
		&wgpu.Extent3D{Width: uint32(from.Dx()), Height: uint32(from.Dy()), DepthOrArrayLayers: 1},
	)
	return t.b.submit(encoder)
}

// ReadPixels copies the texture into a mapped buffer and waits for it.
func (t *Target) ReadPixels(buf []byte) error {
	if t.tex == nil {
		return ErrNotReadable
	}
	w, h := uint32(t.size.X), uint32(t.size.Y)
	if len(buf) != int(w*h*4) {
		return fmt.Errorf("gpu: read %d bytes from %dx%d target", len(buf), w, h)
	}
	bytesPerRow := alignedRow(w * 4)
	size := uint64(bytesPerRow) * uint64(h)
	if err := t.ensureReadback(size); err != nil {
		return err
	}

	encoder, err := t.b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	defer encoder.Release()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: 0, Y: 0, Z: 0},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: t.readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: h,
			},
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err := t.b.submit(encoder); err != nil {
		return err
	}

	var (
		mapped bool
		status wgpu.BufferMapAsyncStatus
	)
	t.readback.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		mapped = true
	})
	for i := 0; !mapped && i < maxPolls; i++ {
		t.b.device.Poll(true, nil)
	}
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return fmt.Errorf("gpu: map readback buffer: status %v", status)
	}

	data := t.readback.GetMappedRange(0, uint(size))
	unpadRows(buf, data, int(w*4), int(bytesPerRow), int(h))
	t.readback.Unmap()
	return nil
}

func (t *Target) ensureReadback(size uint64) error {
	if t.readback != nil && t.readbackSize == size {
		return nil
	}
	if t.readback != nil {
		t.readback.Release()
	}
	var err error
	t.readback, err = t.b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PickingReadback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		t.readback = nil
		return fmt.Errorf("gpu: create readback buffer: %w", err)
	}
	t.readbackSize = size
	return nil
}

func (t *Target) Release() {
	if t.readback != nil {
		t.readback.Release()
	}
	t.releaseDepth()
	if t.tex != nil {
		t.view.Release()
		t.tex.Release()
	}
}

func (t *Target) releaseDepth() {
	if t.depth != nil {
		t.depthView.Release()
		t.depth.Release()
		t.depth, t.depthView = nil, nil
	}
}

// alignedRow rounds a row pitch up to the 256 bytes buffer copies require.
func alignedRow(n uint32) uint32 {
	return (n + 255) &^ 255
}

// copyRegion clips src to a target of the given size. It returns the clipped
// source area and where it lands in the destination.
func copyRegion(src image.Rectangle, size image.Point) (image.Rectangle, image.Point, bool) {
	from := src.Intersect(image.Rectangle{Max: size})
	if from.Empty() {
		return image.Rectangle{}, image.Point{}, false
	}
	return from, from.Min.Sub(src.Min), true
}

// unpadRows copies rows of rowBytes out of a buffer with pitch stride.
func unpadRows(dst, src []byte, rowBytes, stride, rows int) {
	for y := 0; y < rows; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*stride:y*stride+rowBytes])
	}
}
