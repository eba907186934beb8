package recorder

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Image is a swapchain image acquired for one frame.
type Image struct {
	Texture hal.Texture
	View    hal.TextureView
}

// Swapchain provides the images frames are presented from.
type Swapchain interface {
	// Extent returns the configured image size in pixels.
	Extent() (width, height uint32)
	// WindowExtent returns the size the window currently asks for.
	WindowExtent() (width, height uint32)
	Format() gputypes.TextureFormat
	// Acquire returns the next image. It returns ErrSwapchainOutOfDate
	// when the swapchain must be reconfigured first.
	Acquire() (Image, error)
	// Present hands the last acquired image to the display.
	Present(queue hal.Queue) error
	// Configure resizes the swapchain.
	Configure(width, height uint32) error
	Destroy()
}

// OffscreenSwapchain renders into textures it owns, sized after a window
// provider. It is used headless and in tests.
type OffscreenSwapchain struct {
	device hal.Device
	window gpucontext.WindowProvider
	format gputypes.TextureFormat

	width, height uint32
	images        []Image
	next          int
	presented     uint64
}

// NewOffscreenSwapchain creates FramesInFlight images at the window's
// physical size.
func NewOffscreenSwapchain(device hal.Device, window gpucontext.WindowProvider, format gputypes.TextureFormat) (*OffscreenSwapchain, error) {
	s := &OffscreenSwapchain{device: device, window: window, format: format}
	w, h := physicalSize(window)
	if err := s.Configure(w, h); err != nil {
		return nil, err
	}
	return s, nil
}

func physicalSize(window gpucontext.WindowProvider) (uint32, uint32) {
	w, h := window.Size()
	sf := window.ScaleFactor()
	return uint32(float64(w) * sf), uint32(float64(h) * sf)
}

// Extent returns the configured size.
func (s *OffscreenSwapchain) Extent() (uint32, uint32) { return s.width, s.height }

// WindowExtent returns the window's physical size.
func (s *OffscreenSwapchain) WindowExtent() (uint32, uint32) { return physicalSize(s.window) }

// Format returns the image format.
func (s *OffscreenSwapchain) Format() gputypes.TextureFormat { return s.format }

// Presented returns the number of presented frames.
func (s *OffscreenSwapchain) Presented() uint64 { return s.presented }

// Acquire returns the images in turn. It reports ErrSwapchainOutOfDate once
// the window size no longer matches the configured size.
func (s *OffscreenSwapchain) Acquire() (Image, error) {
	if w, h := physicalSize(s.window); w != s.width || h != s.height {
		return Image{}, fmt.Errorf("offscreen %dx%d, window %dx%d: %w", s.width, s.height, w, h, ErrSwapchainOutOfDate)
	}
	img := s.images[s.next]
	s.next = (s.next + 1) % len(s.images)
	return img, nil
}

// Present counts the frame and asks the window for a redraw.
func (s *OffscreenSwapchain) Present(hal.Queue) error {
	s.presented++
	s.window.RequestRedraw()
	return nil
}

// Configure re-creates the images at width x height.
func (s *OffscreenSwapchain) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("offscreen swapchain: %w", hal.ErrZeroArea)
	}
	s.destroyImages()
	s.width, s.height = width, height
	for i := range framegraph.FramesInFlight {
		tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("offscreen[%d]", i),
			Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        s.format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			s.destroyImages()
			return fmt.Errorf("create offscreen image: %w", err)
		}
		view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("offscreen[%d]_view", i),
			Format:        s.format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			s.device.DestroyTexture(tex)
			s.destroyImages()
			return fmt.Errorf("create offscreen view: %w", err)
		}
		s.images = append(s.images, Image{Texture: tex, View: view})
	}
	s.next = 0
	return nil
}

func (s *OffscreenSwapchain) destroyImages() {
	for _, img := range s.images {
		s.device.DestroyTextureView(img.View)
		s.device.DestroyTexture(img.Texture)
	}
	s.images = s.images[:0]
}

// Destroy releases the images.
func (s *OffscreenSwapchain) Destroy() { s.destroyImages() }

// SurfaceSwapchain presents to a HAL surface.
type SurfaceSwapchain struct {
	device  hal.Device
	surface hal.Surface
	window  gpucontext.WindowProvider
	format  gputypes.TextureFormat
	mode    gputypes.PresentMode

	width, height uint32
	current       hal.SurfaceTexture
	view          hal.TextureView
	suboptimal    bool
}

// NewSurfaceSwapchain configures surface at the window's physical size.
func NewSurfaceSwapchain(device hal.Device, surface hal.Surface, window gpucontext.WindowProvider, format gputypes.TextureFormat) (*SurfaceSwapchain, error) {
	s := &SurfaceSwapchain{device: device, surface: surface, window: window, format: format, mode: gputypes.PresentModeFifo}
	if err := s.Configure(physicalSize(window)); err != nil {
		return nil, err
	}
	return s, nil
}

// Extent returns the configured size.
func (s *SurfaceSwapchain) Extent() (uint32, uint32) { return s.width, s.height }

// WindowExtent returns the window's physical size.
func (s *SurfaceSwapchain) WindowExtent() (uint32, uint32) { return physicalSize(s.window) }

// Format returns the surface format.
func (s *SurfaceSwapchain) Format() gputypes.TextureFormat { return s.format }

// Configure (re)configures the surface.
func (s *SurfaceSwapchain) Configure(width, height uint32) error {
	s.release()
	err := s.surface.Configure(s.device, &hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      s.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: s.mode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", width, height, err)
	}
	s.width, s.height = width, height
	s.suboptimal = false
	return nil
}

// Acquire acquires the next surface texture.
func (s *SurfaceSwapchain) Acquire() (Image, error) {
	if s.suboptimal {
		return Image{}, fmt.Errorf("surface suboptimal: %w", ErrSwapchainOutOfDate)
	}
	acq, err := s.surface.AcquireTexture(nil)
	if err != nil {
		return Image{}, surfaceError("acquire", err)
	}
	view, err := s.device.CreateTextureView(acq.Texture, &hal.TextureViewDescriptor{
		Label:         "surface_view",
		Format:        s.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		s.surface.DiscardTexture(acq.Texture)
		return Image{}, fmt.Errorf("create surface view: %w", err)
	}
	s.current, s.view = acq.Texture, view
	s.suboptimal = acq.Suboptimal
	return Image{Texture: acq.Texture, View: view}, nil
}

// Present presents the acquired texture.
func (s *SurfaceSwapchain) Present(queue hal.Queue) error {
	if s.current == nil {
		return nil
	}
	err := queue.Present(s.surface, s.current, nil)
	s.device.DestroyTextureView(s.view)
	s.current, s.view = nil, nil
	if err != nil {
		return surfaceError("present", err)
	}
	return nil
}

func (s *SurfaceSwapchain) release() {
	if s.current != nil {
		s.device.DestroyTextureView(s.view)
		s.surface.DiscardTexture(s.current)
		s.current, s.view = nil, nil
	}
}

// Destroy unconfigures the surface. The surface itself is owned by the
// caller.
func (s *SurfaceSwapchain) Destroy() {
	s.release()
	s.surface.Unconfigure(s.device)
}

func surfaceError(op string, err error) error {
	if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
		return fmt.Errorf("%s: %w: %w", op, ErrSwapchainOutOfDate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
