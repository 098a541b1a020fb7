//go:build windows

package capture

import (
	"fmt"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/sscontrol/agent/internal/media"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procGetSystemMetrics   = user32.NewProc("GetSystemMetrics")
	procSetProcessDPIAware = user32.NewProc("SetProcessDPIAware")

	procCreateDCW              = gdi32.NewProc("CreateDCW")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	smCxScreen   = 0
	smCyScreen   = 1
	srcCopy      = 0x00CC0020
	captureBlt   = 0x40000000
	biRGB        = 0
	dibRGBColors = 0
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

var displayDeviceName = syscall.StringToUTF16Ptr("DISPLAY")

func init() {
	if procSetProcessDPIAware.Find() == nil {
		procSetProcessDPIAware.Call()
	}
}

// gdiSource implements Source using Windows GDI via raw syscalls, with no
// cgo dependency. Handles persist across frames and are rebuilt only when
// the screen resolution changes or a capture attempt fails.
type gdiSource struct {
	cfg Config
	mu  sync.Mutex

	screenDC      uintptr
	screenDCOwned bool
	memDC         uintptr
	hBitmap       uintptr
	oldBitmap     uintptr
	bi            bitmapInfo
	width         int
	height        int
	inited        bool

	pixBuf []byte
}

func newPlatformSource(cfg Config) (Source, error) {
	return &gdiSource{cfg: cfg}, nil
}

func (s *gdiSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureHandlesLocked()
}

func (s *gdiSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseHandlesLocked()
	return nil
}

func (s *gdiSource) ensureHandlesLocked() error {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return fmt.Errorf("capture: GetSystemMetrics returned zero dimensions")
	}
	width, height := int(w), int(h)

	if s.inited && s.width == width && s.height == height {
		return nil
	}
	s.releaseHandlesLocked()

	// CreateDC("DISPLAY") works on the Winlogon secure desktop; GetDC(0) does
	// not, since it is tied to the desktop window station.
	hdc, _, _ := procCreateDCW.Call(uintptr(unsafe.Pointer(displayDeviceName)), 0, 0, 0)
	owned := true
	if hdc == 0 {
		hdc, _, _ = procGetDC.Call(0)
		if hdc == 0 {
			return fmt.Errorf("capture: both CreateDC and GetDC failed")
		}
		owned = false
	}

	memDC, _, _ := procCreateCompatibleDC.Call(hdc)
	if memDC == 0 {
		releaseScreenDC(hdc, owned)
		return fmt.Errorf("capture: CreateCompatibleDC failed")
	}

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hdc, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		procDeleteDC.Call(memDC)
		releaseScreenDC(hdc, owned)
		return fmt.Errorf("capture: CreateCompatibleBitmap failed")
	}

	oldBitmap, _, _ := procSelectObject.Call(memDC, hBitmap)
	if oldBitmap == 0 {
		procDeleteObject.Call(hBitmap)
		procDeleteDC.Call(memDC)
		releaseScreenDC(hdc, owned)
		return fmt.Errorf("capture: SelectObject failed")
	}

	s.screenDC = hdc
	s.screenDCOwned = owned
	s.memDC = memDC
	s.hBitmap = hBitmap
	s.oldBitmap = oldBitmap
	s.width = width
	s.height = height
	s.inited = true
	s.pixBuf = make([]byte, width*height*4)
	s.bi = bitmapInfo{
		BmiHeader: bitmapInfoHeader{
			BiSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			BiWidth:       int32(width),
			BiHeight:      -int32(height),
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: biRGB,
		},
	}
	return nil
}

func releaseScreenDC(hdc uintptr, owned bool) {
	if owned {
		procDeleteDC.Call(hdc)
	} else {
		procReleaseDC.Call(0, hdc)
	}
}

func (s *gdiSource) releaseHandlesLocked() {
	if !s.inited {
		return
	}
	if s.oldBitmap != 0 && s.memDC != 0 {
		procSelectObject.Call(s.memDC, s.oldBitmap)
	}
	if s.hBitmap != 0 {
		procDeleteObject.Call(s.hBitmap)
	}
	if s.memDC != 0 {
		procDeleteDC.Call(s.memDC)
	}
	if s.screenDC != 0 {
		releaseScreenDC(s.screenDC, s.screenDCOwned)
	}
	s.inited = false
	s.screenDC, s.memDC, s.hBitmap, s.oldBitmap = 0, 0, 0, 0
}

func (s *gdiSource) Capture() (*media.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt == 1 {
			s.releaseHandlesLocked()
		}
		if err := s.ensureHandlesLocked(); err != nil {
			lastErr = err
			continue
		}
		frame, err := s.captureOnceLocked()
		if err == nil {
			return frame, nil
		}
		lastErr = err
	}

	// Secure-desktop transitions invalidate device contexts transiently;
	// treat repeated failure as a skip, not a hard error.
	_ = lastErr
	return nil, ErrWaitTimeout
}

func (s *gdiSource) captureOnceLocked() (*media.Frame, error) {
	ret, _, _ := procBitBlt.Call(s.memDC, 0, 0, uintptr(s.width), uintptr(s.height),
		s.screenDC, 0, 0, srcCopy|captureBlt)
	if ret == 0 {
		ret, _, _ = procBitBlt.Call(s.memDC, 0, 0, uintptr(s.width), uintptr(s.height),
			s.screenDC, 0, 0, srcCopy)
		if ret == 0 {
			return nil, fmt.Errorf("capture: BitBlt failed")
		}
	}

	ret, _, _ = procGetDIBits.Call(
		s.memDC, s.hBitmap, 0, uintptr(s.height),
		uintptr(unsafe.Pointer(&s.pixBuf[0])),
		uintptr(unsafe.Pointer(&s.bi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("capture: GetDIBits failed")
	}

	rgba := make([]byte, len(s.pixBuf))
	bgraToRGBA(s.pixBuf, rgba)
	return media.NewFrame(s.width, s.height, s.width*4, rgba, time.Now().UnixMilli())
}

func (s *gdiSource) Width() int  { return s.width }
func (s *gdiSource) Height() int { return s.height }

func bgraToRGBA(src, dst []byte) {
	n := len(src) / 4
	for i := 0; i < n; i++ {
		o := i * 4
		dst[o+0] = src[o+2]
		dst[o+1] = src[o+1]
		dst[o+2] = src[o+0]
		dst[o+3] = 255
	}
}
