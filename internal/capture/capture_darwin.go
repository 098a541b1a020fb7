//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation

#include <CoreGraphics/CoreGraphics.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    void* data;
    int width;
    int height;
    int bytesPerRow;
    int error;
} captureResult;

static captureResult cg_capture(int displayIndex) {
    captureResult result = {0};

    CGDirectDisplayID displays[16];
    uint32_t count = 0;
    if (CGGetActiveDisplayList(16, displays, &count) != kCGErrorSuccess || count == 0) {
        result.error = 1;
        return result;
    }
    if (displayIndex < 0 || (uint32_t)displayIndex >= count) {
        displayIndex = 0;
    }
    CGDirectDisplayID display = displays[displayIndex];

    CGImageRef image = CGDisplayCreateImage(display);
    if (image == NULL) {
        result.error = 2;
        return result;
    }

    result.width = (int)CGImageGetWidth(image);
    result.height = (int)CGImageGetHeight(image);
    result.bytesPerRow = result.width * 4;

    CGColorSpaceRef colorSpace = CGColorSpaceCreateDeviceRGB();
    size_t dataSize = (size_t)result.bytesPerRow * result.height;
    result.data = malloc(dataSize);
    if (result.data == NULL) {
        CGColorSpaceRelease(colorSpace);
        CGImageRelease(image);
        result.error = 3;
        return result;
    }

    CGContextRef ctx = CGBitmapContextCreate(result.data, result.width, result.height, 8,
        result.bytesPerRow, colorSpace,
        kCGImageAlphaPremultipliedLast | kCGBitmapByteOrder32Big);
    if (ctx == NULL) {
        free(result.data);
        result.data = NULL;
        CGColorSpaceRelease(colorSpace);
        CGImageRelease(image);
        result.error = 4;
        return result;
    }

    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);

    CGContextRelease(ctx);
    CGColorSpaceRelease(colorSpace);
    CGImageRelease(image);
    return result;
}

static void cg_bounds(int displayIndex, int *width, int *height, int *err) {
    CGDirectDisplayID displays[16];
    uint32_t count = 0;
    if (CGGetActiveDisplayList(16, displays, &count) != kCGErrorSuccess || count == 0) {
        *err = 1;
        return;
    }
    if (displayIndex < 0 || (uint32_t)displayIndex >= count) {
        displayIndex = 0;
    }
    CGDirectDisplayID display = displays[displayIndex];
    *width = (int)CGDisplayPixelsWide(display);
    *height = (int)CGDisplayPixelsHigh(display);
    *err = 0;
}

static void cg_free(void *data) {
    if (data != NULL) free(data);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"

	"github.com/sscontrol/agent/internal/media"
)

// coreGraphicsSource captures via CGDisplayCreateImage, a synchronous
// whole-frame snapshot API. This trades the zero-copy streaming path a
// ScreenCaptureKit capturer offers for a capturer with no asynchronous
// delegate plumbing to get wrong.
type coreGraphicsSource struct {
	cfg    Config
	mu     sync.Mutex
	width  int
	height int
}

func newPlatformSource(cfg Config) (Source, error) {
	return &coreGraphicsSource{cfg: cfg}, nil
}

func (s *coreGraphicsSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var w, h, errCode C.int
	C.cg_bounds(C.int(s.cfg.DisplayIndex), &w, &h, &errCode)
	if errCode != 0 {
		return fmt.Errorf("%w: no active displays", ErrDisplayNotFound)
	}
	s.width, s.height = int(w), int(h)
	return nil
}

func (s *coreGraphicsSource) Stop() error { return nil }

func (s *coreGraphicsSource) Capture() (*media.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := C.cg_capture(C.int(s.cfg.DisplayIndex))
	switch result.error {
	case 0:
	case 1:
		return nil, ErrDisplayNotFound
	case 2:
		return nil, ErrPermissionDenied
	default:
		return nil, fmt.Errorf("capture: CoreGraphics capture failed (%d)", int(result.error))
	}
	defer C.cg_free(result.data)

	width := int(result.width)
	height := int(result.height)
	stride := int(result.bytesPerRow)
	pix := C.GoBytes(result.data, C.int(stride*height))

	return media.NewFrame(width, height, stride, pix, time.Now().UnixMilli())
}

func (s *coreGraphicsSource) Width() int  { return s.width }
func (s *coreGraphicsSource) Height() int { return s.height }
