//go:build linux

package capture

/*
#cgo CFLAGS: -I/usr/include
#cgo LDFLAGS: -lX11 -lXext

#include <X11/Xlib.h>
#include <X11/Xutil.h>
#include <sys/ipc.h>
#include <sys/shm.h>
#include <X11/extensions/XShm.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    void* data;
    int width;
    int height;
    int bytesPerRow;
    int error;
} captureResult;

typedef struct {
    Display* display;
    Window root;
    int screen;
    int width;
    int height;
    int useShm;
    XShmSegmentInfo shmInfo;
    XImage* shmImage;
} captureCtx;

static captureCtx g_ctx = {0};

static int x11_init(int displayIndex) {
    if (g_ctx.display != NULL) {
        return 0;
    }
    g_ctx.display = XOpenDisplay(NULL);
    if (g_ctx.display == NULL) {
        return 1;
    }
    g_ctx.screen = displayIndex;
    if (g_ctx.screen >= ScreenCount(g_ctx.display)) {
        g_ctx.screen = DefaultScreen(g_ctx.display);
    }
    g_ctx.root = RootWindow(g_ctx.display, g_ctx.screen);
    g_ctx.width = DisplayWidth(g_ctx.display, g_ctx.screen);
    g_ctx.height = DisplayHeight(g_ctx.display, g_ctx.screen);

    int major, minor;
    Bool pixmaps;
    if (XShmQueryVersion(g_ctx.display, &major, &minor, &pixmaps)) {
        g_ctx.shmImage = XShmCreateImage(g_ctx.display, DefaultVisual(g_ctx.display, g_ctx.screen),
            DefaultDepth(g_ctx.display, g_ctx.screen), ZPixmap, NULL, &g_ctx.shmInfo,
            g_ctx.width, g_ctx.height);
        if (g_ctx.shmImage != NULL) {
            g_ctx.shmInfo.shmid = shmget(IPC_PRIVATE,
                g_ctx.shmImage->bytes_per_line * g_ctx.shmImage->height, IPC_CREAT | 0777);
            if (g_ctx.shmInfo.shmid >= 0) {
                g_ctx.shmInfo.shmaddr = g_ctx.shmImage->data = shmat(g_ctx.shmInfo.shmid, 0, 0);
                g_ctx.shmInfo.readOnly = False;
                if (XShmAttach(g_ctx.display, &g_ctx.shmInfo)) {
                    g_ctx.useShm = 1;
                    return 0;
                }
            }
            XDestroyImage(g_ctx.shmImage);
            g_ctx.shmImage = NULL;
        }
        g_ctx.useShm = 0;
    }
    return 0;
}

static void x11_cleanup(void) {
    if (g_ctx.shmImage != NULL) {
        XShmDetach(g_ctx.display, &g_ctx.shmInfo);
        shmdt(g_ctx.shmInfo.shmaddr);
        shmctl(g_ctx.shmInfo.shmid, IPC_RMID, 0);
        XDestroyImage(g_ctx.shmImage);
        g_ctx.shmImage = NULL;
    }
    if (g_ctx.display != NULL) {
        XCloseDisplay(g_ctx.display);
        g_ctx.display = NULL;
    }
    memset(&g_ctx, 0, sizeof(g_ctx));
}

static captureResult x11_capture(int displayIndex) {
    captureResult result = {0};
    int rc = x11_init(displayIndex);
    if (rc != 0) {
        result.error = rc;
        return result;
    }

    XImage *image = NULL;
    if (g_ctx.useShm && g_ctx.shmImage != NULL) {
        if (!XShmGetImage(g_ctx.display, g_ctx.root, g_ctx.shmImage, 0, 0, AllPlanes)) {
            result.error = 2;
            return result;
        }
        image = g_ctx.shmImage;
    } else {
        image = XGetImage(g_ctx.display, g_ctx.root, 0, 0, g_ctx.width, g_ctx.height, AllPlanes, ZPixmap);
        if (image == NULL) {
            result.error = 3;
            return result;
        }
    }

    result.width = image->width;
    result.height = image->height;
    result.bytesPerRow = result.width * 4;

    size_t dataSize = (size_t)result.bytesPerRow * result.height;
    result.data = malloc(dataSize);
    if (result.data == NULL) {
        if (!g_ctx.useShm) XDestroyImage(image);
        result.error = 4;
        return result;
    }

    unsigned char *dst = (unsigned char *)result.data;
    int depth = image->bits_per_pixel;
    for (int y = 0; y < result.height; y++) {
        for (int x = 0; x < result.width; x++) {
            unsigned long pixel = XGetPixel(image, x, y);
            int idx = y * result.bytesPerRow + x * 4;
            if (depth == 32 || depth == 24) {
                dst[idx+0] = (pixel >> 16) & 0xFF;
                dst[idx+1] = (pixel >> 8) & 0xFF;
                dst[idx+2] = pixel & 0xFF;
                dst[idx+3] = 255;
            } else if (depth == 16) {
                dst[idx+0] = ((pixel >> 11) & 0x1F) * 255 / 31;
                dst[idx+1] = ((pixel >> 5) & 0x3F) * 255 / 63;
                dst[idx+2] = (pixel & 0x1F) * 255 / 31;
                dst[idx+3] = 255;
            }
        }
    }

    if (!g_ctx.useShm) XDestroyImage(image);
    return result;
}

static void x11_bounds(int displayIndex, int *width, int *height, int *err) {
    *err = x11_init(displayIndex);
    if (*err == 0) {
        *width = g_ctx.width;
        *height = g_ctx.height;
    }
}

static void x11_free(void *data) {
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

type x11Source struct {
	cfg    Config
	mu     sync.Mutex
	width  int
	height int
}

func newPlatformSource(cfg Config) (Source, error) {
	return &x11Source{cfg: cfg}, nil
}

func (s *x11Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var w, h, errCode C.int
	C.x11_bounds(C.int(s.cfg.DisplayIndex), &w, &h, &errCode)
	if errCode != 0 {
		return translateX11Error(int(errCode))
	}
	s.width, s.height = int(w), int(h)
	return nil
}

func (s *x11Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	C.x11_cleanup()
	return nil
}

func (s *x11Source) Capture() (*media.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := C.x11_capture(C.int(s.cfg.DisplayIndex))
	if result.error != 0 {
		return nil, translateX11Error(int(result.error))
	}
	defer C.x11_free(result.data)

	width := int(result.width)
	height := int(result.height)
	stride := int(result.bytesPerRow)
	pix := C.GoBytes(result.data, C.int(stride*height))

	return media.NewFrame(width, height, stride, pix, time.Now().UnixMilli())
}

func (s *x11Source) Width() int  { return s.width }
func (s *x11Source) Height() int { return s.height }

func translateX11Error(code int) error {
	switch code {
	case 1:
		return fmt.Errorf("%w: failed to open X11 display (is DISPLAY set?)", ErrDisplayNotFound)
	case 2:
		return fmt.Errorf("capture: XShmGetImage failed")
	case 3:
		return fmt.Errorf("capture: XGetImage failed")
	case 4:
		return fmt.Errorf("capture: allocation failed")
	default:
		return fmt.Errorf("capture: x11 error %d", code)
	}
}
