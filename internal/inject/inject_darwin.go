//go:build darwin

package inject

/*
#cgo LDFLAGS: -framework ApplicationServices

#include <ApplicationServices/ApplicationServices.h>

static void cg_move(double x, double y) {
    CGEventRef ev = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}

static void cg_click(double x, double y, int button, int down) {
    CGEventType downType, upType;
    CGMouseButton btn;
    switch (button) {
    case 1:
        downType = kCGEventRightMouseDown; upType = kCGEventRightMouseUp; btn = kCGMouseButtonRight;
        break;
    case 2:
        downType = kCGEventOtherMouseDown; upType = kCGEventOtherMouseUp; btn = kCGMouseButtonCenter;
        break;
    default:
        downType = kCGEventLeftMouseDown; upType = kCGEventLeftMouseUp; btn = kCGMouseButtonLeft;
        break;
    }
    CGEventType t = down ? downType : upType;
    CGEventRef ev = CGEventCreateMouseEvent(NULL, t, CGPointMake(x, y), btn);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}

static void cg_scroll(int delta) {
    CGEventRef ev = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 1, delta);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}

static void cg_key(int vk, int down) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, (CGKeyCode)vk, down ? true : false);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}
*/
import "C"

import (
	"fmt"
	"sync"
)

// darwinInjector posts synthetic events via CGEvent, the same HID-tap
// mechanism AppleScript's "System Events" and every accessibility-driven
// remote control tool on macOS relies on.
type darwinInjector struct {
	mu            sync.Mutex
	width, height int
}

func newPlatformInjector(width, height int) (Injector, error) {
	return &darwinInjector{width: width, height: height}, nil
}

func (d *darwinInjector) Bounds() (int, int) { return d.width, d.height }
func (d *darwinInjector) Close() error        { return nil }

func (d *darwinInjector) Handle(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case MouseMove:
		x, y := clampToBounds(ev.NormX, ev.NormY, d.width, d.height)
		C.cg_move(C.double(x), C.double(y))
		return nil
	case MouseClick:
		C.cg_click(0, 0, darwinButtonCode(ev.Button), boolToC(ev.Pressed))
		return nil
	case MouseWheel:
		C.cg_scroll(C.int(ev.DeltaY))
		return nil
	case KeyEvent:
		spec, ok := lookupKey(ev.Key)
		if !ok {
			return unknownKeyError(ev.Key)
		}
		C.cg_key(C.int(darwinKeyCode(spec)), boolToC(ev.Pressed))
		return nil
	default:
		return fmt.Errorf("inject: unsupported event kind %d", ev.Kind)
	}
}

func darwinButtonCode(button MouseButton) C.int {
	switch button {
	case ButtonRight:
		return 1
	case ButtonMiddle:
		return 2
	default:
		return 0
	}
}

// darwinKeyCode reuses the Windows virtual-key field as a stand-in ordinal
// only where it happens to coincide with the macOS keycode space (letters
// and digits do not); callers should prefer xdotool-equivalent symbolic
// dispatch on other platforms. On darwin we keep a small direct table for
// the keys the alphabet actually needs to resolve correctly.
func darwinKeyCode(spec keySpec) int {
	if code, ok := darwinKeyCodes[spec.xdotool]; ok {
		return code
	}
	return 0
}

// darwinKeyCodes maps xdotool keysym names (reused here purely as a
// platform-neutral key identifier) to macOS virtual keycodes from
// <Carbon/HIToolbox/Events.h>.
var darwinKeyCodes = map[string]int{
	"a": 0, "s": 1, "d": 2, "f": 3, "h": 4, "g": 5, "z": 6, "x": 7, "c": 8, "v": 9,
	"b": 11, "q": 12, "w": 13, "e": 14, "r": 15, "y": 16, "t": 17,
	"1": 18, "2": 19, "3": 20, "4": 21, "6": 22, "5": 23, "equal": 24, "9": 25, "7": 26,
	"minus": 27, "8": 28, "0": 29, "bracketright": 30, "o": 31, "u": 32,
	"bracketleft": 33, "i": 34, "p": 35, "Return": 36, "l": 37, "j": 38,
	"apostrophe": 39, "k": 40, "semicolon": 41, "backslash": 42, "comma": 43,
	"slash": 44, "n": 45, "m": 46, "period": 47, "Tab": 48, "space": 49,
	"grave": 50, "BackSpace": 51, "Escape": 53,
	"Right": 124, "Left": 123, "Down": 125, "Up": 126,
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
