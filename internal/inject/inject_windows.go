//go:build windows

package inject

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"
)

var (
	user32           = syscall.NewLazyDLL("user32.dll")
	procSendInput    = user32.NewProc("SendInput")
	procSetCursorPos = user32.NewProc("SetCursorPos")
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseEventMove       = 0x0001
	mouseEventLeftDown   = 0x0002
	mouseEventLeftUp     = 0x0004
	mouseEventRightDown  = 0x0008
	mouseEventRightUp    = 0x0010
	mouseEventMiddleDown = 0x0020
	mouseEventMiddleUp   = 0x0040
	mouseEventWheel      = 0x0800

	keyEventKeyUp = 0x0002
)

// mouseInputStruct and keybdInputStruct both model a Windows INPUT
// structure. SendInput distinguishes them by the leading type field; the
// union member is laid out separately per call rather than modeled as an
// actual union, since only one variant is ever populated at a time.
type mouseInputStruct struct {
	inputType   uint32
	_           uint32 // alignment padding matching the real INPUT union
	dx, dy      int32
	mouseData   uint32
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type keybdInputStruct struct {
	inputType   uint32
	_           uint32
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type windowsInjector struct {
	mu            sync.Mutex
	width, height int
}

func newPlatformInjector(width, height int) (Injector, error) {
	return &windowsInjector{width: width, height: height}, nil
}

func (w *windowsInjector) Bounds() (int, int) { return w.width, w.height }
func (w *windowsInjector) Close() error        { return nil }

func (w *windowsInjector) Handle(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.Kind {
	case MouseMove:
		x, y := clampToBounds(ev.NormX, ev.NormY, w.width, w.height)
		return w.moveTo(x, y)
	case MouseClick:
		down, up := mouseButtonFlags(ev.Button)
		flag := up
		if ev.Pressed {
			flag = down
		}
		return w.mouseEvent(flag)
	case MouseWheel:
		return w.wheel(ev.DeltaY)
	case KeyEvent:
		return w.key(ev.Key, ev.Pressed)
	default:
		return fmt.Errorf("inject: unsupported event kind %d", ev.Kind)
	}
}

func (w *windowsInjector) moveTo(x, y int) error {
	ret, _, _ := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("inject: SetCursorPos failed")
	}
	return nil
}

func mouseButtonFlags(button MouseButton) (down, up uint32) {
	switch button {
	case ButtonRight:
		return mouseEventRightDown, mouseEventRightUp
	case ButtonMiddle:
		return mouseEventMiddleDown, mouseEventMiddleUp
	default:
		return mouseEventLeftDown, mouseEventLeftUp
	}
}

func (w *windowsInjector) mouseEvent(flags uint32) error {
	inp := mouseInputStruct{inputType: inputMouse, dwFlags: flags}
	ret, _, _ := procSendInput.Call(1, uintptr(unsafe.Pointer(&inp)), unsafe.Sizeof(inp))
	if ret == 0 {
		return fmt.Errorf("inject: SendInput (mouse) failed")
	}
	return nil
}

func (w *windowsInjector) wheel(delta int) error {
	inp := mouseInputStruct{inputType: inputMouse, dwFlags: mouseEventWheel, mouseData: uint32(int32(delta * 120))}
	ret, _, _ := procSendInput.Call(1, uintptr(unsafe.Pointer(&inp)), unsafe.Sizeof(inp))
	if ret == 0 {
		return fmt.Errorf("inject: SendInput (wheel) failed")
	}
	return nil
}

func (w *windowsInjector) key(name string, pressed bool) error {
	spec, ok := lookupKey(name)
	if !ok {
		return unknownKeyError(name)
	}
	var flags uint32
	if !pressed {
		flags = keyEventKeyUp
	}
	inp := keybdInputStruct{inputType: inputKeyboard, wVk: spec.vk, dwFlags: flags}
	ret, _, _ := procSendInput.Call(1, uintptr(unsafe.Pointer(&inp)), unsafe.Sizeof(inp))
	if ret == 0 {
		return fmt.Errorf("inject: SendInput (key) failed")
	}
	return nil
}
