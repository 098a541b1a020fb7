//go:build linux

package inject

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// linuxInjector shells out to xdotool. No pure-Go X11/uinput binding
// exists in the example pack and xdotool is the teacher's own approach,
// so it is kept rather than reimplemented against raw X11 or uinput.
type linuxInjector struct {
	mu            sync.Mutex
	width, height int
}

func newPlatformInjector(width, height int) (Injector, error) {
	return &linuxInjector{width: width, height: height}, nil
}

func (l *linuxInjector) Bounds() (int, int) { return l.width, l.height }
func (l *linuxInjector) Close() error        { return nil }

func (l *linuxInjector) Handle(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Kind {
	case MouseMove:
		x, y := clampToBounds(ev.NormX, ev.NormY, l.width, l.height)
		return l.moveTo(x, y)
	case MouseClick:
		btn := xdotoolButton(ev.Button)
		if ev.Pressed {
			return exec.Command("xdotool", "mousedown", btn).Run()
		}
		return exec.Command("xdotool", "mouseup", btn).Run()
	case MouseWheel:
		return l.wheel(ev.DeltaY)
	case KeyEvent:
		return l.key(ev.Key, ev.Pressed)
	default:
		return fmt.Errorf("inject: unsupported event kind %d", ev.Kind)
	}
}

func (l *linuxInjector) moveTo(x, y int) error {
	return exec.Command("xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y)).Run()
}

func xdotoolButton(button MouseButton) string {
	switch button {
	case ButtonRight:
		return "3"
	case ButtonMiddle:
		return "2"
	default:
		return "1"
	}
}

func (l *linuxInjector) wheel(delta int) error {
	direction := "4" // up
	if delta < 0 {
		direction = "5" // down
		delta = -delta
	}
	for i := 0; i < delta; i++ {
		if err := exec.Command("xdotool", "click", direction).Run(); err != nil {
			return err
		}
	}
	return nil
}

func (l *linuxInjector) key(name string, pressed bool) error {
	spec, ok := lookupKey(name)
	if !ok {
		return unknownKeyError(name)
	}
	verb := "keydown"
	if !pressed {
		verb = "keyup"
	}
	return exec.Command("xdotool", verb, spec.xdotool).Run()
}
