// Package capture implements the Frame Source contract: producing
// timestamped RGBA frames from a chosen display using the best mechanism
// the host platform offers.
package capture

import (
	"errors"
	"time"

	"github.com/sscontrol/agent/internal/media"
)

// ErrWaitTimeout is returned by Capture when no frame update arrived within
// the platform's internal wait window. Callers must treat it as a
// non-error "nothing changed yet" skip, distinct from a hard failure.
var ErrWaitTimeout = errors.New("capture: wait timeout")

// ErrNotSupported is returned when screen capture has no implementation on
// the running platform.
var ErrNotSupported = errors.New("capture: not supported on this platform")

// ErrPermissionDenied is returned when the OS denies screen-recording
// permission to the process.
var ErrPermissionDenied = errors.New("capture: permission denied")

// ErrDisplayNotFound is returned when the configured display index does not
// exist.
var ErrDisplayNotFound = errors.New("capture: display not found")

// Config selects which display to capture.
type Config struct {
	DisplayIndex int
}

// Source is the Frame Source contract (spec §4.1): start/stop lifecycle,
// synchronous capture that may block briefly, and dimensions fixed after
// construction.
type Source interface {
	Start() error
	Stop() error

	// Capture synchronously produces the next frame. It may block briefly
	// waiting for a display update and returns ErrWaitTimeout (not a hard
	// error) when none arrives in time.
	Capture() (*media.Frame, error)

	Width() int
	Height() int
}

// New creates a platform-specific Source for the given display.
func New(cfg Config) (Source, error) {
	return newPlatformSource(cfg)
}

// waitWindow is the nominal bound on how long Capture() blocks before
// returning ErrWaitTimeout. The platform backends do not reference it and
// do not poll; each captures one snapshot synchronously.
const waitWindow = 200 * time.Millisecond
