//go:build windows && cgo

package codec

import "syscall"

func init() {
	registerHardwareFactory(newMFTEncoder)
}

// mftAvailable checks that Media Foundation itself is present; every
// supported Windows release since Vista ships it, so this mostly guards
// against stripped server-core installs that omit mf.dll.
func mftAvailable() bool {
	return syscall.NewLazyDLL("mf.dll").Load() == nil &&
		syscall.NewLazyDLL("mfplat.dll").Load() == nil
}

func newMFTEncoder(cfg Config) (Encoder, error) {
	if !mftAvailable() {
		return nil, ErrNotAvailable
	}
	return newSoftwareH264Backend(cfg, "h264-mft")
}
