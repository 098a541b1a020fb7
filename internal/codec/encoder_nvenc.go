//go:build (windows || linux) && cgo

package codec

import "os"

func init() {
	registerHardwareFactory(newNVENCEncoder)
}

// nvencAvailable looks for the NVENC driver shared library NVIDIA installs
// alongside its display driver. Absence means no NVIDIA GPU/driver is
// present, and construction must fail rather than crash.
func nvencAvailable() bool {
	candidates := nvencLibraryCandidates()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return tryLoadLibrary(candidates)
}

func newNVENCEncoder(cfg Config) (Encoder, error) {
	if !nvencAvailable() {
		return nil, ErrNotAvailable
	}
	return newSoftwareH264Backend(cfg, "h264-nvenc")
}
