//go:build !linux && !windows && !darwin

package inject

func newPlatformInjector(width, height int) (Injector, error) {
	return nil, ErrNotSupported
}
