//go:build windows

package codec

import "syscall"

func nvencLibraryCandidates() []string {
	return []string{"nvEncodeAPI64.dll", "nvEncodeAPI.dll"}
}

func tryLoadLibrary(candidates []string) bool {
	for _, name := range candidates {
		if syscall.NewLazyDLL(name).Load() == nil {
			return true
		}
	}
	return false
}
