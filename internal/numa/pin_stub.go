//go:build !linux

package numa

import "runtime"

// pinCPUs only locks the thread; affinity is not settable here.
func pinCPUs([]int) error {
	runtime.LockOSThread()
	return nil
}
