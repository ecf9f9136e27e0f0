//go:build linux

package numa

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func pinCPUs(cpus []int) error {
	runtime.LockOSThread()

	var set unix.CPUSet
	for _, cpu := range cpus {
		set.Set(cpu)
	}
	return unix.SchedSetaffinity(0, &set)
}
