//go:build linux

package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// mpolPreferred asks for pages on the node, falling back when it is full.
	mpolPreferred = 1

	nodemaskWords = 16
	maxNodes      = nodemaskWords * 64
)

// mapNodeRegion maps size bytes of anonymous memory and sets a preferred
// policy for node before any page is touched.
func mapNodeRegion(size, node int) ([]byte, error) {
	if node < 0 || node >= maxNodes {
		return nil, fmt.Errorf("node %d out of range", node)
	}

	pageSize := unix.Getpagesize()
	size = (size + pageSize - 1) &^ (pageSize - 1)

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	var mask [nodemaskWords]uint64
	mask[node/64] |= 1 << (uint(node) % 64)

	_, _, errno := unix.Syscall6(
		unix.SYS_MBIND,
		uintptr(unsafe.Pointer(&mem[0])),
		uintptr(len(mem)),
		mpolPreferred,
		uintptr(unsafe.Pointer(&mask[0])),
		maxNodes,
		0,
	)
	if errno != 0 {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("mbind node %d: %w", node, errno)
	}
	return mem, nil
}

func unmapRegion(mem []byte) error {
	return unix.Munmap(mem)
}
