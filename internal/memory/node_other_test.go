//go:build !linux

package memory

const maxNodeForTest = 1 << 20
