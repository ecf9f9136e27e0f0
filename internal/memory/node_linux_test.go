//go:build linux

package memory

const maxNodeForTest = maxNodes
