//go:build race

package memory

// The race detector does not see atomics on memory outside the Go heap, so
// node binding is off in race builds.
const raceEnabled = true
