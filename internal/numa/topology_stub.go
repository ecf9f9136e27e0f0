//go:build !linux

package numa

import "runtime"

// DetectTopology returns a single node spanning every CPU on platforms
// without NUMA information.
func DetectTopology() (*Topology, error) {
	return SingleNode(runtime.NumCPU()), nil
}
