//go:build linux

package numa

import (
	"runtime"

	"golang.org/x/sys/unix"
)

const sysfsNodeRoot = "/sys/devices/system/node"

// DetectTopology reads the NUMA layout from sysfs, restricted to the CPUs
// this process may run on. Machines without NUMA information get a single
// node spanning the allowed CPUs.
func DetectTopology() (*Topology, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil || mask.Count() == 0 {
		topo, err := detectFrom(sysfsNodeRoot, nil)
		if err != nil || topo != nil {
			return topo, err
		}
		return SingleNode(runtime.NumCPU()), nil
	}

	topo, err := detectFrom(sysfsNodeRoot, mask.IsSet)
	if err != nil || topo != nil {
		return topo, err
	}

	var allowed []int
	for cpu := 0; len(allowed) < mask.Count(); cpu++ {
		if mask.IsSet(cpu) {
			allowed = append(allowed, cpu)
		}
	}
	return &Topology{IDs: []int{0}, CPUs: [][]int{allowed}}, nil
}
