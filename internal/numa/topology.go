// Package numa decides where workers run: it reads the machine's NUMA
// topology, maps worker ids onto nodes, and pins OS threads to a node's CPUs.
package numa

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Topology lists the NUMA nodes usable by this process.
type Topology struct {
	// IDs[i] is the kernel id of node i. Memory-only nodes and nodes with no
	// CPU in the affinity mask are left out, so ids can have gaps.
	IDs []int
	// CPUs[i] lists the usable CPUs of node i.
	CPUs [][]int
}

// SingleNode returns a one-node topology over cpus CPUs numbered from 0.
func SingleNode(cpus int) *Topology {
	if cpus < 1 {
		cpus = 1
	}
	list := make([]int, cpus)
	for i := range list {
		list[i] = i
	}
	return &Topology{IDs: []int{0}, CPUs: [][]int{list}}
}

// Nodes returns the number of usable nodes.
func (t *Topology) Nodes() int { return len(t.IDs) }

// TotalCPUs returns the number of usable CPUs across all nodes.
func (t *Topology) TotalCPUs() int {
	n := 0
	for _, cpus := range t.CPUs {
		n += len(cpus)
	}
	return n
}

// String returns a human-readable representation of the topology.
func (t *Topology) String() string {
	if t.Nodes() == 1 {
		return fmt.Sprintf("Single NUMA node, %d CPUs", t.TotalCPUs())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d NUMA nodes:\n", t.Nodes()))
	for i, cpus := range t.CPUs {
		sb.WriteString(fmt.Sprintf("  Node %d: CPUs %v\n", t.IDs[i], cpus))
	}
	return sb.String()
}

// detectFrom reads node*/cpulist files under root. allowed filters CPUs
// outside the process affinity mask; nil keeps every CPU. It returns nil
// when root holds no node with a usable CPU.
func detectFrom(root string, allowed func(cpu int) bool) (*Topology, error) {
	paths, err := filepath.Glob(filepath.Join(root, "node[0-9]*"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob NUMA nodes: %w", err)
	}

	type node struct {
		id   int
		cpus []int
	}
	nodes := make([]node, 0, len(paths))
	for _, p := range paths {
		id, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(p), "node"))
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(p, "cpulist"))
		if err != nil {
			continue
		}
		cpus, err := ParseCPUList(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		if allowed != nil {
			kept := cpus[:0]
			for _, c := range cpus {
				if allowed(c) {
					kept = append(kept, c)
				}
			}
			cpus = kept
		}
		if len(cpus) > 0 {
			nodes = append(nodes, node{id: id, cpus: cpus})
		}
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	// Glob order is lexical: node10 sorts before node2.
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })

	topo := &Topology{
		IDs:  make([]int, len(nodes)),
		CPUs: make([][]int, len(nodes)),
	}
	for i, n := range nodes {
		topo.IDs[i] = n.id
		topo.CPUs[i] = n.cpus
	}
	return topo, nil
}
