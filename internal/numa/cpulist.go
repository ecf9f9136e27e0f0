package numa

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCPUList parses the kernel's CPU list format, e.g. "0-3,8-11" or
// "0,2,4,6". An empty list yields no CPUs.
func ParseCPUList(cpulist string) ([]int, error) {
	var cpus []int

	if cpulist == "" {
		return cpus, nil
	}

	for _, part := range strings.Split(cpulist, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			cpu, err := strconv.Atoi(part)
			if err != nil || cpu < 0 {
				return nil, fmt.Errorf("invalid cpu number: %s", part)
			}
			cpus = append(cpus, cpu)
			continue
		}

		start, err1 := strconv.Atoi(strings.TrimSpace(lo))
		end, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil || start < 0 || end < start {
			return nil, fmt.Errorf("invalid range: %s", part)
		}
		for i := start; i <= end; i++ {
			cpus = append(cpus, i)
		}
	}

	return cpus, nil
}
