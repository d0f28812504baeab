package service

import (
	"github.com/server24/provisiond/internal/errors"
)

// nextFreePort returns the smallest port in [floor, ceiling] absent
// from used. The caller rebuilds used from both allocation sources on
// every call; nothing is cached across allocations.
func nextFreePort(floor, ceiling int, used map[int]struct{}) (int, error) {
	for port := floor; port <= ceiling; port++ {
		if _, taken := used[port]; !taken {
			return port, nil
		}
	}
	return 0, errors.ErrAllocationExhausted
}
