package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shmup/flamethrower/internal/tokenbucket"
)

// parseFlowSpec parses --qps-flow's "QPS,MS;QPS,MS;..." format into a
// flow queue, grounded in original_source/flame/main.cpp's
// parse_flowspec.
func parseFlowSpec(spec string) ([]tokenbucket.Flow, error) {
	groups := strings.Split(spec, ";")
	flows := make([]tokenbucket.Flow, 0, len(groups))
	for _, g := range groups {
		if g == "" {
			continue
		}
		nums := strings.Split(g, ",")
		if len(nums) != 2 {
			return nil, fmt.Errorf("runner: malformed --qps-flow entry %q, expected QPS,MS", g)
		}
		qps, err := strconv.ParseUint(strings.TrimSpace(nums[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("runner: --qps-flow QPS %q: %w", nums[0], err)
		}
		ms, err := strconv.ParseUint(strings.TrimSpace(nums[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("runner: --qps-flow MS %q: %w", nums[1], err)
		}
		flows = append(flows, tokenbucket.Flow{QPS: qps, DurationMS: ms})
	}
	if len(flows) == 0 {
		return nil, fmt.Errorf("runner: --qps-flow must contain at least one QPS,MS entry")
	}
	return flows, nil
}
