package mediahttp

import (
	"fmt"
	"regexp"
	"strconv"
)

var rangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// parseRange parses "bytes=A-B", defaulting a missing A to 0 and a
// missing B to size-1, clamping both into [0, size-1], and rejecting
// A > B.
func parseRange(header string, size int64) (start, end int64, err error) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed range header %q", header)
	}

	if m[1] == "" {
		start = 0
	} else {
		start, err = strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, 0, err
		}
	}

	if m[2] == "" {
		end = size - 1
	} else {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, 0, err
		}
	}

	start = clamp(start, 0, size-1)
	end = clamp(end, 0, size-1)

	if start > end {
		return 0, 0, fmt.Errorf("invalid range: start %d > end %d", start, end)
	}
	return start, end, nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
