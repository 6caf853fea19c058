// Package framerange parses inclusive frame ranges such as "100-200".
package framerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid frame range")
	ErrUnsatisfiable = errors.New("frame range not satisfiable")
)

// Range is an inclusive span of frames.
type Range struct {
	First int
	Last  int
}

func (r Range) Len() int {
	return r.Last - r.First + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// Parse reads spec against a clip of n frames. Accepted forms are "a-b",
// "a-" (to the last frame), "-k" (the last k frames) and "a" (one frame).
// An end past the clip is clamped.
func Parse(spec string, n int) (Range, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Range{}, ErrInvalidRange
	}
	if n <= 0 {
		return Range{}, ErrUnsatisfiable
	}

	before, after, found := strings.Cut(spec, "-")
	if !found {
		f, err := strconv.Atoi(spec)
		if err != nil || f < 0 {
			return Range{}, ErrInvalidRange
		}
		before, after = spec, spec
	}

	var first, last int
	if before == "" {
		count, err := strconv.Atoi(after)
		if err != nil || count <= 0 {
			return Range{}, ErrInvalidRange
		}
		first = max(n-count, 0)
		last = n - 1
	} else {
		var err error
		first, err = strconv.Atoi(before)
		if err != nil || first < 0 {
			return Range{}, ErrInvalidRange
		}

		if after == "" {
			last = n - 1
		} else {
			last, err = strconv.Atoi(after)
			if err != nil {
				return Range{}, ErrInvalidRange
			}
		}
	}

	if first > last || first >= n {
		return Range{}, ErrUnsatisfiable
	}
	if last >= n {
		last = n - 1
	}
	return Range{First: first, Last: last}, nil
}
