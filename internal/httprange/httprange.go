// Package httprange parses HTTP Range headers into validated byte
// windows against a known object size. It performs no I/O.
package httprange

import (
	"errors"
	"strconv"
	"strings"
)

// DefaultCap bounds open-ended ranges ("bytes=A-") so a single request
// cannot hold an unbounded window. 4 MiB.
const DefaultCap int64 = 4 * 1024 * 1024

var (
	// ErrInvalid reports a malformed Range header (maps to HTTP 400).
	ErrInvalid = errors.New("httprange: invalid range header")

	// ErrNotSatisfiable reports a syntactically valid range that starts
	// at or beyond the object size (maps to HTTP 416).
	ErrNotSatisfiable = errors.New("httprange: range not satisfiable")
)

// Range is an inclusive byte window [Start, End] within an object.
// Partial is false only when the window covers the whole object.
type Range struct {
	Start   int64
	End     int64
	Partial bool
}

// Length returns the number of bytes covered by the window.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the window as a Content-Range header value
// ("bytes start-end/size").
func (r Range) ContentRange(size int64) string {
	return "bytes " + strconv.FormatInt(r.Start, 10) + "-" +
		strconv.FormatInt(r.End, 10) + "/" + strconv.FormatInt(size, 10)
}

// Parse resolves a raw Range header value against the total object size.
//
// An empty header means the whole object. "bytes=A-B" clamps B to the
// last byte. "bytes=A-" is capped at cap bytes rather than running to
// EOF. "bytes=-N" selects the final N bytes. cap <= 0 falls back to
// DefaultCap. size must be non-negative and known.
func Parse(header string, size, cap int64) (Range, error) {
	if cap <= 0 {
		cap = DefaultCap
	}

	if header == "" {
		if size == 0 {
			return Range{Start: 0, End: -1}, nil
		}
		return Range{Start: 0, End: size - 1}, nil
	}

	spec := strings.ToLower(strings.TrimSpace(header))
	if !strings.HasPrefix(spec, "bytes=") {
		return Range{}, ErrInvalid
	}
	spec = strings.TrimPrefix(spec, "bytes=")

	// Multi-range requests ("bytes=0-1,5-9") are not supported.
	if strings.Contains(spec, ",") {
		return Range{}, ErrInvalid
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return Range{}, ErrInvalid
	}

	// Suffix form: "bytes=-N" means the last N bytes.
	if startStr == "" {
		if endStr == "" {
			return Range{}, ErrInvalid
		}
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return Range{}, ErrInvalid
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		return Range{Start: start, End: size - 1, Partial: start > 0}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return Range{}, ErrInvalid
	}
	if start >= size {
		return Range{}, ErrNotSatisfiable
	}

	// Open-ended form: "bytes=A-" is capped, not streamed to EOF.
	if endStr == "" {
		end := start + cap - 1
		if end > size-1 {
			end = size - 1
		}
		return Range{Start: start, End: end, Partial: start != 0 || end != size-1}, nil
	}

	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return Range{}, ErrInvalid
	}
	if end > size-1 {
		end = size - 1
	}
	if start > end {
		return Range{}, ErrInvalid
	}
	return Range{Start: start, End: end, Partial: start != 0 || end != size-1}, nil
}
