package httpapi

import (
	"errors"
	"strconv"
	"strings"
)

// byteRange is a single resolved "bytes=start-end" range, per RFC 7233.
// Only the first range of a request is honored, matching the upstream
// server's behavior of slicing against ranges[0] alone.
type byteRange struct {
	start  uint64
	length uint64
}

var errUnsatisfiableRange = errors.New("httpapi: range not satisfiable")

// parseByteRange parses a "Range: bytes=..." header against a resource of
// the given size. It supports a single "start-end", "start-", or "-suffix"
// range, the common case actix-files' range parser (credited in nar.rs)
// handles; multi-range requests take only the first.
func parseByteRange(header string, size uint64) (byteRange, error) {
	const prefix = "bytes="

	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, errUnsatisfiableRange
	}

	spec := strings.Split(header[len(prefix):], ",")[0]
	spec = strings.TrimSpace(spec)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, errUnsatisfiableRange
	}

	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// Suffix range: last N bytes.
		n, err := strconv.ParseUint(endStr, 10, 64)
		if err != nil || n == 0 {
			return byteRange{}, errUnsatisfiableRange
		}

		if n > size {
			n = size
		}

		return byteRange{start: size - n, length: n}, nil
	}

	start, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil || start >= size {
		return byteRange{}, errUnsatisfiableRange
	}

	if endStr == "" {
		return byteRange{start: start, length: size - start}, nil
	}

	end, err := strconv.ParseUint(endStr, 10, 64)
	if err != nil || end < start {
		return byteRange{}, errUnsatisfiableRange
	}

	if end >= size {
		end = size - 1
	}

	return byteRange{start: start, length: end - start + 1}, nil
}
