package httpheader

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ByteRange is one resolved byte range, end inclusive, both within the
// representation's bounds.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (br ByteRange) Length() int64 {
	return br.End - br.Start + 1
}

// ContentRange renders the Content-Range value for br over a representation
// of size bytes.
func (br ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size)
}

// ContentRangeUnsatisfied renders the Content-Range value a 416 response
// carries for a representation of size bytes.
func ContentRangeUnsatisfied(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseRange resolves a single-range bytes Range header against a
// representation of size bytes. ok is false when the header is absent,
// names another unit, is malformed, or carries multiple ranges — all cases
// where the server may ignore it and serve the complete representation.
// When ok is true and satisfiable is false the request must fail with 416.
func ParseRange(header string, size int64) (br ByteRange, ok, satisfiable bool) {
	rangeSpec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || strings.Contains(rangeSpec, ",") {
		return ByteRange{}, false, false
	}
	first, last, found := strings.Cut(strings.TrimSpace(rangeSpec), "-")
	if !found {
		return ByteRange{}, false, false
	}

	if first == "" {
		// Suffix form "-n": the final n bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return ByteRange{}, false, false
		}
		if size == 0 {
			return ByteRange{}, true, false
		}
		if n > size {
			n = size
		}
		return ByteRange{Start: size - n, End: size - 1}, true, true
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, false, false
	}
	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return ByteRange{}, false, false
		}
		if end > size-1 {
			end = size - 1
		}
	}
	if start >= size {
		return ByteRange{}, true, false
	}
	return ByteRange{Start: start, End: end}, true, true
}

// EvaluateIfRange reports whether a Range header may be applied given the
// request's If-Range value and the representation's current validators
// (RFC 9110 §13.1.5). An absent If-Range always permits the range; an etag
// form must strong-match the current validator (so a weak etag never
// satisfies it); a date form must equal the current Last-Modified to the
// second.
func EvaluateIfRange(header, backendETag string, lastModified time.Time) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return true
	}
	if strings.HasPrefix(header, "W/") || strings.HasPrefix(header, `"`) {
		current, ok := currentValidator(backendETag, lastModified)
		return ok && ParseETag(header).StrongMatch(current)
	}
	t, err := http.ParseTime(header)
	if err != nil || lastModified.IsZero() {
		return false
	}
	return t.Truncate(time.Second).Equal(lastModified.UTC().Truncate(time.Second))
}

// FormatETag renders a resource's ETag header value: the backend-provided
// strong validator when one exists, otherwise a weak etag derived from the
// last-modified instant as W/"<unix_timestamp>", otherwise empty.
func FormatETag(etag string, lastModified time.Time) string {
	if etag != "" {
		return `"` + etag + `"`
	}
	if !lastModified.IsZero() {
		return `W/"` + strconv.FormatInt(lastModified.Unix(), 10) + `"`
	}
	return ""
}
