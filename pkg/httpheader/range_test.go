package httpheader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRangeClosedForm(t *testing.T) {
	br, ok, satisfiable := ParseRange("bytes=2-5", 10)
	assert.True(t, ok)
	assert.True(t, satisfiable)
	assert.Equal(t, ByteRange{Start: 2, End: 5}, br)
	assert.Equal(t, int64(4), br.Length())
	assert.Equal(t, "bytes 2-5/10", br.ContentRange(10))
}

func TestParseRangeOpenEndClampsToSize(t *testing.T) {
	br, ok, satisfiable := ParseRange("bytes=7-", 10)
	assert.True(t, ok)
	assert.True(t, satisfiable)
	assert.Equal(t, ByteRange{Start: 7, End: 9}, br)
}

func TestParseRangeEndBeyondSizeClamps(t *testing.T) {
	br, ok, satisfiable := ParseRange("bytes=0-100", 10)
	assert.True(t, ok)
	assert.True(t, satisfiable)
	assert.Equal(t, ByteRange{Start: 0, End: 9}, br)
}

func TestParseRangeSuffixForm(t *testing.T) {
	br, ok, satisfiable := ParseRange("bytes=-3", 10)
	assert.True(t, ok)
	assert.True(t, satisfiable)
	assert.Equal(t, ByteRange{Start: 7, End: 9}, br)
}

func TestParseRangeStartPastEndOfRepUnsatisfiable(t *testing.T) {
	_, ok, satisfiable := ParseRange("bytes=10-12", 10)
	assert.True(t, ok)
	assert.False(t, satisfiable)
	assert.Equal(t, "bytes */10", ContentRangeUnsatisfied(10))
}

func TestParseRangeIgnoresMultiRangeAndOtherUnits(t *testing.T) {
	for _, header := range []string{"bytes=0-1,3-4", "items=0-5", "bytes=b-a", "bytes=5-2", ""} {
		_, ok, _ := ParseRange(header, 10)
		assert.False(t, ok, "header %q", header)
	}
}

func TestEvaluateIfRange(t *testing.T) {
	lastMod := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateIfRange("", "v1", lastMod))
	assert.True(t, EvaluateIfRange(`"v1"`, "v1", lastMod))
	assert.False(t, EvaluateIfRange(`"v2"`, "v1", lastMod))
	assert.False(t, EvaluateIfRange(`W/"v1"`, "v1", lastMod))
	assert.True(t, EvaluateIfRange(lastMod.Format("Mon, 02 Jan 2006 15:04:05 GMT"), "v1", lastMod))
	assert.False(t, EvaluateIfRange(lastMod.Add(time.Minute).Format("Mon, 02 Jan 2006 15:04:05 GMT"), "v1", lastMod))
}

func TestFormatETagPrefersStrongValidator(t *testing.T) {
	lastMod := time.Unix(1750000000, 0)
	assert.Equal(t, `"v1"`, FormatETag("v1", lastMod))
	assert.Equal(t, `W/"1750000000"`, FormatETag("", lastMod))
	assert.Equal(t, "", FormatETag("", time.Time{}))
}
