package delivery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mediavault/internal/utils/platformerrors"
)

// DefaultWindow is the span served for an open-ended range request
// (`bytes=<start>-`). Kept at exactly 1,000,000 bytes for client
// compatibility; changing it breaks players that resume from end+1.
const DefaultWindow = 1_000_000

// ByteRange is an inclusive byte span within a payload.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a payload of the
// given total size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange interprets a Range request header against a payload of the given
// size. A nil result with nil error means no range was requested and the full
// payload should be served. A single `bytes=<start>-[<end>]` form is accepted;
// an omitted end defaults to min(start+DefaultWindow-1, size-1). Anything
// malformed or outside [0, size) yields a RangeNotSatisfiable error.
func ParseRange(ctx context.Context, header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, unsatisfiable(ctx, header, "2a1b3c4d-5e6f-4708-9a0b-1c2d3e4f5a6b")
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" {
		return nil, unsatisfiable(ctx, header, "3b2c4d5e-6f70-4819-ab1c-2d3e4f5a6b7c")
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return nil, unsatisfiable(ctx, header, "4c3d5e6f-7081-492a-bc2d-3e4f5a6b7c8d")
	}

	var end int64
	if endStr == "" {
		end = start + DefaultWindow - 1
		if limit := size - 1; end > limit {
			end = limit
		}
	} else {
		end, err = strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
		if err != nil {
			return nil, unsatisfiable(ctx, header, "5d4e6f70-8192-4a3b-cd3e-4f5a6b7c8d9e")
		}
	}

	if start > end || end >= size {
		return nil, unsatisfiable(ctx, header, "6e5f7081-92a3-4b4c-de4f-5a6b7c8d9e0f")
	}

	return &ByteRange{Start: start, End: end}, nil
}

func unsatisfiable(ctx context.Context, header, uuid string) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRangeNotSatisfiable,
		fmt.Sprintf("range not satisfiable: %q", header), nil, uuid)
}
