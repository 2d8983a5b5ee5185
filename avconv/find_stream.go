package avconv

import (
	"github.com/asticode/go-astiav"
)

// FindFirstStreamOfType returns the first stream of the given media type,
// or nil if there is none.
func FindFirstStreamOfType(
	fmtCtx *astiav.FormatContext,
	mediaType astiav.MediaType,
) *astiav.Stream {
	for _, stream := range fmtCtx.Streams() {
		if stream.CodecParameters().MediaType() == mediaType {
			return stream
		}
	}
	return nil
}
