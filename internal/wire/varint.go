// Package wire holds the shared wire-format utilities spec.md §4.2 and
// §6 call for: a thread-local JSON parser (valyala/fastjson) for the
// three JSON venues, and a minimal hand-rolled protobuf tag/wire-type
// walker for MEXC's binary envelope — deliberately not the generated
// google.golang.org/protobuf machinery, since only a handful of fields
// are ever needed (spec.md §9 "Protobuf without generated code").
package wire

import "errors"

// ErrTruncated is returned when a varint or length-delimited field runs
// past the end of the buffer.
var ErrTruncated = errors.New("wire: truncated message")

// ReadVarint decodes a base-128 varint starting at buf[0], returning the
// value and the number of bytes consumed.
func ReadVarint(buf []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, errors.New("wire: varint overflow")
		}
	}
	return 0, 0, ErrTruncated
}
